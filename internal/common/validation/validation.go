package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// Maximum lengths, in characters, of user-supplied giveaway text.
	MaxPrizeLength       = 200
	MaxDescriptionLength = 2000

	MinPrizeLength = 1
)

// ValidatePrize checks the prize text.
func ValidatePrize(prize string) error {
	prize = strings.TrimSpace(prize)
	if utf8.RuneCountInString(prize) < MinPrizeLength {
		return fmt.Errorf("must not be empty")
	}
	if utf8.RuneCountInString(prize) > MaxPrizeLength {
		return fmt.Errorf("cannot exceed %d characters", MaxPrizeLength)
	}
	return nil
}

// ValidateDescription checks the description. Empty is allowed.
func ValidateDescription(description string) error {
	if utf8.RuneCountInString(strings.TrimSpace(description)) > MaxDescriptionLength {
		return fmt.Errorf("cannot exceed %d characters", MaxDescriptionLength)
	}
	return nil
}

// ValidateSnowflake checks that id looks like a Discord snowflake.
func ValidateSnowflake(id string) error {
	if id == "" {
		return fmt.Errorf("must not be empty")
	}
	if len(id) > 20 {
		return fmt.Errorf("too long")
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return fmt.Errorf("must be numeric")
		}
	}
	return nil
}
