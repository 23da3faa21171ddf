package service

import (
	"fmt"
	"strings"

	"discord-giveaway-bot/internal/features/giveaway/models"
)

// NoParticipantsText is shown when a giveaway ends with an empty registry.
const NoParticipantsText = "No participants were registered."

// MentionList renders user mentions separated by commas.
func MentionList(ids []string) string {
	mentions := make([]string, 0, len(ids))
	for _, id := range ids {
		mentions = append(mentions, "<@"+id+">")
	}
	return strings.Join(mentions, ", ")
}

// ResultText describes the outcome in one line.
func ResultText(o *models.Outcome) string {
	if o == nil {
		return ""
	}
	switch o.Kind {
	case models.OutcomeNoParticipants:
		return NoParticipantsText
	case models.OutcomeCancelled:
		return "This giveaway was cancelled."
	case models.OutcomeFailed:
		return "Winners were drawn but could not be contacted."
	default:
		return "Winner(s): " + MentionList(o.WinnerIDs())
	}
}

// FallbackText is posted as a new message when the announcement could not be
// edited with the result.
func FallbackText(g *models.Giveaway, o *models.Outcome) string {
	return fmt.Sprintf("Giveaway for **%s** has ended. %s", g.Prize, ResultText(o))
}
