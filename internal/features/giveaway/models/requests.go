package models

import (
	"math"
	"strings"
	"time"

	apperrors "discord-giveaway-bot/internal/common/errors"
	"discord-giveaway-bot/internal/common/validation"
)

// StartRequest is the input of the start-giveaway action.
type StartRequest struct {
	GuildID      string
	ChannelID    string
	HostID       string
	Duration     time.Duration
	WinnersCount int
	Prize        string
	Description  string
}

// maxDurationSeconds is the largest whole number of seconds a time.Duration holds.
const maxDurationSeconds = math.MaxInt64 / int64(time.Second)

// DurationFromSeconds converts a user-supplied number of seconds, rejecting
// values that are not positive or do not fit a time.Duration.
func DurationFromSeconds(secs int64) (time.Duration, error) {
	if secs < 1 || secs > maxDurationSeconds {
		return 0, apperrors.NewConfigurationError("time", "duration must be a positive number of seconds")
	}
	return time.Duration(secs) * time.Second, nil
}

// Validate rejects malformed requests. The giveaway is never created on error.
func (r *StartRequest) Validate(maxDuration time.Duration, maxWinners int) error {
	if r.GuildID == "" {
		return apperrors.NewConfigurationError("guild", "giveaways can only run inside a server")
	}
	if r.ChannelID == "" {
		return apperrors.NewConfigurationError("channel", "missing channel")
	}
	if r.Duration < time.Second {
		return apperrors.NewConfigurationError("time", "duration must be a positive number of seconds")
	}
	if maxDuration > 0 && r.Duration > maxDuration {
		return apperrors.NewConfigurationError("time", "duration exceeds "+maxDuration.String())
	}
	if r.WinnersCount < 1 {
		return apperrors.NewConfigurationError("winners", "must be at least 1")
	}
	if maxWinners > 0 && r.WinnersCount > maxWinners {
		return apperrors.NewConfigurationError("winners", "too many winners")
	}
	if err := validation.ValidatePrize(r.Prize); err != nil {
		return apperrors.NewConfigurationError("prize", err.Error())
	}
	if err := validation.ValidateDescription(r.Description); err != nil {
		return apperrors.NewConfigurationError("description", err.Error())
	}
	r.Prize = strings.TrimSpace(r.Prize)
	r.Description = strings.TrimSpace(r.Description)
	if r.Description == "" {
		r.Description = DefaultDescription
	}
	return nil
}

// Announcement is the platform-neutral content of the public giveaway message.
type Announcement struct {
	GiveawayID   string
	Prize        string
	Description  string
	HostID       string
	WinnersCount int
	EntrantCount int
	EndsAt       time.Time
	EntryEmoji   string
	State        GiveawayState
	Outcome      *Outcome
}

// NewAnnouncement builds the announcement view of g.
func NewAnnouncement(g *Giveaway, entryEmoji string) Announcement {
	return Announcement{
		GiveawayID:   g.ID,
		Prize:        g.Prize,
		Description:  g.Description,
		HostID:       g.HostID,
		WinnersCount: g.WinnersCount,
		EntrantCount: g.EntrantCount,
		EndsAt:       g.EndsAt,
		EntryEmoji:   entryEmoji,
		State:        g.State,
		Outcome:      g.Outcome,
	}
}
