package models

import (
	"time"
)

// DefaultDescription is shown when the host gives no description.
const DefaultDescription = "Participate in the giveaway to win a great prize!"

// EntrySource records how a participant entered.
type EntrySource string

const (
	EntrySourceButton   EntrySource = "button"
	EntrySourceReaction EntrySource = "reaction"
)

// GiveawayState represents the lifecycle state of a giveaway.
// Transitions are strictly forward: open -> selecting -> concluded.
type GiveawayState string

const (
	GiveawayStateOpen      GiveawayState = "open"      // Accepting entrants
	GiveawayStateSelecting GiveawayState = "selecting" // Timer fired, drawing and provisioning
	GiveawayStateConcluded GiveawayState = "concluded" // Terminal
)

// CanTransition reports whether moving from s to next goes strictly forward.
func (s GiveawayState) CanTransition(next GiveawayState) bool {
	switch s {
	case GiveawayStateOpen:
		return next == GiveawayStateSelecting || next == GiveawayStateConcluded
	case GiveawayStateSelecting:
		return next == GiveawayStateConcluded
	default:
		return false
	}
}

// OutcomeKind is the terminal result of a giveaway.
type OutcomeKind string

const (
	OutcomeWinners        OutcomeKind = "winners"
	OutcomeNoParticipants OutcomeKind = "no_participants"
	OutcomeCancelled      OutcomeKind = "cancelled"
	// OutcomeFailed means winners were drawn but none could be provisioned.
	OutcomeFailed OutcomeKind = "failed"
)

// Giveaway is the in-memory record of one giveaway, keyed by its announcement.
type Giveaway struct {
	ID           string        `json:"id"` // announcement message id
	GuildID      string        `json:"guild_id"`
	ChannelID    string        `json:"channel_id"`
	HostID       string        `json:"host_id"`
	Prize        string        `json:"prize"`
	Description  string        `json:"description"`
	WinnersCount int           `json:"winners_count"`
	StartedAt    time.Time     `json:"started_at"`
	EndsAt       time.Time     `json:"ends_at"`
	State        GiveawayState `json:"state"`
	EntrantCount int           `json:"entrant_count"`
	Outcome      *Outcome      `json:"outcome,omitempty"`
}

// IsOpen reports whether entries are still accepted at now.
func (g *Giveaway) IsOpen(now time.Time) bool {
	return g.State == GiveawayStateOpen && now.Before(g.EndsAt)
}

// Clone returns a deep copy safe to hand out of the store.
func (g *Giveaway) Clone() *Giveaway {
	if g == nil {
		return nil
	}
	c := *g
	if g.Outcome != nil {
		c.Outcome = g.Outcome.Clone()
	}
	return &c
}

// ProvisionedChannel is the private channel created for one winner.
type ProvisionedChannel struct {
	WinnerID    string `json:"winner_id"`
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name"`
}

// ProvisionFailure records a winner whose channel could not be provisioned.
type ProvisionFailure struct {
	WinnerID string `json:"winner_id"`
	Reason   string `json:"reason"`
}

// Outcome is the final report of a concluded giveaway.
type Outcome struct {
	RunID        string               `json:"run_id"`
	Kind         OutcomeKind          `json:"kind"`
	Drawn        []string             `json:"drawn,omitempty"`
	Winners      []ProvisionedChannel `json:"winners,omitempty"`
	Failures     []ProvisionFailure   `json:"failures,omitempty"`
	EntrantCount int                  `json:"entrant_count"`
	// AnnouncementUpdated is false when the final edit of the announcement failed.
	AnnouncementUpdated bool      `json:"announcement_updated"`
	ConcludedAt         time.Time `json:"concluded_at"`
}

// WinnerIDs returns the ids of successfully provisioned winners in draw order.
func (o *Outcome) WinnerIDs() []string {
	ids := make([]string, 0, len(o.Winners))
	for _, w := range o.Winners {
		ids = append(ids, w.WinnerID)
	}
	return ids
}

func (o *Outcome) Clone() *Outcome {
	c := *o
	c.Drawn = append([]string(nil), o.Drawn...)
	c.Winners = append([]ProvisionedChannel(nil), o.Winners...)
	c.Failures = append([]ProvisionFailure(nil), o.Failures...)
	return &c
}

// Member is a community member as seen by the provisioner.
type Member struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Bot         bool   `json:"bot"`
}
