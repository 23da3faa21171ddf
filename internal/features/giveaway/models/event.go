package models

import "time"

// EventType names a giveaway lifecycle event on the bot event stream.
type EventType string

const (
	EventGiveawayStarted   EventType = "giveaway_started"
	EventGiveawayConcluded EventType = "giveaway_concluded"
	EventGiveawayCancelled EventType = "giveaway_cancelled"
)

// Event is published when a giveaway changes state.
type Event struct {
	Type       EventType `json:"type"`
	GiveawayID string    `json:"giveaway_id"`
	GuildID    string    `json:"guild_id"`
	ChannelID  string    `json:"channel_id"`
	At         time.Time `json:"at"`
	Giveaway   *Giveaway `json:"giveaway"`
}

// NewEvent snapshots g into an event of type t.
func NewEvent(t EventType, g *Giveaway, at time.Time) Event {
	return Event{
		Type:       t,
		GiveawayID: g.ID,
		GuildID:    g.GuildID,
		ChannelID:  g.ChannelID,
		At:         at,
		Giveaway:   g.Clone(),
	}
}
