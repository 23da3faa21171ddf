package service

import (
	"context"

	"discord-giveaway-bot/internal/features/giveaway/models"
)

// GiveawayService defines the giveaway lifecycle operations.
type GiveawayService interface {
	Start(ctx context.Context, req models.StartRequest) (*models.Giveaway, error)
	Enter(ctx context.Context, giveawayID, userID string, source models.EntrySource) (bool, error)
	Leave(ctx context.Context, giveawayID, userID string, source models.EntrySource) (bool, error)
	Cancel(ctx context.Context, giveawayID string) (*models.Giveaway, error)
	GetByID(ctx context.Context, giveawayID string) (*models.Giveaway, error)
	List(ctx context.Context, state models.GiveawayState) ([]*models.Giveaway, error)
	History(ctx context.Context, limit, offset int) ([]*models.Giveaway, error)
	Errors() <-chan error
	Shutdown()
}

// Platform is the chat platform as consumed by the giveaway core.
type Platform interface {
	SendAnnouncement(ctx context.Context, channelID string, a models.Announcement) (string, error)
	EditAnnouncement(ctx context.Context, channelID, messageID string, a models.Announcement) error
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error
	// ReactionUsers lists non-bot users that reacted to a message with emoji.
	ReactionUsers(ctx context.Context, channelID, messageID, emoji string) ([]string, error)
	SendMessage(ctx context.Context, channelID, content string) error

	ChannelNames(ctx context.Context, guildID string) ([]string, error)
	CreatePrivateChannel(ctx context.Context, req PrivateChannelRequest) (string, error)
	GrantVisibility(ctx context.Context, channelID, userID string) error
	DeleteChannel(ctx context.Context, channelID string) error

	Member(ctx context.Context, guildID, userID string) (models.Member, error)
	AdminMembers(ctx context.Context, guildID string) ([]models.Member, error)
}

// PrivateChannelRequest describes a channel hidden from @everyone.
type PrivateChannelRequest struct {
	GuildID    string
	Name       string
	CategoryID string
	// MemberIDs and RoleIDs are granted visibility through overwrites.
	MemberIDs []string
	RoleIDs   []string
}

// EventPublisher receives lifecycle events. Publishing is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, event models.Event) error
}

// WinnerProvisioner provisions one winner.
type WinnerProvisioner interface {
	Provision(ctx context.Context, g *models.Giveaway, winnerID string) (models.ProvisionedChannel, error)
}
