package repository

import (
	"context"

	"discord-giveaway-bot/internal/features/giveaway/models"
)

// GiveawayRepository is the live giveaway store. It also acts as the entrant
// registry: Register and Transition are serialized per giveaway, so an entry
// racing the close is either fully included or rejected.
type GiveawayRepository interface {
	Create(ctx context.Context, giveaway *models.Giveaway) error
	GetByID(ctx context.Context, id string) (*models.Giveaway, error)
	List(ctx context.Context, state models.GiveawayState) ([]*models.Giveaway, error)

	Register(ctx context.Context, giveawayID, userID string, source models.EntrySource) (bool, error)
	// Withdraw removes an entrant. A reaction withdrawal leaves button
	// entries in place; a button withdrawal also excludes the user.
	Withdraw(ctx context.Context, giveawayID, userID string, source models.EntrySource) (bool, error)
	Entrants(ctx context.Context, giveawayID string) ([]string, error)

	// Exclude and Excluded track users who must not be added back from the
	// reaction list: they left explicitly or tried to enter too late.
	Exclude(ctx context.Context, giveawayID, userID string) error
	Excluded(ctx context.Context, giveawayID string) ([]string, error)

	// Transition moves the giveaway from one state to the next and returns the
	// entrant snapshot frozen at that instant.
	Transition(ctx context.Context, giveawayID string, from, to models.GiveawayState) ([]string, error)
	SetOutcome(ctx context.Context, giveawayID string, outcome *models.Outcome) error
}

// HistoryRepository archives concluded giveaways.
type HistoryRepository interface {
	Save(ctx context.Context, giveaway *models.Giveaway) error
	List(ctx context.Context, limit, offset int) ([]*models.Giveaway, error)
	GetByID(ctx context.Context, id string) (*models.Giveaway, error)
}
