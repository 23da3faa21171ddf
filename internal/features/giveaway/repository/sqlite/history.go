package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	apperrors "discord-giveaway-bot/internal/common/errors"
	"discord-giveaway-bot/internal/features/giveaway/models"
	"discord-giveaway-bot/internal/features/giveaway/repository"
)

type historyRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) repository.HistoryRepository {
	return &historyRepository{db: db}
}

// Save archives a concluded giveaway. Saving the same id again replaces it.
func (r *historyRepository) Save(ctx context.Context, g *models.Giveaway) error {
	if g.Outcome == nil {
		return apperrors.New(apperrors.ErrCodeValidation, "cannot archive giveaway without outcome: "+g.ID)
	}
	outcome, err := json.Marshal(g.Outcome)
	if err != nil {
		return apperrors.NewDatabaseError("marshal outcome", err)
	}

	query := `
		INSERT INTO giveaway_history (id, guild_id, channel_id, host_id, prize, description,
			winners_count, entrant_count, started_at, ends_at, outcome_kind, outcome, concluded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			entrant_count = excluded.entrant_count,
			outcome_kind = excluded.outcome_kind,
			outcome = excluded.outcome,
			concluded_at = excluded.concluded_at
	`
	_, err = r.db.ExecContext(ctx, query,
		g.ID, g.GuildID, g.ChannelID, g.HostID, g.Prize, g.Description,
		g.WinnersCount, g.EntrantCount, g.StartedAt.UnixNano(), g.EndsAt.UnixNano(),
		string(g.Outcome.Kind), string(outcome), g.Outcome.ConcludedAt.UnixNano())
	if err != nil {
		return apperrors.NewDatabaseError("save giveaway history", err)
	}
	return nil
}

// List returns archived giveaways, most recently concluded first.
func (r *historyRepository) List(ctx context.Context, limit, offset int) ([]*models.Giveaway, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `
		SELECT id, guild_id, channel_id, host_id, prize, description,
			winners_count, entrant_count, started_at, ends_at, outcome
		FROM giveaway_history
		ORDER BY concluded_at DESC, id
		LIMIT ? OFFSET ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list giveaway history", err)
	}
	defer rows.Close()

	giveaways := make([]*models.Giveaway, 0)
	for rows.Next() {
		g, err := scanGiveaway(rows)
		if err != nil {
			return nil, err
		}
		giveaways = append(giveaways, g)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("list giveaway history", err)
	}
	return giveaways, nil
}

func (r *historyRepository) GetByID(ctx context.Context, id string) (*models.Giveaway, error) {
	query := `
		SELECT id, guild_id, channel_id, host_id, prize, description,
			winners_count, entrant_count, started_at, ends_at, outcome
		FROM giveaway_history
		WHERE id = ?
	`
	g, err := scanGiveaway(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewGiveawayNotFoundError(id)
	}
	return g, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanGiveaway(row scanner) (*models.Giveaway, error) {
	var (
		g                 models.Giveaway
		startedAt, endsAt int64
		outcome           string
	)
	err := row.Scan(&g.ID, &g.GuildID, &g.ChannelID, &g.HostID, &g.Prize, &g.Description,
		&g.WinnersCount, &g.EntrantCount, &startedAt, &endsAt, &outcome)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("scan giveaway history", err)
	}
	g.StartedAt = time.Unix(0, startedAt).UTC()
	g.EndsAt = time.Unix(0, endsAt).UTC()
	g.State = models.GiveawayStateConcluded
	g.Outcome = &models.Outcome{}
	if err := json.Unmarshal([]byte(outcome), g.Outcome); err != nil {
		return nil, apperrors.NewDatabaseError("unmarshal outcome", err)
	}
	return &g, nil
}
