package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	apperrors "discord-giveaway-bot/internal/common/errors"
	"discord-giveaway-bot/internal/features/giveaway/models"
	"discord-giveaway-bot/internal/features/giveaway/repository"
)

type record struct {
	giveaway *models.Giveaway
	// entrants maps registered participants to how they entered.
	entrants map[string]models.EntrySource
	excluded map[string]struct{}
}

// Repository keeps live giveaways in process memory, indexed by announcement id.
type Repository struct {
	mu        sync.RWMutex
	giveaways map[string]*record
}

var _ repository.GiveawayRepository = (*Repository)(nil)

func NewRepository() *Repository {
	return &Repository{giveaways: make(map[string]*record)}
}

func (r *Repository) Create(ctx context.Context, g *models.Giveaway) error {
	if g == nil || g.ID == "" {
		return apperrors.New(apperrors.ErrCodeValidation, "giveaway id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.giveaways[g.ID]; exists {
		return apperrors.New(apperrors.ErrCodeValidation, fmt.Sprintf("giveaway %s already exists", g.ID))
	}
	stored := g.Clone()
	if stored.State == "" {
		stored.State = models.GiveawayStateOpen
	}
	stored.EntrantCount = 0
	r.giveaways[g.ID] = &record{
		giveaway: stored,
		entrants: make(map[string]models.EntrySource),
		excluded: make(map[string]struct{}),
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.Giveaway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.giveaways[id]
	if !ok {
		return nil, apperrors.NewGiveawayNotFoundError(id)
	}
	return rec.giveaway.Clone(), nil
}

// List returns giveaways ordered by end time. An empty state matches all.
func (r *Repository) List(ctx context.Context, state models.GiveawayState) ([]*models.Giveaway, error) {
	r.mu.RLock()
	out := make([]*models.Giveaway, 0, len(r.giveaways))
	for _, rec := range r.giveaways {
		if state != "" && rec.giveaway.State != state {
			continue
		}
		out = append(out, rec.giveaway.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].EndsAt.Equal(out[j].EndsAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].EndsAt.Before(out[j].EndsAt)
	})
	return out, nil
}

// Register adds userID to the entrant set. It reports false when the user was
// already registered; a button entry still replaces a reaction entry.
func (r *Repository) Register(ctx context.Context, giveawayID, userID string, source models.EntrySource) (bool, error) {
	if userID == "" {
		return false, apperrors.New(apperrors.ErrCodeValidation, "user id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.openRecord(giveawayID)
	if err != nil {
		return false, err
	}
	delete(rec.excluded, userID)
	if prev, ok := rec.entrants[userID]; ok {
		if prev == models.EntrySourceReaction && source == models.EntrySourceButton {
			rec.entrants[userID] = source
		}
		return false, nil
	}
	rec.entrants[userID] = source
	rec.giveaway.EntrantCount = len(rec.entrants)
	return true, nil
}

func (r *Repository) Withdraw(ctx context.Context, giveawayID, userID string, source models.EntrySource) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.openRecord(giveawayID)
	if err != nil {
		return false, err
	}
	if source == models.EntrySourceButton {
		rec.excluded[userID] = struct{}{}
	}
	prev, ok := rec.entrants[userID]
	if !ok {
		return false, nil
	}
	if source == models.EntrySourceReaction && prev == models.EntrySourceButton {
		return false, nil
	}
	delete(rec.entrants, userID)
	rec.giveaway.EntrantCount = len(rec.entrants)
	return true, nil
}

// Exclude is accepted until the giveaway concludes, so late reactions seen
// while winners are being drawn are still recorded.
func (r *Repository) Exclude(ctx context.Context, giveawayID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.giveaways[giveawayID]
	if !ok {
		return apperrors.NewGiveawayNotFoundError(giveawayID)
	}
	if rec.giveaway.State == models.GiveawayStateConcluded {
		return apperrors.NewGiveawayClosedError(giveawayID)
	}
	if _, entered := rec.entrants[userID]; !entered {
		rec.excluded[userID] = struct{}{}
	}
	return nil
}

func (r *Repository) Excluded(ctx context.Context, giveawayID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.giveaways[giveawayID]
	if !ok {
		return nil, apperrors.NewGiveawayNotFoundError(giveawayID)
	}
	return snapshot(rec.excluded), nil
}

func (r *Repository) Entrants(ctx context.Context, giveawayID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.giveaways[giveawayID]
	if !ok {
		return nil, apperrors.NewGiveawayNotFoundError(giveawayID)
	}
	return keys(rec.entrants), nil
}

func (r *Repository) Transition(ctx context.Context, giveawayID string, from, to models.GiveawayState) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.giveaways[giveawayID]
	if !ok {
		return nil, apperrors.NewGiveawayNotFoundError(giveawayID)
	}
	if rec.giveaway.State != from || !from.CanTransition(to) {
		return nil, apperrors.New(apperrors.ErrCodeGiveawayClosed,
			fmt.Sprintf("giveaway %s: cannot move %s -> %s (current %s)", giveawayID, from, to, rec.giveaway.State)).
			WithDetail("giveaway_id", giveawayID)
	}
	rec.giveaway.State = to
	return keys(rec.entrants), nil
}

// SetOutcome records the final report. It is accepted once, on a concluded giveaway.
func (r *Repository) SetOutcome(ctx context.Context, giveawayID string, outcome *models.Outcome) error {
	if outcome == nil {
		return apperrors.New(apperrors.ErrCodeValidation, "outcome is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.giveaways[giveawayID]
	if !ok {
		return apperrors.NewGiveawayNotFoundError(giveawayID)
	}
	if rec.giveaway.State != models.GiveawayStateConcluded {
		return apperrors.New(apperrors.ErrCodeValidation, "outcome can only be set on a concluded giveaway")
	}
	if rec.giveaway.Outcome != nil {
		return apperrors.New(apperrors.ErrCodeValidation, "outcome already recorded")
	}
	rec.giveaway.Outcome = outcome.Clone()
	return nil
}

// openRecord must be called with mu held.
func (r *Repository) openRecord(giveawayID string) (*record, error) {
	rec, ok := r.giveaways[giveawayID]
	if !ok {
		return nil, apperrors.NewGiveawayNotFoundError(giveawayID)
	}
	if rec.giveaway.State != models.GiveawayStateOpen {
		return nil, apperrors.NewGiveawayClosedError(giveawayID)
	}
	return rec, nil
}

func snapshot(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func keys(entrants map[string]models.EntrySource) []string {
	out := make([]string, 0, len(entrants))
	for id := range entrants {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
