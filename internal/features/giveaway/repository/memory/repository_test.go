package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "discord-giveaway-bot/internal/common/errors"
	"discord-giveaway-bot/internal/features/giveaway/models"
)

func newOpenGiveaway(t *testing.T, repo *Repository, id string) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &models.Giveaway{
		ID:           id,
		GuildID:      "guild",
		ChannelID:    "channel",
		Prize:        "Nitro",
		WinnersCount: 1,
		StartedAt:    time.Now(),
		EndsAt:       time.Now().Add(time.Minute),
	}))
}

func TestCreate_DuplicateRejected(t *testing.T) {
	repo := NewRepository()
	newOpenGiveaway(t, repo, "g1")

	err := repo.Create(context.Background(), &models.Giveaway{ID: "g1"})
	require.Error(t, err)

	g, err := repo.GetByID(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, models.GiveawayStateOpen, g.State)
}

func TestRegister_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	newOpenGiveaway(t, repo, "g1")

	added, err := repo.Register(ctx, "g1", "alice", models.EntrySourceButton)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.Register(ctx, "g1", "alice", models.EntrySourceButton)
	require.NoError(t, err)
	assert.False(t, added)

	entrants, err := repo.Entrants(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, entrants)

	g, err := repo.GetByID(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 1, g.EntrantCount)
}

func TestRegister_UnknownGiveaway(t *testing.T) {
	_, err := NewRepository().Register(context.Background(), "missing", "alice", models.EntrySourceButton)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeGiveawayNotFound))
}

func TestRegister_RejectedAfterClose(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	newOpenGiveaway(t, repo, "g1")
	_, err := repo.Register(ctx, "g1", "alice", models.EntrySourceButton)
	require.NoError(t, err)

	frozen, err := repo.Transition(ctx, "g1", models.GiveawayStateOpen, models.GiveawayStateSelecting)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, frozen)

	added, err := repo.Register(ctx, "g1", "bob", models.EntrySourceButton)
	require.Error(t, err)
	assert.False(t, added)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeGiveawayClosed))

	_, err = repo.Withdraw(ctx, "g1", "alice", models.EntrySourceButton)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeGiveawayClosed))

	entrants, err := repo.Entrants(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, entrants)
}

func TestWithdraw(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	newOpenGiveaway(t, repo, "g1")
	_, _ = repo.Register(ctx, "g1", "alice", models.EntrySourceButton)

	removed, err := repo.Withdraw(ctx, "g1", "alice", models.EntrySourceButton)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Withdraw(ctx, "g1", "alice", models.EntrySourceButton)
	require.NoError(t, err)
	assert.False(t, removed)

	entrants, err := repo.Entrants(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, entrants)
}

func TestWithdraw_ReactionKeepsButtonEntry(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	newOpenGiveaway(t, repo, "g1")
	_, _ = repo.Register(ctx, "g1", "alice", models.EntrySourceButton)
	_, _ = repo.Register(ctx, "g1", "bob", models.EntrySourceReaction)

	removed, err := repo.Withdraw(ctx, "g1", "alice", models.EntrySourceReaction)
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = repo.Withdraw(ctx, "g1", "bob", models.EntrySourceReaction)
	require.NoError(t, err)
	assert.True(t, removed)

	entrants, err := repo.Entrants(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, entrants)
}

func TestRegister_ButtonUpgradesReactionEntry(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	newOpenGiveaway(t, repo, "g1")

	added, err := repo.Register(ctx, "g1", "alice", models.EntrySourceReaction)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = repo.Register(ctx, "g1", "alice", models.EntrySourceButton)
	require.NoError(t, err)
	assert.False(t, added)

	removed, err := repo.Withdraw(ctx, "g1", "alice", models.EntrySourceReaction)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestExcluded(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	newOpenGiveaway(t, repo, "g1")
	_, _ = repo.Register(ctx, "g1", "alice", models.EntrySourceButton)
	_, _ = repo.Register(ctx, "g1", "bob", models.EntrySourceButton)

	_, err := repo.Withdraw(ctx, "g1", "bob", models.EntrySourceButton)
	require.NoError(t, err)
	require.NoError(t, repo.Exclude(ctx, "g1", "late"))
	// Registered entrants are never excluded.
	require.NoError(t, repo.Exclude(ctx, "g1", "alice"))

	excluded, err := repo.Excluded(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "late"}, excluded)

	// Entering again clears the exclusion.
	_, err = repo.Register(ctx, "g1", "bob", models.EntrySourceButton)
	require.NoError(t, err)
	excluded, err = repo.Excluded(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"late"}, excluded)

	_, err = repo.Transition(ctx, "g1", models.GiveawayStateOpen, models.GiveawayStateSelecting)
	require.NoError(t, err)
	require.NoError(t, repo.Exclude(ctx, "g1", "later"))

	_, err = repo.Transition(ctx, "g1", models.GiveawayStateSelecting, models.GiveawayStateConcluded)
	require.NoError(t, err)
	err = repo.Exclude(ctx, "g1", "latest")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeGiveawayClosed))
}

func TestTransition_StrictlyForward(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	newOpenGiveaway(t, repo, "g1")

	_, err := repo.Transition(ctx, "g1", models.GiveawayStateOpen, models.GiveawayStateSelecting)
	require.NoError(t, err)

	// second selection attempt must lose
	_, err = repo.Transition(ctx, "g1", models.GiveawayStateOpen, models.GiveawayStateSelecting)
	require.Error(t, err)

	_, err = repo.Transition(ctx, "g1", models.GiveawayStateSelecting, models.GiveawayStateConcluded)
	require.NoError(t, err)

	_, err = repo.Transition(ctx, "g1", models.GiveawayStateConcluded, models.GiveawayStateOpen)
	require.Error(t, err)
}

func TestSetOutcome_Once(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	newOpenGiveaway(t, repo, "g1")

	outcome := &models.Outcome{Kind: models.OutcomeNoParticipants}
	require.Error(t, repo.SetOutcome(ctx, "g1", outcome), "open giveaway has no outcome")

	_, err := repo.Transition(ctx, "g1", models.GiveawayStateOpen, models.GiveawayStateConcluded)
	require.NoError(t, err)
	require.NoError(t, repo.SetOutcome(ctx, "g1", outcome))
	require.Error(t, repo.SetOutcome(ctx, "g1", outcome))

	g, err := repo.GetByID(ctx, "g1")
	require.NoError(t, err)
	require.NotNil(t, g.Outcome)
	assert.Equal(t, models.OutcomeNoParticipants, g.Outcome.Kind)
}

func TestList_FiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	base := time.Now()
	for i, id := range []string{"late", "early"} {
		require.NoError(t, repo.Create(ctx, &models.Giveaway{
			ID:     id,
			EndsAt: base.Add(time.Duration(2-i) * time.Minute),
		}))
	}
	_, err := repo.Transition(ctx, "late", models.GiveawayStateOpen, models.GiveawayStateConcluded)
	require.NoError(t, err)

	all, err := repo.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "early", all[0].ID)

	open, err := repo.List(ctx, models.GiveawayStateOpen)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "early", open[0].ID)
}

// Entries racing the close are either in the frozen snapshot or rejected,
// never lost after being accepted.
func TestRegister_RaceWithTransition(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	newOpenGiveaway(t, repo, "g1")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted = make(map[string]bool)
		frozen   []string
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("user-%d", i)
			added, err := repo.Register(ctx, "g1", user, models.EntrySourceButton)
			if err == nil && added {
				mu.Lock()
				accepted[user] = true
				mu.Unlock()
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		snap, err := repo.Transition(ctx, "g1", models.GiveawayStateOpen, models.GiveawayStateSelecting)
		assert.NoError(t, err)
		frozen = snap
	}()
	wg.Wait()

	assert.Len(t, frozen, len(accepted))
	for _, user := range frozen {
		assert.True(t, accepted[user])
	}
}
