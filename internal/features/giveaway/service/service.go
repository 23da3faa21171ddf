package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"discord-giveaway-bot/internal/common/config"
	apperrors "discord-giveaway-bot/internal/common/errors"
	"discord-giveaway-bot/internal/features/giveaway/models"
	"discord-giveaway-bot/internal/features/giveaway/repository"
)

// Options tunes the lifecycle controller.
type Options struct {
	EntryEmoji           string
	MaxDuration          time.Duration
	MaxWinners           int
	ProvisionConcurrency int
	Retries              int
	RetryDelay           time.Duration
	// ReconcileReactions unions the announcement's reaction users into the
	// entrant snapshot at selection time, minus users who left or tried to
	// enter too late. The registry stays authoritative for everything else.
	ReconcileReactions bool
	// RefreshDelay batches participant-count edits of one announcement.
	RefreshDelay time.Duration
}

// OptionsFromConfig maps the giveaway section of the config.
func OptionsFromConfig(cfg *config.Config) Options {
	g := cfg.Giveaway
	return Options{
		EntryEmoji:           g.EntryEmoji,
		MaxDuration:          g.MaxDuration,
		MaxWinners:           g.MaxWinners,
		ProvisionConcurrency: g.ProvisionWorker,
		Retries:              g.Retries,
		RetryDelay:           g.RetryDelay,
		ReconcileReactions:   g.ReconcileReactions,
		RefreshDelay:         g.RefreshDelay,
	}
}

func (o Options) withDefaults() Options {
	if o.EntryEmoji == "" {
		o.EntryEmoji = DefaultEntryEmoji
	}
	if o.ProvisionConcurrency < 1 {
		o.ProvisionConcurrency = DefaultProvisionConcurrency
	}
	if o.Retries < 1 {
		o.Retries = DefaultRetries
	}
	if o.RetryDelay < 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.RefreshDelay <= 0 {
		o.RefreshDelay = DefaultRefreshDelay
	}
	return o
}

type giveawayService struct {
	repo        repository.GiveawayRepository
	history     repository.HistoryRepository
	platform    Platform
	provisioner WinnerProvisioner
	events      EventPublisher
	scheduler   *Scheduler
	opts        Options
	retry       retryPolicy
	logger      zerolog.Logger
	errs        chan error
	now         func() time.Time

	// announcementLocks serializes edits of one announcement so a late
	// participant-count refresh never overwrites the final state.
	announcementLocks sync.Map

	// refreshing maps a giveaway id with a refresh in flight to whether
	// another pass was requested meanwhile. wg counts those refreshers.
	refreshMu  sync.Mutex
	refreshing map[string]bool
	closed     bool
	done       chan struct{}
	wg         sync.WaitGroup
}

// NewGiveawayService wires the lifecycle controller. history and events may be nil.
func NewGiveawayService(
	repo repository.GiveawayRepository,
	history repository.HistoryRepository,
	platform Platform,
	provisioner WinnerProvisioner,
	events EventPublisher,
	opts Options,
	logger zerolog.Logger,
) GiveawayService {
	return newGiveawayService(repo, history, platform, provisioner, events, opts, logger)
}

func newGiveawayService(
	repo repository.GiveawayRepository,
	history repository.HistoryRepository,
	platform Platform,
	provisioner WinnerProvisioner,
	events EventPublisher,
	opts Options,
	logger zerolog.Logger,
) *giveawayService {
	opts = opts.withDefaults()
	s := &giveawayService{
		repo:        repo,
		history:     history,
		platform:    platform,
		provisioner: provisioner,
		events:      events,
		opts:        opts,
		retry:       retryPolicy{attempts: opts.Retries, delay: opts.RetryDelay},
		logger:      logger.With().Str("component", "giveaway_service").Logger(),
		errs:        make(chan error, ErrorBufferSize),
		now:         time.Now,
		refreshing:  make(map[string]bool),
		done:        make(chan struct{}),
	}
	s.scheduler = NewScheduler(s.reportError)
	return s
}

// Start validates the request, posts the announcement and arms the timer.
func (s *giveawayService) Start(ctx context.Context, req models.StartRequest) (*models.Giveaway, error) {
	if err := req.Validate(s.opts.MaxDuration, s.opts.MaxWinners); err != nil {
		return nil, err
	}

	now := s.now()
	g := &models.Giveaway{
		GuildID:      req.GuildID,
		ChannelID:    req.ChannelID,
		HostID:       req.HostID,
		Prize:        req.Prize,
		Description:  req.Description,
		WinnersCount: req.WinnersCount,
		StartedAt:    now,
		EndsAt:       now.Add(req.Duration),
		State:        models.GiveawayStateOpen,
	}

	var messageID string
	err := s.retry.rateLimitedOnly().do(ctx, func(ctx context.Context) error {
		var err error
		messageID, err = s.platform.SendAnnouncement(ctx, g.ChannelID, models.NewAnnouncement(g, s.opts.EntryEmoji))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("send announcement: %w", err)
	}
	g.ID = messageID
	log := s.logger.With().Str("giveaway_id", g.ID).Logger()

	if err := s.repo.Create(ctx, g); err != nil {
		return nil, err
	}

	if err := s.platform.AddReaction(ctx, g.ChannelID, g.ID, s.opts.EntryEmoji); err != nil {
		log.Warn().Err(err).Msg("Failed to add entry reaction")
	}

	id := g.ID
	if err := s.scheduler.Schedule(id, g.EndsAt.Sub(s.now()), func() error { return s.conclude(id) }); err != nil {
		s.abortStart(g, err)
		return nil, fmt.Errorf("schedule giveaway end: %w", err)
	}

	log.Info().
		Str("prize", g.Prize).
		Int("winners", g.WinnersCount).
		Time("ends_at", g.EndsAt).
		Msg("Giveaway started")
	s.publish(models.EventGiveawayStarted, g)
	return s.repo.GetByID(ctx, id)
}

// abortStart closes a giveaway whose timer could not be armed.
func (s *giveawayService) abortStart(g *models.Giveaway, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), SideEffectTimeout)
	defer cancel()
	if _, err := s.repo.Transition(ctx, g.ID, models.GiveawayStateOpen, models.GiveawayStateConcluded); err != nil {
		s.logger.Error().Err(err).Str("giveaway_id", g.ID).Msg("Failed to close aborted giveaway")
		return
	}
	outcome := &models.Outcome{RunID: uuid.NewString(), Kind: models.OutcomeCancelled, ConcludedAt: s.now()}
	outcome.AnnouncementUpdated = s.editFinal(ctx, g, outcome) == nil
	if err := s.repo.SetOutcome(ctx, g.ID, outcome); err != nil {
		s.logger.Error().Err(err).Str("giveaway_id", g.ID).Msg("Failed to record aborted outcome")
	}
	s.logger.Error().Err(cause).Str("giveaway_id", g.ID).Msg("Giveaway aborted during start")
}

// Enter registers userID. It reports false when the user had already entered.
func (s *giveawayService) Enter(ctx context.Context, giveawayID, userID string, source models.EntrySource) (bool, error) {
	g, err := s.repo.GetByID(ctx, giveawayID)
	if err != nil {
		return false, err
	}
	if !g.IsOpen(s.now()) {
		// Keep a late reaction out of reconciliation.
		if err := s.repo.Exclude(ctx, giveawayID, userID); err != nil {
			s.logger.Debug().Err(err).Str("giveaway_id", giveawayID).Msg("Late entry not recorded")
		}
		return false, apperrors.NewGiveawayClosedError(giveawayID)
	}
	added, err := s.repo.Register(ctx, giveawayID, userID, source)
	if err != nil {
		return false, err
	}
	if added {
		s.logger.Debug().Str("giveaway_id", giveawayID).Str("user_id", userID).Msg("Entrant registered")
		s.refreshAnnouncement(giveawayID)
	}
	return added, nil
}

// Leave withdraws userID while the giveaway is open. Removing a reaction only
// withdraws entries made by reacting.
func (s *giveawayService) Leave(ctx context.Context, giveawayID, userID string, source models.EntrySource) (bool, error) {
	removed, err := s.repo.Withdraw(ctx, giveawayID, userID, source)
	if err != nil {
		return false, err
	}
	if removed {
		s.logger.Debug().Str("giveaway_id", giveawayID).Str("user_id", userID).Msg("Entrant withdrew")
		s.refreshAnnouncement(giveawayID)
	}
	return removed, nil
}

// Cancel concludes an open giveaway immediately without drawing winners.
// The pending timer becomes a no-op.
func (s *giveawayService) Cancel(ctx context.Context, giveawayID string) (*models.Giveaway, error) {
	if _, err := s.repo.Transition(ctx, giveawayID, models.GiveawayStateOpen, models.GiveawayStateConcluded); err != nil {
		return nil, err
	}
	s.scheduler.Cancel(giveawayID)

	g, err := s.repo.GetByID(ctx, giveawayID)
	if err != nil {
		return nil, err
	}
	outcome := &models.Outcome{
		RunID:        uuid.NewString(),
		Kind:         models.OutcomeCancelled,
		EntrantCount: g.EntrantCount,
		ConcludedAt:  s.now(),
	}
	if err := s.editFinal(ctx, g, outcome); err != nil {
		s.logger.Warn().Err(err).Str("giveaway_id", giveawayID).Msg("Failed to mark announcement cancelled")
	} else {
		outcome.AnnouncementUpdated = true
	}
	if err := s.repo.SetOutcome(ctx, giveawayID, outcome); err != nil {
		return nil, err
	}

	g, err = s.repo.GetByID(ctx, giveawayID)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("giveaway_id", giveawayID).Msg("Giveaway cancelled")
	s.archive(g)
	s.publish(models.EventGiveawayCancelled, g)
	return g, nil
}

func (s *giveawayService) GetByID(ctx context.Context, giveawayID string) (*models.Giveaway, error) {
	g, err := s.repo.GetByID(ctx, giveawayID)
	if err == nil {
		return g, nil
	}
	if s.history != nil && apperrors.HasCode(err, apperrors.ErrCodeGiveawayNotFound) {
		if archived, herr := s.history.GetByID(ctx, giveawayID); herr == nil {
			return archived, nil
		}
	}
	return nil, err
}

func (s *giveawayService) List(ctx context.Context, state models.GiveawayState) ([]*models.Giveaway, error) {
	return s.repo.List(ctx, state)
}

// History returns concluded giveaways, newest first.
func (s *giveawayService) History(ctx context.Context, limit, offset int) ([]*models.Giveaway, error) {
	if s.history != nil {
		return s.history.List(ctx, limit, offset)
	}
	concluded, err := s.repo.List(ctx, models.GiveawayStateConcluded)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(concluded)-1; i < j; i, j = i+1, j-1 {
		concluded[i], concluded[j] = concluded[j], concluded[i]
	}
	if offset >= len(concluded) {
		return []*models.Giveaway{}, nil
	}
	concluded = concluded[offset:]
	if limit > 0 && limit < len(concluded) {
		concluded = concluded[:limit]
	}
	return concluded, nil
}

// Errors exposes failures of timer-driven work: callback errors, aggregated
// provisioning failures and announcement update failures.
func (s *giveawayService) Errors() <-chan error {
	return s.errs
}

// Shutdown cancels pending timers, waits for running conclusions and drops
// pending announcement refreshes.
func (s *giveawayService) Shutdown() {
	s.scheduler.Stop()

	s.refreshMu.Lock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	s.refreshMu.Unlock()
	s.wg.Wait()
}

// conclude runs when the timer fires. It is a no-op unless the giveaway is
// still open, so it performs at most one selection per giveaway.
func (s *giveawayService) conclude(giveawayID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), ConclusionTimeout)
	defer cancel()

	runID := uuid.NewString()
	log := s.logger.With().Str("giveaway_id", giveawayID).Str("run_id", runID).Logger()

	entrants, err := s.repo.Transition(ctx, giveawayID, models.GiveawayStateOpen, models.GiveawayStateSelecting)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeGiveawayClosed) {
			log.Debug().Msg("Timer fired for a giveaway that is no longer open")
			return nil
		}
		return fmt.Errorf("giveaway %s: enter selection: %w", giveawayID, err)
	}
	g, err := s.repo.GetByID(ctx, giveawayID)
	if err != nil {
		return fmt.Errorf("giveaway %s: load: %w", giveawayID, err)
	}

	if s.opts.ReconcileReactions {
		entrants = s.reconcile(ctx, g, entrants, log)
	}

	outcome := &models.Outcome{RunID: runID, EntrantCount: len(entrants)}
	var reportErrs []error

	if len(entrants) == 0 {
		outcome.Kind = models.OutcomeNoParticipants
		log.Info().Msg("Giveaway ended without participants")
	} else {
		drawn, err := SelectWinners(entrants, g.WinnersCount)
		if err != nil {
			outcome.Kind = models.OutcomeFailed
			reportErrs = append(reportErrs, fmt.Errorf("select winners: %w", err))
		} else {
			outcome.Drawn = drawn
			outcome.Winners, outcome.Failures = s.provisionAll(ctx, g, drawn)
			outcome.Kind = models.OutcomeWinners
			if len(outcome.Winners) == 0 {
				outcome.Kind = models.OutcomeFailed
			}
			for _, f := range outcome.Failures {
				log.Warn().Str("winner_id", f.WinnerID).Str("reason", f.Reason).Msg("Winner provisioning failed")
			}
			if len(outcome.Failures) > 0 {
				reportErrs = append(reportErrs, apperrors.New(apperrors.ErrCodeProvisioning,
					fmt.Sprintf("giveaway %s: %d of %d winners could not be provisioned", giveawayID, len(outcome.Failures), len(drawn))).
					WithDetail("failures", outcome.Failures))
			}
		}
	}

	if _, err := s.repo.Transition(ctx, giveawayID, models.GiveawayStateSelecting, models.GiveawayStateConcluded); err != nil {
		return errors.Join(append(reportErrs, fmt.Errorf("giveaway %s: conclude: %w", giveawayID, err))...)
	}
	g.State = models.GiveawayStateConcluded
	outcome.ConcludedAt = s.now()

	if err := s.editFinal(ctx, g, outcome); err != nil {
		log.Error().Err(err).Msg("Failed to update announcement")
		reportErrs = append(reportErrs, fmt.Errorf("giveaway %s: update announcement: %w", giveawayID, err))
		s.sendFallback(ctx, g, outcome, log)
	} else {
		outcome.AnnouncementUpdated = true
	}

	if err := s.repo.SetOutcome(ctx, giveawayID, outcome); err != nil {
		reportErrs = append(reportErrs, fmt.Errorf("giveaway %s: record outcome: %w", giveawayID, err))
	}

	final, err := s.repo.GetByID(ctx, giveawayID)
	if err != nil {
		final = g
		final.Outcome = outcome
	}
	log.Info().
		Str("outcome", string(outcome.Kind)).
		Int("entrants", outcome.EntrantCount).
		Strs("winners", outcome.WinnerIDs()).
		Int("failures", len(outcome.Failures)).
		Msg("Giveaway concluded")
	s.archive(final)
	s.publish(models.EventGiveawayConcluded, final)

	return errors.Join(reportErrs...)
}

// reconcile adds reaction users missing from the registry snapshot. Users the
// registry excluded stay out even if their reaction is still there.
func (s *giveawayService) reconcile(ctx context.Context, g *models.Giveaway, entrants []string, log zerolog.Logger) []string {
	var reacted []string
	err := s.retry.do(ctx, func(ctx context.Context) error {
		var err error
		reacted, err = s.platform.ReactionUsers(ctx, g.ChannelID, g.ID, s.opts.EntryEmoji)
		return err
	})
	if err != nil {
		log.Warn().Err(err).Msg("Reaction reconciliation skipped")
		return entrants
	}
	excluded, err := s.repo.Excluded(ctx, g.ID)
	if err != nil {
		log.Warn().Err(err).Msg("Reaction reconciliation skipped")
		return entrants
	}
	skip := make(map[string]struct{}, len(excluded))
	for _, id := range excluded {
		skip[id] = struct{}{}
	}
	merged := append([]string(nil), entrants...)
	for _, id := range reacted {
		if _, ok := skip[id]; !ok {
			merged = append(merged, id)
		}
	}
	merged = dedupe(merged)
	if extra := len(merged) - len(entrants); extra > 0 {
		log.Info().Int("added", extra).Msg("Reconciled entrants from reactions")
	}
	return merged
}

// provisionAll provisions winners concurrently. Results keep draw order.
func (s *giveawayService) provisionAll(ctx context.Context, g *models.Giveaway, drawn []string) ([]models.ProvisionedChannel, []models.ProvisionFailure) {
	type result struct {
		channel models.ProvisionedChannel
		err     error
	}
	results := make([]result, len(drawn))
	sem := make(chan struct{}, s.opts.ProvisionConcurrency)
	var wg sync.WaitGroup

	for i, winnerID := range drawn {
		wg.Add(1)
		go func(i int, winnerID string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i].err = fmt.Errorf("provisioning panicked: %v", r)
				}
			}()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i].err = ctx.Err()
				return
			}
			results[i].channel, results[i].err = s.provisioner.Provision(ctx, g, winnerID)
		}(i, winnerID)
	}
	wg.Wait()

	winners := make([]models.ProvisionedChannel, 0, len(drawn))
	var failures []models.ProvisionFailure
	for i, r := range results {
		if r.err != nil {
			failures = append(failures, models.ProvisionFailure{WinnerID: drawn[i], Reason: r.err.Error()})
			continue
		}
		winners = append(winners, r.channel)
	}
	return winners, failures
}

// editFinal writes the terminal announcement, retrying transient failures.
func (s *giveawayService) editFinal(ctx context.Context, g *models.Giveaway, outcome *models.Outcome) error {
	mu := s.announcementLock(g.ID)
	mu.Lock()
	defer mu.Unlock()
	defer s.announcementLocks.Delete(g.ID)

	final := g.Clone()
	final.State = models.GiveawayStateConcluded
	final.Outcome = outcome
	ann := models.NewAnnouncement(final, s.opts.EntryEmoji)
	return s.retry.do(ctx, func(ctx context.Context) error {
		return s.platform.EditAnnouncement(ctx, g.ChannelID, g.ID, ann)
	})
}

// refreshAnnouncement schedules a participant-count update. Requests made
// while one is pending are folded into a single edit.
func (s *giveawayService) refreshAnnouncement(giveawayID string) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	if s.closed {
		return
	}
	if _, running := s.refreshing[giveawayID]; running {
		s.refreshing[giveawayID] = true
		return
	}
	s.refreshing[giveawayID] = false
	s.wg.Add(1)
	go s.runRefresh(giveawayID)
}

func (s *giveawayService) runRefresh(giveawayID string) {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case <-time.After(s.opts.RefreshDelay):
		}
		s.refreshOnce(giveawayID)

		s.refreshMu.Lock()
		if s.refreshing[giveawayID] {
			s.refreshing[giveawayID] = false
			s.refreshMu.Unlock()
			continue
		}
		delete(s.refreshing, giveawayID)
		s.refreshMu.Unlock()
		return
	}
}

func (s *giveawayService) refreshOnce(giveawayID string) {
	ctx, cancel := context.WithTimeout(context.Background(), SideEffectTimeout)
	defer cancel()

	mu := s.announcementLock(giveawayID)
	mu.Lock()
	defer mu.Unlock()

	g, err := s.repo.GetByID(ctx, giveawayID)
	if err != nil || g.State != models.GiveawayStateOpen {
		return
	}
	if err := s.platform.EditAnnouncement(ctx, g.ChannelID, g.ID, models.NewAnnouncement(g, s.opts.EntryEmoji)); err != nil {
		s.logger.Debug().Err(err).Str("giveaway_id", giveawayID).Msg("Failed to refresh announcement")
	}
}

func (s *giveawayService) announcementLock(giveawayID string) *sync.Mutex {
	mu, _ := s.announcementLocks.LoadOrStore(giveawayID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// sendFallback posts the result as a new message when the announcement
// itself could not be edited.
func (s *giveawayService) sendFallback(ctx context.Context, g *models.Giveaway, outcome *models.Outcome, log zerolog.Logger) {
	text := FallbackText(g, outcome)
	if err := s.platform.SendMessage(ctx, g.ChannelID, text); err != nil {
		log.Error().Err(err).Msg("Error sending fallback message")
	}
}

func (s *giveawayService) archive(g *models.Giveaway) {
	if s.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), SideEffectTimeout)
	defer cancel()
	if err := s.history.Save(ctx, g); err != nil {
		s.logger.Error().Err(err).Str("giveaway_id", g.ID).Msg("Failed to archive giveaway")
	}
}

func (s *giveawayService) publish(t models.EventType, g *models.Giveaway) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), SideEffectTimeout)
	defer cancel()
	if err := s.events.Publish(ctx, models.NewEvent(t, g, s.now())); err != nil {
		s.logger.Warn().Err(err).Str("giveaway_id", g.ID).Str("event", string(t)).Msg("Failed to publish event")
	}
}

func (s *giveawayService) reportError(giveawayID string, err error) {
	s.logger.Error().Err(err).Str("giveaway_id", giveawayID).Msg("Giveaway timer task failed")
	select {
	case s.errs <- err:
	default:
		s.logger.Warn().Str("giveaway_id", giveawayID).Msg("Error sink full, dropping error")
	}
}
