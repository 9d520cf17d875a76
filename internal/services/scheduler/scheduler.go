package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/mcoot/lanequeue/internal/dependencies/clock"
	"github.com/mcoot/lanequeue/internal/metrics"
	"github.com/mcoot/lanequeue/internal/model"
	"github.com/mcoot/lanequeue/internal/services/balance"
	"github.com/mcoot/lanequeue/internal/services/lock"
	"github.com/mcoot/lanequeue/internal/services/matchmaking"
	"github.com/mcoot/lanequeue/internal/storage"
)

// Outcome describes how a processing pass ended
type Outcome string

const (
	OutcomeSkippedIdle   Outcome = metrics.OutcomeSkippedIdle
	OutcomeLockHeld      Outcome = metrics.OutcomeLockHeld
	OutcomeInsufficient  Outcome = metrics.OutcomeInsufficient
	OutcomeClaimConflict Outcome = metrics.OutcomeClaimConflict
	OutcomeBalanceFailed Outcome = metrics.OutcomeBalanceFailed
	OutcomeAborted       Outcome = metrics.OutcomeAborted
	OutcomeFailed        Outcome = metrics.OutcomeFailed
	OutcomeCreated       Outcome = metrics.OutcomeCreated
)

// Result summarises one RunOnce call
type Result struct {
	// Outcome is how the last formation attempt of the pass ended
	Outcome Outcome
	Matches []*model.Match
}

// Presence is the "any clients connected" signal
type Presence interface {
	ConnectedCount(ctx context.Context) (int, error)
}

// Config holds configuration for the scheduler
type Config struct {
	Interval          time.Duration
	MaxMatchesPerPass int
	SkipIdleCheck     bool
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() Config {
	return Config{
		Interval:          5 * time.Second,
		MaxMatchesPerPass: 1,
	}
}

// Scheduler runs queue processing passes, periodically and on demand.
// Every pass goes through RunOnce.
type Scheduler struct {
	lock     *lock.Lock
	queue    storage.QueueStore
	balance  balance.Func
	protocol *matchmaking.Protocol
	presence Presence
	metrics  metrics.QueueMetrics
	clock    clock.Clock
	cfg      Config
	logger   *slog.Logger

	mu   sync.Mutex
	cron gocron.Scheduler
	job  gocron.Job
}

// New creates a new scheduler
func New(
	l *lock.Lock,
	queue storage.QueueStore,
	protocol *matchmaking.Protocol,
	presence Presence,
	m metrics.QueueMetrics,
	clk clock.Clock,
	cfg Config,
	logger *slog.Logger,
) *Scheduler {
	defaults := DefaultConfig()
	if cfg.Interval == 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.MaxMatchesPerPass == 0 {
		cfg.MaxMatchesPerPass = defaults.MaxMatchesPerPass
	}
	return &Scheduler{
		lock:     l,
		queue:    queue,
		balance:  balance.Balance,
		protocol: protocol,
		presence: presence,
		metrics:  m,
		clock:    clk,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "scheduler")),
	}
}

// WithBalancer replaces the balancer, for tests
func (s *Scheduler) WithBalancer(fn balance.Func) *Scheduler {
	s.balance = fn
	return s
}

// RunOnce performs one processing pass. It never blocks on the lock: if
// another pass holds it, RunOnce returns OutcomeLockHeld immediately.
func (s *Scheduler) RunOnce(ctx context.Context) (result Result, err error) {
	start := s.clock.Now()
	defer func() {
		s.metrics.AddPass(string(result.Outcome), s.clock.Since(start))
	}()

	if !s.cfg.SkipIdleCheck {
		connected, err := s.presence.ConnectedCount(ctx)
		if err != nil {
			return Result{Outcome: OutcomeFailed}, err
		}
		if connected == 0 {
			return Result{Outcome: OutcomeSkippedIdle}, nil
		}
	}

	acquired, err := s.lock.Acquire(ctx)
	if err != nil {
		return Result{Outcome: OutcomeFailed}, err
	}
	if !acquired {
		return Result{Outcome: OutcomeLockHeld}, nil
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Error("failed to release lock", slog.String("error", err.Error()))
		}
	}()

	if err := s.recoverStale(ctx); err != nil {
		return Result{Outcome: OutcomeFailed}, err
	}

	for i := 0; i < s.cfg.MaxMatchesPerPass; i++ {
		outcome, match, err := s.formOne(ctx)
		result.Outcome = outcome
		if match != nil {
			result.Matches = append(result.Matches, match)
		}
		if err != nil {
			return result, err
		}
		if outcome != OutcomeCreated {
			break
		}
	}
	return result, nil
}

// recoverStale settles claims older than the lock TTL. Holding the lock means
// whichever pass made them has lost it.
func (s *Scheduler) recoverStale(ctx context.Context) error {
	stale, err := s.queue.ListStaleClaims(ctx, s.clock.Now().Add(-s.lock.TTL()))
	if err != nil || len(stale) == 0 {
		return err
	}
	for range stale {
		s.metrics.AddGhostCorrection(metrics.CorrectionClaim)
	}
	return s.protocol.Recover(ctx, stale)
}

// formOne selects, balances and creates a single match
func (s *Scheduler) formOne(ctx context.Context) (Outcome, *model.Match, error) {
	eligible, err := s.queue.ListEligible(ctx)
	if err != nil {
		return OutcomeFailed, nil, err
	}
	s.metrics.SetQueueSize(len(eligible))
	if len(eligible) < model.MatchSize {
		return OutcomeInsufficient, nil, nil
	}

	selected := eligible[:model.MatchSize]
	ids := model.ParticipantIDs(selected)
	if err := s.queue.MarkProcessing(ctx, ids, s.clock.Now()); err != nil {
		if errors.Is(err, model.ErrQueueConflict) {
			s.logger.Warn("selection claimed concurrently")
			return OutcomeClaimConflict, nil, nil
		}
		return OutcomeFailed, nil, err
	}

	teams, err := s.balance(selected)
	if err != nil {
		s.logger.Warn("balance failed", slog.String("error", err.Error()))
		s.revert(ctx, ids)
		return OutcomeBalanceFailed, nil, nil
	}

	match, err := s.protocol.Create(ctx, selected, teams)
	if err != nil {
		s.revert(ctx, ids)
		var abort *matchmaking.AbortError
		if errors.As(err, &abort) {
			return OutcomeAborted, nil, nil
		}
		return OutcomeFailed, nil, err
	}

	s.metrics.AddMatchCreated()
	return OutcomeCreated, match, nil
}

func (s *Scheduler) revert(ctx context.Context, ids []model.ParticipantID) {
	if err := s.queue.RevertProcessing(context.WithoutCancel(ctx), ids); err != nil {
		s.logger.Error("failed to revert processing marker",
			slog.Int("count", len(ids)),
			slog.String("error", err.Error()),
		)
	}
}

// Start begins periodic passes
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	cron, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	job, err := cron.NewJob(
		gocron.DurationJob(s.cfg.Interval),
		gocron.NewTask(s.tick),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = cron.Shutdown()
		return err
	}
	cron.Start()

	s.cron, s.job = cron, job
	s.logger.Info("scheduler started", slog.Duration("interval", s.cfg.Interval))
	return nil
}

// Stop waits for a running pass to finish and stops periodic passes
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return nil
	}
	err := s.cron.Shutdown()
	s.cron, s.job = nil, nil
	s.logger.Info("scheduler stopped")
	return err
}

// Trigger requests an immediate pass, for when the queue has just reached
// match size. It runs on the periodic job so the two never overlap locally.
func (s *Scheduler) Trigger() {
	s.mu.Lock()
	job := s.job
	s.mu.Unlock()

	if job == nil {
		go s.tick()
		return
	}
	if err := job.RunNow(); err != nil {
		s.logger.Warn("fast path trigger failed", slog.String("error", err.Error()))
	}
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.lock.TTL())
	defer cancel()

	result, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.Error("processing pass failed",
			slog.String("outcome", string(result.Outcome)),
			slog.String("error", err.Error()),
		)
		return
	}
	if result.Outcome != OutcomeSkippedIdle && result.Outcome != OutcomeLockHeld {
		s.logger.Debug("processing pass finished",
			slog.String("outcome", string(result.Outcome)),
			slog.Int("count", len(result.Matches)),
		)
	}
}
