package playerstate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mcoot/lanequeue/internal/dependencies/clock"
	"github.com/mcoot/lanequeue/internal/metrics"
	"github.com/mcoot/lanequeue/internal/model"
	"github.com/mcoot/lanequeue/internal/storage"
)

// Config holds configuration for the registry
type Config struct {
	// StateTTL bounds how long a cached state survives without being rewritten
	StateTTL time.Duration
	// ClaimTTL is how long a processing claim can back an unpersisted
	// IN_MATCH_PENDING. It matches the processing lock TTL.
	ClaimTTL time.Duration
}

// DefaultConfig returns default registry configuration
func DefaultConfig() Config {
	return Config{
		StateTTL: 2 * time.Hour,
		ClaimTTL: 10 * time.Second,
	}
}

// Service is the Player State Registry. The cache holds each participant's
// lifecycle state; the queue and match stores decide what it should be.
type Service struct {
	cache    storage.Cache
	queue    storage.QueueStore
	matches  storage.MatchStore
	metrics  metrics.QueueMetrics
	clock    clock.Clock
	ttl      time.Duration
	claimTTL time.Duration
	logger   *slog.Logger
}

// New creates a new player state registry
func New(
	cache storage.Cache,
	queue storage.QueueStore,
	matches storage.MatchStore,
	m metrics.QueueMetrics,
	clk clock.Clock,
	cfg Config,
	logger *slog.Logger,
) *Service {
	defaults := DefaultConfig()
	if cfg.StateTTL == 0 {
		cfg.StateTTL = defaults.StateTTL
	}
	if cfg.ClaimTTL == 0 {
		cfg.ClaimTTL = defaults.ClaimTTL
	}
	return &Service{
		cache:    cache,
		queue:    queue,
		matches:  matches,
		metrics:  m,
		clock:    clk,
		ttl:      cfg.StateTTL,
		claimTTL: cfg.ClaimTTL,
		logger:   logger.With(slog.String("component", "playerstate")),
	}
}

// truth is what the authoritative stores say about a participant
type truth struct {
	state   model.PlayerState
	matchID model.MatchID
	// forming is set while the participant's queue row carries a fresh
	// processing claim and no match has been persisted yet
	forming bool
}

// GetState returns the participant's lifecycle state, correcting the cached
// value first if it contradicts the queue or match store.
func (s *Service) GetState(ctx context.Context, id model.ParticipantID) (model.PlayerState, error) {
	cached, err := s.cache.GetPlayerState(ctx, id)
	if err != nil && !errors.Is(err, model.ErrNotCached) {
		return "", err
	}
	missing := errors.Is(err, model.ErrNotCached)

	t, err := s.authoritative(ctx, id)
	if err != nil {
		return "", err
	}

	switch {
	case !missing && cached == t.state:
		return cached, nil
	case !missing && t.forming && cached == model.StateInMatchPending:
		// Selected by an in-flight pass that has not persisted its match yet
		return cached, nil
	case missing:
		if err := s.cache.SetPlayerState(ctx, id, t.state, s.ttl); err != nil {
			return "", err
		}
		return t.state, nil
	}

	// Ghost: the cache is wrong, the stores are right
	if err := s.cache.SetPlayerState(ctx, id, t.state, s.ttl); err != nil {
		return "", err
	}
	s.metrics.AddGhostCorrection(metrics.CorrectionState)
	s.logger.Warn("ghost state corrected",
		slog.String("participant_id", string(id)),
		slog.String("from", string(cached)),
		slog.String("to", string(t.state)),
		slog.String("match_id", string(t.matchID)),
	)
	return t.state, nil
}

func (s *Service) authoritative(ctx context.Context, id model.ParticipantID) (truth, error) {
	match, err := s.matches.FindActiveForParticipant(ctx, id)
	switch {
	case err == nil:
		if state, ok := model.StateForMatchStatus(match.Status); ok {
			return truth{state: state, matchID: match.ID}, nil
		}
	case !errors.Is(err, model.ErrMatchNotFound):
		return truth{}, err
	}

	row, err := s.queue.Get(ctx, id)
	switch {
	case err == nil:
		forming := row.Status == model.ProcessingActive && !row.ClaimStale(s.clock.Now(), s.claimTTL)
		return truth{state: model.StateInQueue, forming: forming}, nil
	case errors.Is(err, model.ErrParticipantNotFound):
		return truth{state: model.StateAvailable}, nil
	default:
		return truth{}, err
	}
}

// SetState moves the participant from its reconciled current state to next.
// Transitions not in the lifecycle table are rejected with model.ErrInvalidTransition.
func (s *Service) SetState(ctx context.Context, id model.ParticipantID, next model.PlayerState) error {
	current, err := s.GetState(ctx, id)
	if err != nil {
		return err
	}
	return s.Transition(ctx, id, current, next)
}

// Transition moves the participant from exactly `from` to `to`. It fails with
// model.ErrStateConflict if the cached state is no longer `from`.
func (s *Service) Transition(ctx context.Context, id model.ParticipantID, from, to model.PlayerState) error {
	if !to.Valid() {
		return model.ErrInvalidState
	}
	if !from.CanTransitionTo(to) {
		return model.ErrInvalidTransition
	}

	ok, err := s.cache.CompareAndSetPlayerState(ctx, id, from, to, s.ttl)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrStateConflict
	}
	return nil
}

// ForceSetState overwrites the cached state unconditionally.
// Only reconciliation and rollback paths may use it.
func (s *Service) ForceSetState(ctx context.Context, id model.ParticipantID, state model.PlayerState) error {
	if !state.Valid() {
		return model.ErrInvalidState
	}
	return s.cache.SetPlayerState(ctx, id, state, s.ttl)
}

// CanJoinQueue reports whether the participant's reconciled state is AVAILABLE
func (s *Service) CanJoinQueue(ctx context.Context, id model.ParticipantID) (bool, error) {
	state, err := s.GetState(ctx, id)
	if err != nil {
		return false, err
	}
	return state == model.StateAvailable, nil
}
