package ownership

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mcoot/lanequeue/internal/metrics"
	"github.com/mcoot/lanequeue/internal/model"
	"github.com/mcoot/lanequeue/internal/storage"
)

// Config holds configuration for the ownership registry
type Config struct {
	OwnershipTTL time.Duration
}

// DefaultConfig returns default ownership configuration
func DefaultConfig() Config {
	return Config{
		OwnershipTTL: 3 * time.Hour,
	}
}

// Service maps participants to the match that currently holds them
type Service struct {
	cache   storage.Cache
	matches storage.MatchStore
	metrics metrics.QueueMetrics
	ttl     time.Duration
	logger  *slog.Logger
}

// New creates a new ownership registry
func New(cache storage.Cache, matches storage.MatchStore, m metrics.QueueMetrics, cfg Config, logger *slog.Logger) *Service {
	if cfg.OwnershipTTL == 0 {
		cfg.OwnershipTTL = DefaultConfig().OwnershipTTL
	}
	return &Service{
		cache:   cache,
		matches: matches,
		metrics: m,
		ttl:     cfg.OwnershipTTL,
		logger:  logger.With(slog.String("component", "ownership")),
	}
}

// Register records that the participant belongs to matchID, replacing any previous record
func (s *Service) Register(ctx context.Context, id model.ParticipantID, matchID model.MatchID) error {
	return s.cache.SetOwnership(ctx, id, matchID, s.ttl)
}

// GetCurrent returns the cached owner of the participant, if any
func (s *Service) GetCurrent(ctx context.Context, id model.ParticipantID) (model.MatchID, bool, error) {
	matchID, err := s.cache.GetOwnership(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotCached) {
			return "", false, nil
		}
		return "", false, err
	}
	return matchID, true, nil
}

// Clear removes the participant's ownership record. It is refused with
// model.ErrOwnershipActive while the referenced match has not ended.
func (s *Service) Clear(ctx context.Context, id model.ParticipantID) error {
	matchID, ok, err := s.GetCurrent(ctx, id)
	if err != nil || !ok {
		return err
	}

	live, err := s.holds(ctx, matchID, id)
	if err != nil {
		return err
	}
	if live {
		s.logger.Warn("refused to clear ownership of live match",
			slog.String("participant_id", string(id)),
			slog.String("match_id", string(matchID)),
		)
		return model.ErrOwnershipActive
	}
	return s.cache.DeleteOwnership(ctx, id)
}

// Reconcile brings the participant's ownership record in line with the match
// store and returns the match that holds the participant, if any. A record for
// a live match has its expiry extended; a record for an ended or unknown match
// is dropped; a missing record for an active match is re-established.
func (s *Service) Reconcile(ctx context.Context, id model.ParticipantID) (model.MatchID, bool, error) {
	matchID, ok, err := s.GetCurrent(ctx, id)
	if err != nil {
		return "", false, err
	}

	if ok {
		live, err := s.holds(ctx, matchID, id)
		if err != nil {
			return "", false, err
		}
		if live {
			return matchID, true, s.Register(ctx, id, matchID)
		}
		if err := s.cache.DeleteOwnership(ctx, id); err != nil {
			return "", false, err
		}
		s.corrected(id, matchID, "")
	}

	match, err := s.matches.FindActiveForParticipant(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrMatchNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	if err := s.Register(ctx, id, match.ID); err != nil {
		return "", false, err
	}
	s.corrected(id, matchID, match.ID)
	return match.ID, true, nil
}

// holds reports whether matchID exists, has not ended and still lists the participant
func (s *Service) holds(ctx context.Context, matchID model.MatchID, id model.ParticipantID) (bool, error) {
	match, err := s.matches.FindByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, model.ErrMatchNotFound) {
			return false, nil
		}
		return false, err
	}
	return !match.Status.IsTerminal() && match.Includes(id), nil
}

func (s *Service) corrected(id model.ParticipantID, from, to model.MatchID) {
	s.metrics.AddGhostCorrection(metrics.CorrectionOwnership)
	s.logger.Warn("ghost ownership corrected",
		slog.String("participant_id", string(id)),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
	)
}
