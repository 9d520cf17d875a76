package acceptance

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/lanequeue/internal/dependencies/clock"
	"github.com/mcoot/lanequeue/internal/model"
)

// Pending is a ready-check waiting on the match's participants
type Pending struct {
	MatchID  model.MatchID
	TeamA    []model.ParticipantID
	TeamB    []model.ParticipantID
	Deadline time.Time
}

// Service hands formed matches to the acceptance workflow. The workflow
// itself runs elsewhere; this records what was handed over.
type Service struct {
	clock   clock.Clock
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.RWMutex
	pending map[model.MatchID]Pending
}

// New creates an acceptance hand-off with the given ready-check timeout
func New(clk clock.Clock, timeout time.Duration, logger *slog.Logger) *Service {
	return &Service{
		clock:   clk,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "acceptance")),
		pending: make(map[model.MatchID]Pending),
	}
}

// BeginAcceptance records the ready-check for match
func (s *Service) BeginAcceptance(ctx context.Context, match *model.Match, teamA, teamB model.Roster) error {
	p := Pending{
		MatchID:  match.ID,
		TeamA:    teamA.ParticipantIDs(),
		TeamB:    teamB.ParticipantIDs(),
		Deadline: s.clock.Now().Add(s.timeout),
	}

	s.mu.Lock()
	s.pending[match.ID] = p
	s.mu.Unlock()

	s.logger.Info("acceptance started",
		slog.String("match_id", string(match.ID)),
		slog.Any("team_a", p.TeamA),
		slog.Any("team_b", p.TeamB),
		slog.Time("deadline", p.Deadline),
	)
	return nil
}

// Get returns the recorded ready-check for matchID
func (s *Service) Get(matchID model.MatchID) (Pending, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pending[matchID]
	return p, ok
}
