package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/lanequeue/internal/dependencies/random"
	"github.com/mcoot/lanequeue/internal/model"
	"github.com/mcoot/lanequeue/internal/services/queue"
)

const (
	// IDAlphabet is the character set for generated bot ids
	IDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	// IDLength is the length of the random part of a bot id
	IDLength = 12
	// MaxBotsPerRequest caps AddBots
	MaxBotsPerRequest = 2 * model.MatchSize

	// StrategyRandom is the default strategy name
	StrategyRandom = "random"
)

var (
	ErrUnknownStrategy = errors.New("unknown bot strategy")
	ErrInvalidCount    = fmt.Errorf("bot count must be between 1 and %d", MaxBotsPerRequest)
)

// Service queues simulated participants, for filling a quiet queue and for load testing
type Service struct {
	queue      *queue.Service
	strategies map[string]Strategy
	random     random.Random
	logger     *slog.Logger
}

// NewService creates a new bot Service
func NewService(queueService *queue.Service, strategies map[string]Strategy, rnd random.Random, logger *slog.Logger) *Service {
	return &Service{
		queue:      queueService,
		strategies: strategies,
		random:     rnd,
		logger:     logger.With(slog.String("component", "bot-service")),
	}
}

// AddBots queues count simulated participants using the named strategy.
// Bots queued before a failure stay queued and are returned with the error.
func (s *Service) AddBots(ctx context.Context, count int, strategy string) ([]*model.QueuedParticipant, error) {
	if strategy == "" {
		strategy = StrategyRandom
	}
	strat, ok := s.strategies[strategy]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, strategy)
	}
	if count < 1 || count > MaxBotsPerRequest {
		return nil, ErrInvalidCount
	}

	added := make([]*model.QueuedParticipant, 0, count)
	for i := 0; i < count; i++ {
		suffix := s.random.String(IDLength, IDAlphabet)
		primary, secondary := strat.ChooseLanes()

		p, err := s.queue.Join(ctx, queue.JoinRequest{
			ID:            model.ParticipantID(model.BotPrefix + suffix),
			DisplayName:   "Bot " + suffix[:min(4, len(suffix))],
			Rating:        strat.ChooseRating(),
			PrimaryLane:   primary,
			SecondaryLane: secondary,
			IsBot:         true,
		})
		if err != nil {
			return added, err
		}
		added = append(added, p)
	}

	s.logger.Info("bots queued",
		slog.Int("count", len(added)),
		slog.String("strategy", strategy),
	)
	return added, nil
}
