package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/lanequeue/internal/dependencies/clock"
	"github.com/mcoot/lanequeue/internal/model"
	redisstorage "github.com/mcoot/lanequeue/internal/storage/redis"
)

// RedisPublisher fans events out over Redis pub/sub so every instance can
// forward them to its own connected clients
type RedisPublisher struct {
	client *redis.Client
	clock  clock.Clock
	logger *slog.Logger
}

// NewRedisPublisher creates a publisher over an existing client
func NewRedisPublisher(client *redis.Client, clk clock.Clock, logger *slog.Logger) *RedisPublisher {
	return &RedisPublisher{
		client: client,
		clock:  clk,
		logger: logger.With(slog.String("component", "events")),
	}
}

// Ensure RedisPublisher implements the interface
var _ Publisher = (*RedisPublisher)(nil)

func (p *RedisPublisher) PublishMatchFormed(ctx context.Context, matchID model.MatchID, participants []model.ParticipantID) error {
	return p.publishToPlayers(ctx, model.EventMatchFormed, matchID, participants)
}

func (p *RedisPublisher) PublishMatchCancelled(ctx context.Context, matchID model.MatchID, participants []model.ParticipantID) error {
	return p.publishToPlayers(ctx, model.EventMatchCancelled, matchID, participants)
}

func (p *RedisPublisher) publishToPlayers(ctx context.Context, t model.EventType, matchID model.MatchID, participants []model.ParticipantID) error {
	now := p.clock.Now()

	pipe := p.client.Pipeline()
	for _, id := range participants {
		payload, err := json.Marshal(model.Event{
			Type:      t,
			Timestamp: now,
			MatchID:   matchID,
			Recipient: id,
			Players:   participants,
		})
		if err != nil {
			return err
		}
		pipe.Publish(ctx, redisstorage.PlayerChannel(id), payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish %s: %w", t, err)
	}

	p.logger.Debug("match event published",
		slog.String("type", string(t)),
		slog.String("match_id", string(matchID)),
		slog.Int("count", len(participants)),
	)
	return nil
}

func (p *RedisPublisher) PublishQueueChanged(ctx context.Context) error {
	payload, err := json.Marshal(model.Event{
		Type:      model.EventQueueChanged,
		Timestamp: p.clock.Now(),
	})
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, redisstorage.QueueChannel(), payload).Err()
}
