package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/lanequeue/internal/dependencies/clock"
	"github.com/mcoot/lanequeue/internal/events"
	"github.com/mcoot/lanequeue/internal/model"
	redisstorage "github.com/mcoot/lanequeue/internal/storage/redis"
)

// HubPublisher delivers events straight to the clients on this instance
type HubPublisher struct {
	hub   *Hub
	clock clock.Clock
}

// NewHubPublisher creates a publisher writing to the given hub
func NewHubPublisher(hub *Hub, clk clock.Clock) *HubPublisher {
	return &HubPublisher{hub: hub, clock: clk}
}

var _ events.Publisher = (*HubPublisher)(nil)

func (p *HubPublisher) PublishMatchFormed(_ context.Context, matchID model.MatchID, participants []model.ParticipantID) error {
	return p.toPlayers(model.EventMatchFormed, matchID, participants)
}

func (p *HubPublisher) PublishMatchCancelled(_ context.Context, matchID model.MatchID, participants []model.ParticipantID) error {
	return p.toPlayers(model.EventMatchCancelled, matchID, participants)
}

func (p *HubPublisher) toPlayers(t model.EventType, matchID model.MatchID, participants []model.ParticipantID) error {
	now := p.clock.Now()
	for _, id := range participants {
		if err := p.deliver(model.Event{
			Type:      t,
			Timestamp: now,
			MatchID:   matchID,
			Recipient: id,
			Players:   participants,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (p *HubPublisher) PublishQueueChanged(_ context.Context) error {
	return p.deliver(model.Event{Type: model.EventQueueChanged, Timestamp: p.clock.Now()})
}

func (p *HubPublisher) deliver(event model.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	dispatch(p.hub, event, string(payload))
	return nil
}

func dispatch(hub *Hub, event model.Event, payload string) {
	if event.Recipient == "" {
		hub.Broadcast(string(event.Type), payload)
		return
	}
	hub.Send(event.Recipient, string(event.Type), payload)
}

// Relay forwards events published over Redis by any instance to the clients
// connected to this one
type Relay struct {
	client *redis.Client
	hub    *Hub
	logger *slog.Logger
}

// NewRelay creates a relay from Redis pub/sub into the hub
func NewRelay(client *redis.Client, hub *Hub, logger *slog.Logger) *Relay {
	return &Relay{
		client: client,
		hub:    hub,
		logger: logger.With(slog.String("component", "stream-relay")),
	}
}

// Subscribe registers the relay's subscriptions and returns once Redis has
// confirmed them. Run then forwards messages until ctx is done.
func (r *Relay) Subscribe(ctx context.Context) (*redis.PubSub, error) {
	sub := r.client.PSubscribe(ctx, redisstorage.PlayerChannel("*"), redisstorage.QueueChannel())
	// One confirmation per pattern
	for range 2 {
		if _, err := sub.Receive(ctx); err != nil {
			_ = sub.Close()
			return nil, err
		}
	}
	return sub, nil
}

// Run forwards messages from the subscription until ctx is done or it closes
func (r *Relay) Run(ctx context.Context, sub *redis.PubSub) {
	defer func() { _ = sub.Close() }()
	ch := sub.Channel()
	prefix := redisstorage.PlayerChannel("")
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event model.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.logger.Warn("discarding malformed event",
					slog.String("channel", msg.Channel),
					slog.String("error", err.Error()))
				continue
			}
			if strings.HasPrefix(msg.Channel, prefix) {
				event.Recipient = model.ParticipantID(strings.TrimPrefix(msg.Channel, prefix))
			}
			dispatch(r.hub, event, msg.Payload)
		}
	}
}
