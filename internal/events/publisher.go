package events

import (
	"context"

	"github.com/mcoot/lanequeue/internal/model"
)

// Publisher announces matchmaking events to connected clients
type Publisher interface {
	// PublishMatchFormed notifies exactly the given participants, once each
	PublishMatchFormed(ctx context.Context, matchID model.MatchID, participants []model.ParticipantID) error
	// PublishMatchCancelled tells the same participants that an announced match was withdrawn
	PublishMatchCancelled(ctx context.Context, matchID model.MatchID, participants []model.ParticipantID) error
	// PublishQueueChanged notifies queue watchers that membership changed
	PublishQueueChanged(ctx context.Context) error
}
