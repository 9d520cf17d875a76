package events

import (
	"context"
	"sync"

	"github.com/mcoot/lanequeue/internal/dependencies/clock"
	"github.com/mcoot/lanequeue/internal/model"
)

// Recorder keeps published events in memory. Used in single-instance mode and tests.
type Recorder struct {
	mu     sync.Mutex
	clock  clock.Clock
	events []model.Event
	// FailWith, when set, is returned by the next publish call and then cleared
	FailWith error
	// Limit keeps only the most recent events when positive
	Limit int
}

// NewRecorder creates an empty recorder
func NewRecorder(clk clock.Clock) *Recorder {
	return &Recorder{clock: clk}
}

// Ensure Recorder implements the interface
var _ Publisher = (*Recorder)(nil)

func (r *Recorder) PublishMatchFormed(ctx context.Context, matchID model.MatchID, participants []model.ParticipantID) error {
	return r.publishToPlayers(model.EventMatchFormed, matchID, participants)
}

func (r *Recorder) PublishMatchCancelled(ctx context.Context, matchID model.MatchID, participants []model.ParticipantID) error {
	return r.publishToPlayers(model.EventMatchCancelled, matchID, participants)
}

func (r *Recorder) publishToPlayers(t model.EventType, matchID model.MatchID, participants []model.ParticipantID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure(); err != nil {
		return err
	}
	now := r.clock.Now()
	for _, id := range participants {
		r.record(model.Event{
			Type:      t,
			Timestamp: now,
			MatchID:   matchID,
			Recipient: id,
			Players:   append([]model.ParticipantID(nil), participants...),
		})
	}
	return nil
}

func (r *Recorder) PublishQueueChanged(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure(); err != nil {
		return err
	}
	r.record(model.Event{Type: model.EventQueueChanged, Timestamp: r.clock.Now()})
	return nil
}

func (r *Recorder) record(e model.Event) {
	r.events = append(r.events, e)
	if r.Limit > 0 && len(r.events) > r.Limit {
		r.events = append(r.events[:0:0], r.events[len(r.events)-r.Limit:]...)
	}
}

func (r *Recorder) takeFailure() error {
	err := r.FailWith
	r.FailWith = nil
	return err
}

// Events returns a copy of everything published so far
func (r *Recorder) Events() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Event(nil), r.events...)
}

// OfType returns the published events of type t
func (r *Recorder) OfType(t model.EventType) []model.Event {
	var out []model.Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Reset discards recorded events
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
