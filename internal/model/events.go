package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	EventMatchFormed    EventType = "match_formed"
	EventMatchCancelled EventType = "match_cancelled"
	EventQueueChanged   EventType = "queue_changed"
)

// Event is the envelope published to connected clients
type Event struct {
	Type      EventType
	Timestamp time.Time
	MatchID   MatchID         `json:",omitempty"`
	Recipient ParticipantID   `json:",omitempty"` // empty for queue-wide events
	Players   []ParticipantID `json:",omitempty"`
}
