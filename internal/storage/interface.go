package storage

import (
	"context"
	"time"

	"github.com/mcoot/lanequeue/internal/model"
)

// QueueStore is the authoritative ordered collection of waiting participants
type QueueStore interface {
	// Add inserts a participant. Returns model.ErrAlreadyQueued if present.
	Add(ctx context.Context, p *model.QueuedParticipant) error
	Get(ctx context.Context, id model.ParticipantID) (*model.QueuedParticipant, error)
	// List returns every queued participant ordered by join time, with positions.
	List(ctx context.Context) ([]model.QueuedParticipant, error)
	// ListEligible returns available (not being processed) participants ordered by join time.
	ListEligible(ctx context.Context) ([]model.QueuedParticipant, error)
	CountEligible(ctx context.Context) (int, error)

	// MarkProcessing flips every id from available to processing, stamping
	// the claim with at, or none of them (model.ErrQueueConflict). The change
	// is durable when it returns.
	MarkProcessing(ctx context.Context, ids []model.ParticipantID, at time.Time) error
	// RevertProcessing returns processing rows to available. Missing ids are ignored.
	RevertProcessing(ctx context.Context, ids []model.ParticipantID) error
	// ListStaleClaims returns processing rows claimed before the cutoff, ordered by join time.
	ListStaleClaims(ctx context.Context, before time.Time) ([]model.QueuedParticipant, error)

	// Remove deletes one participant. Returns model.ErrParticipantNotFound if absent.
	Remove(ctx context.Context, id model.ParticipantID) error
	// RemoveAll deletes the given participants, ignoring missing ones.
	RemoveAll(ctx context.Context, ids []model.ParticipantID) error
	IsActiveMember(ctx context.Context, id model.ParticipantID) (bool, error)
}

// MatchStore is the authoritative record of matches
type MatchStore interface {
	Save(ctx context.Context, match *model.Match) error
	FindByID(ctx context.Context, id model.MatchID) (*model.Match, error)
	// FindActiveForParticipant returns the active match holding id, or model.ErrMatchNotFound.
	FindActiveForParticipant(ctx context.Context, id model.ParticipantID) (*model.Match, error)
	UpdateStatus(ctx context.Context, id model.MatchID, status model.MatchStatus) error
}

// Cache is the fast expiring key/value layer. Every value in it is advisory.
type Cache interface {
	// Player lifecycle state. GetPlayerState returns model.ErrNotCached when absent.
	GetPlayerState(ctx context.Context, id model.ParticipantID) (model.PlayerState, error)
	SetPlayerState(ctx context.Context, id model.ParticipantID, state model.PlayerState, ttl time.Duration) error
	// CompareAndSetPlayerState writes next only if the cached state equals
	// expected. An absent entry compares equal to model.StateAvailable.
	CompareAndSetPlayerState(ctx context.Context, id model.ParticipantID, expected, next model.PlayerState, ttl time.Duration) (bool, error)
	DeletePlayerState(ctx context.Context, id model.ParticipantID) error

	// Participant -> match ownership. GetOwnership returns model.ErrNotCached when absent.
	GetOwnership(ctx context.Context, id model.ParticipantID) (model.MatchID, error)
	SetOwnership(ctx context.Context, id model.ParticipantID, matchID model.MatchID, ttl time.Duration) error
	DeleteOwnership(ctx context.Context, id model.ParticipantID) error

	// Named singleton locks
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name string) error

	// Delivery channel sessions. A participant may hold several connections,
	// possibly on different instances; it has a session while any is live.
	TouchSession(ctx context.Context, id model.ParticipantID, conn string, ttl time.Duration) error
	// DropSession removes one connection, and the participant once none remain.
	DropSession(ctx context.Context, id model.ParticipantID, conn string) error
	// ClearSessions removes every connection of the participant.
	ClearSessions(ctx context.Context, id model.ParticipantID) error
	HasSession(ctx context.Context, id model.ParticipantID) (bool, error)
	// CountSessions returns the number of participants with a live session.
	CountSessions(ctx context.Context) (int, error)
}
