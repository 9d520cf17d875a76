package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mcoot/lanequeue/internal/dependencies/clock"
	"github.com/mcoot/lanequeue/internal/model"
	"github.com/mcoot/lanequeue/internal/storage"
)

type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// Cache is an in-memory expiring cache for single-instance deployments and tests
type Cache struct {
	mu    sync.Mutex
	clock clock.Clock

	states   map[model.ParticipantID]entry
	owners   map[model.ParticipantID]entry
	locks    map[string]entry
	sessions map[model.ParticipantID]map[string]entry
}

// NewCache creates an in-memory cache whose expiry follows clk
func NewCache(clk clock.Clock) *Cache {
	return &Cache{
		clock:    clk,
		states:   make(map[model.ParticipantID]entry),
		owners:   make(map[model.ParticipantID]entry),
		locks:    make(map[string]entry),
		sessions: make(map[model.ParticipantID]map[string]entry),
	}
}

// Ensure Cache implements the interface
var _ storage.Cache = (*Cache)(nil)

func (c *Cache) newEntry(value string, ttl time.Duration) entry {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = c.clock.Now().Add(ttl)
	}
	return e
}

func (c *Cache) live(e entry, ok bool) bool {
	if !ok {
		return false
	}
	return e.expiresAt.IsZero() || c.clock.Now().Before(e.expiresAt)
}

// Player state

func (c *Cache) GetPlayerState(ctx context.Context, id model.ParticipantID) (model.PlayerState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.states[id]
	if !c.live(e, ok) {
		delete(c.states, id)
		return "", model.ErrNotCached
	}
	return model.PlayerState(e.value), nil
}

func (c *Cache) SetPlayerState(ctx context.Context, id model.ParticipantID, state model.PlayerState, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[id] = c.newEntry(string(state), ttl)
	return nil
}

func (c *Cache) CompareAndSetPlayerState(ctx context.Context, id model.ParticipantID, expected, next model.PlayerState, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	current := model.StateAvailable
	if e, ok := c.states[id]; c.live(e, ok) {
		current = model.PlayerState(e.value)
	}
	if current != expected {
		return false, nil
	}
	c.states[id] = c.newEntry(string(next), ttl)
	return true, nil
}

func (c *Cache) DeletePlayerState(ctx context.Context, id model.ParticipantID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, id)
	return nil
}

// Ownership

func (c *Cache) GetOwnership(ctx context.Context, id model.ParticipantID) (model.MatchID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.owners[id]
	if !c.live(e, ok) {
		delete(c.owners, id)
		return "", model.ErrNotCached
	}
	return model.MatchID(e.value), nil
}

func (c *Cache) SetOwnership(ctx context.Context, id model.ParticipantID, matchID model.MatchID, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.owners[id] = c.newEntry(string(matchID), ttl)
	return nil
}

func (c *Cache) DeleteOwnership(ctx context.Context, id model.ParticipantID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.owners, id)
	return nil
}

// Locks

func (c *Cache) AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.locks[name]; c.live(e, ok) {
		return false, nil
	}
	c.locks[name] = c.newEntry("1", ttl)
	return true, nil
}

func (c *Cache) ReleaseLock(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.locks, name)
	return nil
}

// Sessions

func (c *Cache) TouchSession(ctx context.Context, id model.ParticipantID, conn string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	conns, ok := c.sessions[id]
	if !ok {
		conns = make(map[string]entry)
		c.sessions[id] = conns
	}
	conns[conn] = c.newEntry("1", ttl)
	return nil
}

func (c *Cache) DropSession(ctx context.Context, id model.ParticipantID, conn string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	conns := c.sessions[id]
	delete(conns, conn)
	if !c.pruneConns(id) {
		delete(c.sessions, id)
	}
	return nil
}

func (c *Cache) ClearSessions(ctx context.Context, id model.ParticipantID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, id)
	return nil
}

func (c *Cache) HasSession(ctx context.Context, id model.ParticipantID) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pruneConns(id), nil
}

func (c *Cache) CountSessions(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for id := range c.sessions {
		if c.pruneConns(id) {
			count++
		} else {
			delete(c.sessions, id)
		}
	}
	return count, nil
}

// pruneConns drops expired connections of id and reports whether any remain.
// Caller must hold the lock.
func (c *Cache) pruneConns(id model.ParticipantID) bool {
	conns := c.sessions[id]
	for conn, e := range conns {
		if !c.live(e, true) {
			delete(conns, conn)
		}
	}
	return len(conns) > 0
}
