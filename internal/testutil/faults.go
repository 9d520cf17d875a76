package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mcoot/lanequeue/internal/model"
	"github.com/mcoot/lanequeue/internal/storage"
)

// ErrInjected is returned by the fault-injecting wrappers
var ErrInjected = errors.New("injected failure")

// FaultyMatches wraps a MatchStore and fails Save while SaveFails is set
type FaultyMatches struct {
	storage.MatchStore
	mu        sync.Mutex
	SaveFails bool
}

func (f *FaultyMatches) Save(ctx context.Context, match *model.Match) error {
	f.mu.Lock()
	fail := f.SaveFails
	f.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return f.MatchStore.Save(ctx, match)
}

// FaultyCache wraps a Cache and refuses compare-and-set for chosen participants
type FaultyCache struct {
	storage.Cache
	mu         sync.Mutex
	refuseSwap map[model.ParticipantID]bool
}

// NewFaultyCache wraps cache with no faults configured
func NewFaultyCache(cache storage.Cache) *FaultyCache {
	return &FaultyCache{Cache: cache, refuseSwap: make(map[model.ParticipantID]bool)}
}

// RefuseSwap makes every compare-and-set for id report a lost race
func (f *FaultyCache) RefuseSwap(id model.ParticipantID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refuseSwap[id] = true
}

func (f *FaultyCache) CompareAndSetPlayerState(ctx context.Context, id model.ParticipantID, expected, next model.PlayerState, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	refuse := f.refuseSwap[id]
	f.mu.Unlock()
	if refuse {
		return false, nil
	}
	return f.Cache.CompareAndSetPlayerState(ctx, id, expected, next, ttl)
}
