package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mcoot/lanequeue/internal/model"
	"github.com/mcoot/lanequeue/internal/storage"
)

// Storage is an in-memory implementation of the queue and match stores
type Storage struct {
	mu sync.RWMutex

	queue   map[model.ParticipantID]model.QueuedParticipant
	matches map[model.MatchID]*model.Match
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		queue:   make(map[model.ParticipantID]model.QueuedParticipant),
		matches: make(map[model.MatchID]*model.Match),
	}
}

// Ensure Storage implements the interfaces
var (
	_ storage.QueueStore = (*Storage)(nil)
	_ storage.MatchStore = (*Storage)(nil)
)

// Queue operations

func (s *Storage) Add(ctx context.Context, p *model.QueuedParticipant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queue[p.ID]; ok {
		return model.ErrAlreadyQueued
	}
	row := *p
	if row.Status == "" {
		row.Status = model.ProcessingAvailable
	}
	row.Position = 0
	s.queue[p.ID] = row
	return nil
}

func (s *Storage) Get(ctx context.Context, id model.ParticipantID) (*model.QueuedParticipant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.queue[id]
	if !ok {
		return nil, model.ErrParticipantNotFound
	}
	return &row, nil
}

func (s *Storage) List(ctx context.Context) ([]model.QueuedParticipant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(model.QueuedParticipant) bool { return true }), nil
}

func (s *Storage) ListEligible(ctx context.Context) ([]model.QueuedParticipant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(p model.QueuedParticipant) bool {
		return p.Status == model.ProcessingAvailable
	}), nil
}

func (s *Storage) CountEligible(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, p := range s.queue {
		if p.Status == model.ProcessingAvailable {
			count++
		}
	}
	return count, nil
}

func (s *Storage) MarkProcessing(ctx context.Context, ids []model.ParticipantID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		row, ok := s.queue[id]
		if !ok || row.Status != model.ProcessingAvailable {
			return model.ErrQueueConflict
		}
	}
	for _, id := range ids {
		row := s.queue[id]
		row.Status = model.ProcessingActive
		row.ClaimedAt = at
		s.queue[id] = row
	}
	return nil
}

func (s *Storage) RevertProcessing(ctx context.Context, ids []model.ParticipantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		row, ok := s.queue[id]
		if !ok || row.Status != model.ProcessingActive {
			continue
		}
		row.Status = model.ProcessingAvailable
		row.ClaimedAt = time.Time{}
		s.queue[id] = row
	}
	return nil
}

func (s *Storage) ListStaleClaims(ctx context.Context, before time.Time) ([]model.QueuedParticipant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(p model.QueuedParticipant) bool {
		return p.Status == model.ProcessingActive && p.ClaimedAt.Before(before)
	}), nil
}

func (s *Storage) Remove(ctx context.Context, id model.ParticipantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queue[id]; !ok {
		return model.ErrParticipantNotFound
	}
	delete(s.queue, id)
	return nil
}

func (s *Storage) RemoveAll(ctx context.Context, ids []model.ParticipantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.queue, id)
	}
	return nil
}

func (s *Storage) IsActiveMember(ctx context.Context, id model.ParticipantID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.queue[id]
	return ok, nil
}

// sorted returns matching rows ordered by join time with positions
// assigned over the whole queue. Caller must hold the lock.
func (s *Storage) sorted(keep func(model.QueuedParticipant) bool) []model.QueuedParticipant {
	all := make([]model.QueuedParticipant, 0, len(s.queue))
	for _, p := range s.queue {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].JoinedAt.Equal(all[j].JoinedAt) {
			return all[i].JoinedAt.Before(all[j].JoinedAt)
		}
		return all[i].ID < all[j].ID
	})

	result := make([]model.QueuedParticipant, 0, len(all))
	for i, p := range all {
		p.Position = i + 1
		if keep(p) {
			result = append(result, p)
		}
	}
	return result
}

// Match operations

func (s *Storage) Save(ctx context.Context, match *model.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[match.ID] = copyMatch(match)
	return nil
}

func (s *Storage) FindByID(ctx context.Context, id model.MatchID) (*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, model.ErrMatchNotFound
	}
	return copyMatch(m), nil
}

func (s *Storage) FindActiveForParticipant(ctx context.Context, id model.ParticipantID) (*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *model.Match
	for _, m := range s.matches {
		if !m.Status.IsActive() || !m.Includes(id) {
			continue
		}
		if found == nil || m.CreatedAt.After(found.CreatedAt) {
			found = m
		}
	}
	if found == nil {
		return nil, model.ErrMatchNotFound
	}
	return copyMatch(found), nil
}

func (s *Storage) UpdateStatus(ctx context.Context, id model.MatchID, status model.MatchStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return model.ErrMatchNotFound
	}
	m.Status = status
	return nil
}

func copyMatch(m *model.Match) *model.Match {
	c := *m
	c.TeamA.Slots = append([]model.Slot(nil), m.TeamA.Slots...)
	c.TeamB.Slots = append([]model.Slot(nil), m.TeamB.Slots...)
	return &c
}
