package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/lanequeue/internal/dependencies/idgen"
)

// MockIDGenerator hands out queued ids, then sequential ones
type MockIDGenerator struct {
	mu     sync.Mutex
	queued []string
	next   int
}

// Ensure MockIDGenerator implements Generator
var _ idgen.Generator = (*MockIDGenerator)(nil)

// NewMockIDGenerator creates a new MockIDGenerator
func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

// NewID returns the next queued id, or "match-<n>" once the queue is empty
func (g *MockIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.queued) > 0 {
		id := g.queued[0]
		g.queued = g.queued[1:]
		return id
	}
	g.next++
	return fmt.Sprintf("match-%d", g.next)
}

// Queue adds ids to be returned in order
func (g *MockIDGenerator) Queue(ids ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queued = append(g.queued, ids...)
}
