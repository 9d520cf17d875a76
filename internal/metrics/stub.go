package metrics

import (
	"sync"
	"time"
)

// StubMetrics counts calls in memory, for tests and for running without a registry
type StubMetrics struct {
	mu               sync.Mutex
	Passes           map[string]int
	GhostCorrections map[string]int
	QueueSize        int
	MatchesCreated   int
}

// NewStubMetrics creates an empty StubMetrics
func NewStubMetrics() *StubMetrics {
	return &StubMetrics{
		Passes:           make(map[string]int),
		GhostCorrections: make(map[string]int),
	}
}

func (m *StubMetrics) AddPass(outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Passes[outcome]++
}

func (m *StubMetrics) AddGhostCorrection(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GhostCorrections[kind]++
}

func (m *StubMetrics) SetQueueSize(size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueueSize = size
}

func (m *StubMetrics) AddMatchCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MatchesCreated++
}

// PassCount returns how many passes ended with outcome
func (m *StubMetrics) PassCount(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Passes[outcome]
}

// CorrectionCount returns how many corrections of kind were recorded
func (m *StubMetrics) CorrectionCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.GhostCorrections[kind]
}
