package factory

import (
	"github.com/mcoot/lanequeue/internal/config"
	"github.com/mcoot/lanequeue/internal/dependencies/mocks"
	"github.com/mcoot/lanequeue/internal/events"
	"github.com/mcoot/lanequeue/internal/metrics"
	"github.com/mcoot/lanequeue/internal/storage/memory"
	"github.com/mcoot/lanequeue/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock   *mocks.MockClock
	MockIDs     *mocks.MockIDGenerator
	MockRandom  *mocks.MockRandom
	StubMetrics *metrics.StubMetrics
	Recorder    *events.Recorder
	Storage     *memory.Storage
	MemoryCache *memory.Cache
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// The idle check is skipped so passes run without connected channels.
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(testutil.BaseTime)
	cache := memory.NewCache(mockClock)
	recorder := events.NewRecorder(mockClock)
	mockIDs := mocks.NewMockIDGenerator()
	mockRandom := mocks.NewMockRandom()
	stub := metrics.NewStubMetrics()

	cfg := testConfig()
	app := newWithDependencies(cfg, backends{
		queue:     store,
		matches:   store,
		cache:     cache,
		publisher: recorder,
	}, mockClock, mockIDs, mockRandom, stub, testutil.NopLogger())

	return &TestApp{
		App:         app,
		MockClock:   mockClock,
		MockIDs:     mockIDs,
		MockRandom:  mockRandom,
		StubMetrics: stub,
		Recorder:    recorder,
		Storage:     store,
		MemoryCache: cache,
	}
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.LogLevel = "error"
	cfg.SkipIdleCheck = true
	return cfg
}
