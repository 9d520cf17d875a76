package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mcoot/lanequeue/internal/config"
	"github.com/mcoot/lanequeue/internal/dependencies/clock"
	"github.com/mcoot/lanequeue/internal/dependencies/idgen"
	"github.com/mcoot/lanequeue/internal/dependencies/random"
	"github.com/mcoot/lanequeue/internal/events"
	"github.com/mcoot/lanequeue/internal/metrics"
	"github.com/mcoot/lanequeue/internal/services/acceptance"
	"github.com/mcoot/lanequeue/internal/services/bot"
	"github.com/mcoot/lanequeue/internal/services/channels"
	"github.com/mcoot/lanequeue/internal/services/lock"
	"github.com/mcoot/lanequeue/internal/services/matchmaking"
	"github.com/mcoot/lanequeue/internal/services/ownership"
	"github.com/mcoot/lanequeue/internal/services/playerstate"
	"github.com/mcoot/lanequeue/internal/services/queue"
	"github.com/mcoot/lanequeue/internal/services/scheduler"
	"github.com/mcoot/lanequeue/internal/storage"
	"github.com/mcoot/lanequeue/internal/storage/memory"
	redisstorage "github.com/mcoot/lanequeue/internal/storage/redis"
	"github.com/mcoot/lanequeue/internal/storage/sqlstore"
	"github.com/mcoot/lanequeue/internal/stream"
)

// recorderLimit bounds the in-memory event log of a single-instance server
const recorderLimit = 1000

// App contains all wired application components
type App struct {
	Config config.Config

	// Storage
	QueueStore storage.QueueStore
	MatchStore storage.MatchStore
	Cache      storage.Cache

	// External dependencies
	Clock  clock.Clock
	IDs    idgen.Generator
	Random random.Random

	// Observability. Registry is nil when metrics are stubbed.
	Metrics  metrics.QueueMetrics
	Registry *prometheus.Registry

	Publisher events.Publisher
	// Hub serves event streams to clients on this instance. Nil in test apps.
	Hub *stream.Hub

	// Services
	PlayerStates *playerstate.Service
	Ownership    *ownership.Service
	Channels     *channels.Registry
	Acceptance   *acceptance.Service
	Protocol     *matchmaking.Protocol
	Scheduler    *scheduler.Scheduler
	Queue        *queue.Service
	Bots         *bot.Service

	closers []io.Closer
	stops   []func()
}

// backends groups the storage-facing dependencies chosen by New
type backends struct {
	queue     storage.QueueStore
	matches   storage.MatchStore
	cache     storage.Cache
	publisher events.Publisher
	closers   []io.Closer
	stops     []func()
}

// New creates a new application with all dependencies wired.
// cfg is expected to have passed Validate.
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	// Zero value means an in-memory app with default settings
	if cfg == (config.Config{}) {
		cfg = config.Default()
	}

	clk := clock.New()
	hub := stream.NewHub(logger)

	var b backends
	switch cfg.StorageType {
	case config.StorageTypeMemory:
		store := memory.New()
		recorder := events.NewRecorder(clk)
		recorder.Limit = recorderLimit
		b = backends{
			queue:     store,
			matches:   store,
			cache:     memory.NewCache(clk),
			publisher: events.Multi{recorder, stream.NewHubPublisher(hub, clk)},
		}
	case config.StorageTypeRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		client, err := redisstorage.NewClient(redisCfg)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}

		sqlCfg := sqlstore.DefaultConfig()
		sqlCfg.DSN = cfg.DatabaseURL
		store, err := sqlstore.Open(sqlCfg)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("postgres: %w", err)
		}

		// Events from every instance reach this instance's clients through the relay
		relay := stream.NewRelay(client, hub, logger)
		sub, err := relay.Subscribe(context.Background())
		if err != nil {
			_ = store.Close()
			_ = client.Close()
			return nil, fmt.Errorf("redis subscribe: %w", err)
		}
		relayCtx, stopRelay := context.WithCancel(context.Background())
		go relay.Run(relayCtx, sub)

		b = backends{
			queue:     store,
			matches:   store,
			cache:     redisstorage.NewCache(client, clk),
			publisher: events.NewRedisPublisher(client, clk, logger),
			closers:   []io.Closer{store, client},
			stops:     []func(){stopRelay},
		}
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app := newWithDependencies(cfg, b, clk, idgen.New(), random.New(), metrics.NewMetrics(registry), logger)
	app.Registry = registry

	go hub.Run()
	app.Hub = hub
	app.stops = append(app.stops, hub.Close)
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	cfg config.Config,
	b backends,
	clk clock.Clock,
	ids idgen.Generator,
	rnd random.Random,
	m metrics.QueueMetrics,
	logger *slog.Logger,
) *App {
	states := playerstate.New(b.cache, b.queue, b.matches, m, clk, playerstate.Config{
		StateTTL: cfg.StateTTL,
		ClaimTTL: cfg.LockTTL,
	}, logger)
	owners := ownership.New(b.cache, b.matches, m, ownership.Config{OwnershipTTL: cfg.OwnershipTTL}, logger)
	presence := channels.New(b.cache, channels.Config{SessionTTL: cfg.SessionTTL}, logger)
	accept := acceptance.New(clk, cfg.AcceptTimeout, logger)
	protocol := matchmaking.NewProtocol(b.queue, b.matches, states, owners, presence, b.publisher, accept, ids, clk, logger)

	l := lock.New(b.cache, lock.QueueProcessing, cfg.LockTTL, logger)
	sched := scheduler.New(l, b.queue, protocol, presence, m, clk, scheduler.Config{
		Interval:          cfg.TickInterval,
		MaxMatchesPerPass: cfg.MaxMatchesPerPass,
		SkipIdleCheck:     cfg.SkipIdleCheck,
	}, logger)
	queueService := queue.New(b.queue, states, b.publisher, sched, clk, logger)
	bots := bot.NewService(queueService, map[string]bot.Strategy{
		bot.StrategyRandom: bot.NewRandomStrategy(rnd),
	}, rnd, logger)

	return &App{
		Config:       cfg,
		QueueStore:   b.queue,
		MatchStore:   b.matches,
		Cache:        b.cache,
		Clock:        clk,
		IDs:          ids,
		Random:       rnd,
		Metrics:      m,
		Publisher:    b.publisher,
		PlayerStates: states,
		Ownership:    owners,
		Channels:     presence,
		Acceptance:   accept,
		Protocol:     protocol,
		Scheduler:    sched,
		Queue:        queueService,
		Bots:         bots,
		closers:      b.closers,
		stops:        b.stops,
	}
}

// Close stops the scheduler and event streams and releases backend connections
func (a *App) Close() error {
	errs := []error{a.Scheduler.Stop()}
	for _, stop := range a.stops {
		stop()
	}
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
