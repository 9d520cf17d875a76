package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcoot/lanequeue/internal/api/handler"
	"github.com/mcoot/lanequeue/internal/api/middleware"
	"github.com/mcoot/lanequeue/internal/services/bot"
	"github.com/mcoot/lanequeue/internal/services/channels"
	"github.com/mcoot/lanequeue/internal/services/ownership"
	"github.com/mcoot/lanequeue/internal/services/playerstate"
	"github.com/mcoot/lanequeue/internal/services/queue"
	"github.com/mcoot/lanequeue/internal/services/scheduler"
	"github.com/mcoot/lanequeue/internal/stream"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger       *slog.Logger
	Queue        *queue.Service
	PlayerStates *playerstate.Service
	Ownership    *ownership.Service
	Channels     *channels.Registry
	Scheduler    *scheduler.Scheduler
	// Hub backs the per-participant event stream. If nil, the route is not registered.
	Hub *stream.Hub
	// Bots backs /bots. If nil, the route is not registered.
	Bots *bot.Service
	// Gatherer backs /metrics. If nil, the route is not registered.
	Gatherer prometheus.Gatherer
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	queueHandler := handler.NewQueueHandler(cfg.Queue)
	playerHandler := handler.NewPlayerHandler(cfg.PlayerStates, cfg.Ownership, cfg.Channels)
	passHandler := handler.NewPassHandler(cfg.Scheduler)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(middleware.Logging(cfg.Logger))

	api.HandleFunc("/queue", queueHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/queue", queueHandler.Join).Methods(http.MethodPost)
	api.HandleFunc("/queue/{participant_id}", queueHandler.Leave).Methods(http.MethodDelete)

	api.HandleFunc("/players/{participant_id}/state", playerHandler.GetState).Methods(http.MethodGet)
	api.HandleFunc("/players/{participant_id}/channel", playerHandler.Heartbeat).Methods(http.MethodPut)
	api.HandleFunc("/players/{participant_id}/channel", playerHandler.Disconnect).Methods(http.MethodDelete)

	if cfg.Hub != nil {
		streamHandler := handler.NewStreamHandler(cfg.Hub, cfg.Channels, cfg.Logger)
		api.HandleFunc("/players/{participant_id}/events", streamHandler.Events).Methods(http.MethodGet)
	}

	api.HandleFunc("/passes", passHandler.Run).Methods(http.MethodPost)

	if cfg.Bots != nil {
		api.HandleFunc("/bots", handler.NewBotHandler(cfg.Bots).Add).Methods(http.MethodPost)
	}

	api.HandleFunc("/health", handler.NewHealthHandler(cfg.Queue, cfg.Channels).Check).Methods(http.MethodGet)

	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	return r
}
