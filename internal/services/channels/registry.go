package channels

import (
	"context"
	"log/slog"
	"time"

	"github.com/mcoot/lanequeue/internal/model"
	"github.com/mcoot/lanequeue/internal/storage"
)

// Config holds configuration for the channel registry
type Config struct {
	// SessionTTL is how long a session lives without a heartbeat
	SessionTTL time.Duration
}

// DefaultConfig returns default channel registry configuration
func DefaultConfig() Config {
	return Config{
		SessionTTL: 90 * time.Second,
	}
}

// Registry tracks which participants currently have a delivery channel open.
// Transports call Touch on connect and on every heartbeat.
type Registry struct {
	cache  storage.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// New creates a new channel registry
func New(cache storage.Cache, cfg Config, logger *slog.Logger) *Registry {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = DefaultConfig().SessionTTL
	}
	return &Registry{
		cache:  cache,
		ttl:    cfg.SessionTTL,
		logger: logger.With(slog.String("component", "channels")),
	}
}

// heartbeatConn names the connection kept alive by plain heartbeats, as
// opposed to streams which each register their own
const heartbeatConn = "heartbeat"

// Touch registers or refreshes the participant's heartbeat session
func (r *Registry) Touch(ctx context.Context, id model.ParticipantID) error {
	return r.TouchConnection(ctx, id, heartbeatConn)
}

// Drop removes every session the participant holds, on any instance
func (r *Registry) Drop(ctx context.Context, id model.ParticipantID) error {
	r.logger.Debug("channel dropped", slog.String("participant_id", string(id)))
	return r.cache.ClearSessions(ctx, id)
}

// TouchConnection registers or refreshes one open connection
func (r *Registry) TouchConnection(ctx context.Context, id model.ParticipantID, conn string) error {
	return r.cache.TouchSession(ctx, id, conn, r.ttl)
}

// DropConnection closes one connection. The participant stays reachable
// while any other connection, here or on another instance, is open.
func (r *Registry) DropConnection(ctx context.Context, id model.ParticipantID, conn string) error {
	r.logger.Debug("connection closed",
		slog.String("participant_id", string(id)),
		slog.String("conn", conn),
	)
	return r.cache.DropSession(ctx, id, conn)
}

// HasActiveChannel reports whether the participant can be reached. Bots always can.
func (r *Registry) HasActiveChannel(ctx context.Context, id model.ParticipantID) (bool, error) {
	if model.IsBotID(id) {
		return true, nil
	}
	return r.cache.HasSession(ctx, id)
}

// ConnectedCount returns the number of participants with a live session
func (r *Registry) ConnectedCount(ctx context.Context) (int, error) {
	return r.cache.CountSessions(ctx)
}
