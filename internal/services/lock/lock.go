package lock

import (
	"context"
	"log/slog"
	"time"

	"github.com/mcoot/lanequeue/internal/storage"
)

// QueueProcessing names the lock held for the duration of one processing pass
const QueueProcessing = "queue-processing"

// Lock is a named cluster-wide singleton held in the cache with a TTL.
// Acquire never blocks: a held lock simply reports false.
type Lock struct {
	cache  storage.Cache
	name   string
	ttl    time.Duration
	logger *slog.Logger
}

// New creates a lock over cache. ttl must exceed the longest expected hold.
func New(cache storage.Cache, name string, ttl time.Duration, logger *slog.Logger) *Lock {
	return &Lock{
		cache:  cache,
		name:   name,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "lock"), slog.String("lock", name)),
	}
}

// Acquire takes the lock if nobody holds it
func (l *Lock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.cache.AcquireLock(ctx, l.name, l.ttl)
	if err != nil {
		return false, err
	}
	if !ok {
		l.logger.Debug("lock held elsewhere")
	}
	return ok, nil
}

// Release drops the lock unconditionally
func (l *Lock) Release(ctx context.Context) error {
	return l.cache.ReleaseLock(ctx, l.name)
}

// TTL returns the lock's expiry
func (l *Lock) TTL() time.Duration {
	return l.ttl
}
