package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/lanequeue/internal/dependencies/clock"
	"github.com/mcoot/lanequeue/internal/model"
	"github.com/mcoot/lanequeue/internal/storage"
)

// Cache is a Redis-backed implementation of the cache interface
type Cache struct {
	client *redis.Client
	clock  clock.Clock
}

// NewCache creates a Redis cache over an existing client
func NewCache(client *redis.Client, clk clock.Clock) *Cache {
	return &Cache{
		client: client,
		clock:  clk,
	}
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ensure Cache implements the interface
var _ storage.Cache = (*Cache)(nil)

// Player state

func (c *Cache) GetPlayerState(ctx context.Context, id model.ParticipantID) (model.PlayerState, error) {
	val, err := c.client.Get(ctx, playerStateKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", model.ErrNotCached
		}
		return "", err
	}
	return model.PlayerState(val), nil
}

func (c *Cache) SetPlayerState(ctx context.Context, id model.ParticipantID, state model.PlayerState, ttl time.Duration) error {
	return c.client.Set(ctx, playerStateKey(id), string(state), ttl).Err()
}

func (c *Cache) CompareAndSetPlayerState(ctx context.Context, id model.ParticipantID, expected, next model.PlayerState, ttl time.Duration) (bool, error) {
	key := playerStateKey(id)
	swapped := false

	// Optimistic transaction: the write is discarded if key changes after WATCH
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Result()
		switch {
		case errors.Is(err, redis.Nil):
			current = string(model.StateAvailable)
		case err != nil:
			return err
		}
		if model.PlayerState(current) != expected {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, string(next), ttl)
			return nil
		})
		if err != nil {
			return err
		}
		swapped = true
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return swapped, nil
}

func (c *Cache) DeletePlayerState(ctx context.Context, id model.ParticipantID) error {
	return c.client.Del(ctx, playerStateKey(id)).Err()
}

// Ownership

func (c *Cache) GetOwnership(ctx context.Context, id model.ParticipantID) (model.MatchID, error) {
	val, err := c.client.Get(ctx, ownershipKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", model.ErrNotCached
		}
		return "", err
	}
	return model.MatchID(val), nil
}

func (c *Cache) SetOwnership(ctx context.Context, id model.ParticipantID, matchID model.MatchID, ttl time.Duration) error {
	return c.client.Set(ctx, ownershipKey(id), string(matchID), ttl).Err()
}

func (c *Cache) DeleteOwnership(ctx context.Context, id model.ParticipantID) error {
	return c.client.Del(ctx, ownershipKey(id)).Err()
}

// Locks

func (c *Cache) AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	holder := strconv.FormatInt(c.clock.Now().UnixMilli(), 10)
	return c.client.SetNX(ctx, lockKey(name), holder, ttl).Result()
}

func (c *Cache) ReleaseLock(ctx context.Context, name string) error {
	return c.client.Del(ctx, lockKey(name)).Err()
}

// Sessions

// dropAttempts bounds how often DropSession retries when another instance
// touches the same participant mid-drop
const dropAttempts = 3

func (c *Cache) TouchSession(ctx context.Context, id model.ParticipantID, conn string, ttl time.Duration) error {
	expiresAt := float64(c.clock.Now().Add(ttl).UnixMilli())
	key := connectionsKey(id)

	pipe := c.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: expiresAt, Member: conn})
	pipe.PExpire(ctx, key, ttl)
	pipe.ZAddGT(ctx, sessionsKey(), redis.Z{Score: expiresAt, Member: string(id)})
	_, err := pipe.Exec(ctx)
	return err
}

func (c *Cache) DropSession(ctx context.Context, id model.ParticipantID, conn string) error {
	key := connectionsKey(id)
	after := c.liveAfter()

	drop := func(tx *redis.Tx) error {
		live, err := tx.ZRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{Min: after, Max: "+inf"}).Result()
		if err != nil {
			return err
		}
		remaining, latest := 0, 0.0
		for _, z := range live {
			if z.Member == conn {
				continue
			}
			remaining++
			latest = max(latest, z.Score)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if remaining == 0 {
				pipe.Del(ctx, key)
				pipe.ZRem(ctx, sessionsKey(), string(id))
				return nil
			}
			pipe.ZRem(ctx, key, conn)
			pipe.ZAdd(ctx, sessionsKey(), redis.Z{Score: latest, Member: string(id)})
			return nil
		})
		return err
	}

	var err error
	for range dropAttempts {
		err = c.client.Watch(ctx, drop, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}

func (c *Cache) ClearSessions(ctx context.Context, id model.ParticipantID) error {
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, connectionsKey(id))
	pipe.ZRem(ctx, sessionsKey(), string(id))
	_, err := pipe.Exec(ctx)
	return err
}

func (c *Cache) HasSession(ctx context.Context, id model.ParticipantID) (bool, error) {
	n, err := c.client.ZCount(ctx, connectionsKey(id), c.liveAfter(), "+inf").Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// liveAfter is the exclusive lower score bound of unexpired session entries
func (c *Cache) liveAfter() string {
	return "(" + strconv.FormatInt(c.clock.Now().UnixMilli(), 10)
}

func (c *Cache) CountSessions(ctx context.Context) (int, error) {
	now := strconv.FormatInt(c.clock.Now().UnixMilli(), 10)

	// Prune expired sessions and count the rest in one round trip
	pipe := c.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, sessionsKey(), "-inf", now)
	card := pipe.ZCard(ctx, sessionsKey())
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return int(card.Val()), nil
}
