package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/lanequeue/internal/dependencies/clock"
	"github.com/mcoot/lanequeue/internal/dependencies/mocks"
	"github.com/mcoot/lanequeue/internal/storage/memory"
	redisstorage "github.com/mcoot/lanequeue/internal/storage/redis"
	"github.com/mcoot/lanequeue/internal/testutil"
)

type LockSuite struct {
	suite.Suite
	clock *mocks.MockClock
	cache *memory.Cache
	ctx   context.Context
}

func TestLockSuite(t *testing.T) {
	suite.Run(t, new(LockSuite))
}

func (s *LockSuite) SetupTest() {
	s.clock = mocks.NewMockClock(testutil.BaseTime)
	s.cache = memory.NewCache(s.clock)
	s.ctx = context.Background()
}

func (s *LockSuite) newLock() *Lock {
	return New(s.cache, QueueProcessing, 30*time.Second, testutil.NopLogger())
}

func (s *LockSuite) TestSecondHolderRefused() {
	first, second := s.newLock(), s.newLock()

	ok, err := first.Acquire(s.ctx)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = second.Acquire(s.ctx)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *LockSuite) TestReleaseAllowsReacquire() {
	l := s.newLock()
	ok, _ := l.Acquire(s.ctx)
	s.Require().True(ok)

	s.Require().NoError(l.Release(s.ctx))

	ok, _ = s.newLock().Acquire(s.ctx)
	s.True(ok)
}

func (s *LockSuite) TestCrashedHolderRecoveredByTTL() {
	ok, _ := s.newLock().Acquire(s.ctx)
	s.Require().True(ok)

	s.clock.Advance(31 * time.Second)

	ok, _ = s.newLock().Acquire(s.ctx)
	s.True(ok)
}

func (s *LockSuite) TestNamesAreIndependent() {
	ok, _ := s.newLock().Acquire(s.ctx)
	s.Require().True(ok)

	other := New(s.cache, "match:m1", time.Second, testutil.NopLogger())
	ok, _ = other.Acquire(s.ctx)
	s.True(ok)
}

func (s *LockSuite) TestConcurrentAcquireSingleWinnerRedis() {
	mr := miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()
	cache := redisstorage.NewCache(client, clock.New())

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l := New(cache, QueueProcessing, time.Minute, testutil.NopLogger())
			ok, err := l.Acquire(s.ctx)
			if err == nil && ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), winners.Load())
}
