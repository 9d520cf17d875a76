package channels

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/lanequeue/internal/dependencies/mocks"
	"github.com/mcoot/lanequeue/internal/storage"
	"github.com/mcoot/lanequeue/internal/storage/memory"
	redisstorage "github.com/mcoot/lanequeue/internal/storage/redis"
	"github.com/mcoot/lanequeue/internal/testutil"
)

// RegistrySuite runs against every cache backend
type RegistrySuite struct {
	suite.Suite
	newCache func(s *RegistrySuite) storage.Cache
	clock    *mocks.MockClock
	registry *Registry
	ctx      context.Context
}

func TestRegistryMemory(t *testing.T) {
	suite.Run(t, &RegistrySuite{newCache: func(s *RegistrySuite) storage.Cache {
		return memory.NewCache(s.clock)
	}})
}

func TestRegistryRedis(t *testing.T) {
	suite.Run(t, &RegistrySuite{newCache: func(s *RegistrySuite) storage.Cache {
		mr := miniredis.RunT(s.T())
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		s.T().Cleanup(func() { _ = client.Close() })
		return redisstorage.NewCache(client, s.clock)
	}})
}

func (s *RegistrySuite) SetupTest() {
	s.clock = mocks.NewMockClock(testutil.BaseTime)
	s.registry = New(s.newCache(s), Config{SessionTTL: time.Minute}, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *RegistrySuite) TestTouchMakesReachable() {
	ok, err := s.registry.HasActiveChannel(s.ctx, "alice")
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(s.registry.Touch(s.ctx, "alice"))

	ok, err = s.registry.HasActiveChannel(s.ctx, "alice")
	s.Require().NoError(err)
	s.True(ok)
}

func (s *RegistrySuite) TestSessionExpiresWithoutHeartbeat() {
	s.Require().NoError(s.registry.Touch(s.ctx, "alice"))
	s.clock.Advance(30 * time.Second)
	s.Require().NoError(s.registry.Touch(s.ctx, "alice"))
	s.clock.Advance(45 * time.Second)

	ok, _ := s.registry.HasActiveChannel(s.ctx, "alice")
	s.True(ok, "heartbeat extends the session")

	s.clock.Advance(30 * time.Second)
	ok, _ = s.registry.HasActiveChannel(s.ctx, "alice")
	s.False(ok)
}

func (s *RegistrySuite) TestDrop() {
	s.Require().NoError(s.registry.Touch(s.ctx, "alice"))
	s.Require().NoError(s.registry.Drop(s.ctx, "alice"))

	ok, _ := s.registry.HasActiveChannel(s.ctx, "alice")
	s.False(ok)
}

func (s *RegistrySuite) TestBotsAreExempt() {
	ok, err := s.registry.HasActiveChannel(s.ctx, "bot-7")
	s.Require().NoError(err)
	s.True(ok)
}

func (s *RegistrySuite) TestConnectedCount() {
	s.Require().NoError(s.registry.Touch(s.ctx, "alice"))
	s.Require().NoError(s.registry.Touch(s.ctx, "bob"))
	s.clock.Advance(30 * time.Second)
	s.Require().NoError(s.registry.Touch(s.ctx, "carol"))
	s.clock.Advance(45 * time.Second)

	count, err := s.registry.ConnectedCount(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *RegistrySuite) TestReachableWhileAnyConnectionOpen() {
	s.Require().NoError(s.registry.TouchConnection(s.ctx, "alice", "tab-1"))
	s.Require().NoError(s.registry.TouchConnection(s.ctx, "alice", "tab-2"))

	s.Require().NoError(s.registry.DropConnection(s.ctx, "alice", "tab-1"))
	ok, _ := s.registry.HasActiveChannel(s.ctx, "alice")
	s.True(ok, "tab-2 is still open")

	s.Require().NoError(s.registry.DropConnection(s.ctx, "alice", "tab-2"))
	ok, _ = s.registry.HasActiveChannel(s.ctx, "alice")
	s.False(ok)
}

func (s *RegistrySuite) TestDropClosesEveryConnection() {
	s.Require().NoError(s.registry.TouchConnection(s.ctx, "alice", "tab-1"))
	s.Require().NoError(s.registry.Touch(s.ctx, "alice"))

	s.Require().NoError(s.registry.Drop(s.ctx, "alice"))

	ok, _ := s.registry.HasActiveChannel(s.ctx, "alice")
	s.False(ok)
	count, _ := s.registry.ConnectedCount(s.ctx)
	s.Equal(0, count)
}
