package ownership

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/lanequeue/internal/dependencies/mocks"
	"github.com/mcoot/lanequeue/internal/metrics"
	"github.com/mcoot/lanequeue/internal/model"
	"github.com/mcoot/lanequeue/internal/storage/memory"
	"github.com/mcoot/lanequeue/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	store   *memory.Storage
	cache   *memory.Cache
	clock   *mocks.MockClock
	metrics *metrics.StubMetrics
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = memory.New()
	s.clock = mocks.NewMockClock(testutil.BaseTime)
	s.cache = memory.NewCache(s.clock)
	s.metrics = metrics.NewStubMetrics()
	s.service = New(s.cache, s.store, s.metrics, Config{OwnershipTTL: time.Hour}, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *ServiceSuite) saveMatch(id string, status model.MatchStatus) {
	s.Require().NoError(s.store.Save(s.ctx, testutil.Match(id, status, "alice", "bob")))
}

func (s *ServiceSuite) TestRegisterAndGetCurrent() {
	s.Require().NoError(s.service.Register(s.ctx, "alice", "m1"))

	matchID, ok, err := s.service.GetCurrent(s.ctx, "alice")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(model.MatchID("m1"), matchID)
}

func (s *ServiceSuite) TestGetCurrentNone() {
	_, ok, err := s.service.GetCurrent(s.ctx, "alice")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *ServiceSuite) TestRegisterExpires() {
	s.Require().NoError(s.service.Register(s.ctx, "alice", "m1"))
	s.clock.Advance(2 * time.Hour)

	_, ok, _ := s.service.GetCurrent(s.ctx, "alice")
	s.False(ok)
}

// Clear tests

func (s *ServiceSuite) TestClearRefusedForActiveMatch() {
	s.saveMatch("m1", model.MatchStatusInProgress)
	s.Require().NoError(s.service.Register(s.ctx, "alice", "m1"))

	s.ErrorIs(s.service.Clear(s.ctx, "alice"), model.ErrOwnershipActive)

	_, ok, _ := s.service.GetCurrent(s.ctx, "alice")
	s.True(ok)
}

func (s *ServiceSuite) TestClearAllowedForTerminalMatch() {
	s.saveMatch("m1", model.MatchStatusCancelled)
	s.Require().NoError(s.service.Register(s.ctx, "alice", "m1"))

	s.Require().NoError(s.service.Clear(s.ctx, "alice"))

	_, ok, _ := s.service.GetCurrent(s.ctx, "alice")
	s.False(ok)
}

func (s *ServiceSuite) TestClearAllowedForMissingMatch() {
	s.Require().NoError(s.service.Register(s.ctx, "alice", "ghost"))
	s.Require().NoError(s.service.Clear(s.ctx, "alice"))

	_, ok, _ := s.service.GetCurrent(s.ctx, "alice")
	s.False(ok)
}

func (s *ServiceSuite) TestClearWithoutRecord() {
	s.NoError(s.service.Clear(s.ctx, "alice"))
}

// Reconcile tests

func (s *ServiceSuite) TestReconcileExtendsLiveRecord() {
	s.saveMatch("m1", model.MatchStatusPendingAcceptance)
	s.Require().NoError(s.service.Register(s.ctx, "alice", "m1"))
	s.clock.Advance(50 * time.Minute)

	matchID, ok, err := s.service.Reconcile(s.ctx, "alice")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(model.MatchID("m1"), matchID)

	s.clock.Advance(50 * time.Minute)
	_, ok, _ = s.service.GetCurrent(s.ctx, "alice")
	s.True(ok, "reconcile must refresh the expiry")
	s.Equal(0, s.metrics.CorrectionCount(metrics.CorrectionOwnership))
}

func (s *ServiceSuite) TestReconcileDropsGhost() {
	s.saveMatch("m1", model.MatchStatusCompleted)
	s.Require().NoError(s.service.Register(s.ctx, "alice", "m1"))

	_, ok, err := s.service.Reconcile(s.ctx, "alice")
	s.Require().NoError(err)
	s.False(ok)

	_, ok, _ = s.service.GetCurrent(s.ctx, "alice")
	s.False(ok)
	s.Equal(1, s.metrics.CorrectionCount(metrics.CorrectionOwnership))
}

func (s *ServiceSuite) TestReconcileReestablishesMissingRecord() {
	s.saveMatch("m1", model.MatchStatusDrafting)

	matchID, ok, err := s.service.Reconcile(s.ctx, "bob")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(model.MatchID("m1"), matchID)

	current, ok, _ := s.service.GetCurrent(s.ctx, "bob")
	s.True(ok)
	s.Equal(model.MatchID("m1"), current)
}

func (s *ServiceSuite) TestReconcileRepointsToActualMatch() {
	s.saveMatch("old", model.MatchStatusCancelled)
	s.Require().NoError(s.store.Save(s.ctx, testutil.Match("new", model.MatchStatusInProgress, "alice")))
	s.Require().NoError(s.service.Register(s.ctx, "alice", "old"))

	matchID, ok, err := s.service.Reconcile(s.ctx, "alice")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(model.MatchID("new"), matchID)
}

func (s *ServiceSuite) TestReconcileNothingToDo() {
	_, ok, err := s.service.Reconcile(s.ctx, "alice")
	s.Require().NoError(err)
	s.False(ok)
	s.Equal(0, s.metrics.CorrectionCount(metrics.CorrectionOwnership))
}
