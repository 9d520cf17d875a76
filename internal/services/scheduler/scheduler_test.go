package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/lanequeue/internal/dependencies/mocks"
	"github.com/mcoot/lanequeue/internal/events"
	"github.com/mcoot/lanequeue/internal/metrics"
	"github.com/mcoot/lanequeue/internal/model"
	"github.com/mcoot/lanequeue/internal/services/acceptance"
	"github.com/mcoot/lanequeue/internal/services/balance"
	"github.com/mcoot/lanequeue/internal/services/channels"
	"github.com/mcoot/lanequeue/internal/services/lock"
	"github.com/mcoot/lanequeue/internal/services/matchmaking"
	"github.com/mcoot/lanequeue/internal/services/ownership"
	"github.com/mcoot/lanequeue/internal/services/playerstate"
	"github.com/mcoot/lanequeue/internal/storage"
	"github.com/mcoot/lanequeue/internal/storage/memory"
	"github.com/mcoot/lanequeue/internal/testutil"
)

const lockTTL = 30 * time.Second

// instance is one running copy of the service sharing the authoritative stores
type instance struct {
	cache     storage.Cache
	states    *playerstate.Service
	owners    *ownership.Service
	channels  *channels.Registry
	lock      *lock.Lock
	recorder  *events.Recorder
	scheduler *Scheduler
}

type SchedulerSuite struct {
	suite.Suite
	store   *memory.Storage
	matches *testutil.FaultyMatches
	clock   *mocks.MockClock
	ids     *mocks.MockIDGenerator
	metrics *metrics.StubMetrics
	main    *instance
	ctx     context.Context
}

func TestSchedulerSuite(t *testing.T) {
	suite.Run(t, new(SchedulerSuite))
}

func (s *SchedulerSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()
	s.matches = &testutil.FaultyMatches{MatchStore: s.store}
	s.clock = mocks.NewMockClock(testutil.BaseTime)
	s.ids = mocks.NewMockIDGenerator()
	s.metrics = metrics.NewStubMetrics()
	s.main = s.newInstance(memory.NewCache(s.clock), Config{MaxMatchesPerPass: 1})
}

func (s *SchedulerSuite) newInstance(cache storage.Cache, cfg Config) *instance {
	logger := testutil.NopLogger()
	in := &instance{cache: cache}
	in.states = playerstate.New(cache, s.store, s.matches, s.metrics, s.clock, playerstate.Config{ClaimTTL: lockTTL}, logger)
	in.owners = ownership.New(cache, s.matches, s.metrics, ownership.DefaultConfig(), logger)
	in.channels = channels.New(cache, channels.DefaultConfig(), logger)
	in.lock = lock.New(cache, lock.QueueProcessing, lockTTL, logger)
	in.recorder = events.NewRecorder(s.clock)
	protocol := matchmaking.NewProtocol(
		s.store, s.matches, in.states, in.owners, in.channels, in.recorder,
		acceptance.New(s.clock, 30*time.Second, logger), s.ids, s.clock, logger,
	)
	in.scheduler = New(in.lock, s.store, protocol, in.channels, s.metrics, s.clock, cfg, logger)
	return in
}

// enqueue adds n participants named prefix01.. and connects them on every instance given
func (s *SchedulerSuite) enqueue(prefix string, n int, instances ...*instance) []model.ParticipantID {
	if len(instances) == 0 {
		instances = []*instance{s.main}
	}
	ids := make([]model.ParticipantID, n)
	for i, p := range testutil.Lobby(n) {
		p.ID = model.ParticipantID(fmt.Sprintf("%s%02d", prefix, i+1))
		p.JoinedAt = p.JoinedAt.Add(time.Duration(len(prefix)) * time.Hour)
		s.Require().NoError(s.store.Add(s.ctx, &p))
		for _, in := range instances {
			s.Require().NoError(in.states.SetState(s.ctx, p.ID, model.StateInQueue))
			s.Require().NoError(in.channels.Touch(s.ctx, p.ID))
		}
		ids[i] = p.ID
	}
	return ids
}

func (s *SchedulerSuite) assertQueued(ids []model.ParticipantID) {
	eligible, err := s.store.ListEligible(s.ctx)
	s.Require().NoError(err)
	available := map[model.ParticipantID]bool{}
	for _, p := range eligible {
		available[p.ID] = true
	}
	for _, id := range ids {
		s.True(available[id], "%s should be queued and available", id)
		state, err := s.main.states.GetState(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(model.StateInQueue, state, "%s state", id)
		_, owned, _ := s.main.owners.GetCurrent(s.ctx, id)
		s.False(owned, "%s ownership", id)
	}
}

func (s *SchedulerSuite) assertLockFree() {
	ok, err := s.main.lock.Acquire(s.ctx)
	s.Require().NoError(err)
	s.True(ok, "lock must be released")
	s.Require().NoError(s.main.lock.Release(s.ctx))
}

// RunOnce tests

func (s *SchedulerSuite) TestNineQueuedFormsNothing() {
	ids := s.enqueue("p", 9)

	result, err := s.main.scheduler.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(OutcomeInsufficient, result.Outcome)
	s.Empty(result.Matches)
	s.assertQueued(ids)
	s.assertLockFree()
	s.Equal(9, s.metrics.QueueSize)
}

func (s *SchedulerSuite) TestTenQueuedFormsMatch() {
	ids := s.enqueue("p", 10)

	result, err := s.main.scheduler.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(OutcomeCreated, result.Outcome)
	s.Require().Len(result.Matches, 1)
	s.ElementsMatch(ids, result.Matches[0].ParticipantIDs())

	remaining, _ := s.store.List(s.ctx)
	s.Empty(remaining)
	s.assertLockFree()
	s.Equal(1, s.metrics.MatchesCreated)
	s.Equal(1, s.metrics.PassCount(metrics.OutcomeCreated))
}

func (s *SchedulerSuite) TestSelectsEarliestTen() {
	early := s.enqueue("a", 10)
	late := s.enqueue("bb", 3)

	result, err := s.main.scheduler.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(result.Matches, 1)
	s.ElementsMatch(early, result.Matches[0].ParticipantIDs())
	s.assertQueued(late)
}

func (s *SchedulerSuite) TestMissingChannelRestoresAll() {
	ids := s.enqueue("p", 10)
	s.Require().NoError(s.main.channels.Drop(s.ctx, ids[6]))

	result, err := s.main.scheduler.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(OutcomeAborted, result.Outcome)
	s.assertQueued(ids)
	s.assertLockFree()

	for _, id := range ids {
		_, err := s.store.FindActiveForParticipant(s.ctx, id)
		s.ErrorIs(err, model.ErrMatchNotFound)
	}
}

func (s *SchedulerSuite) TestLeaverAbortsWholePass() {
	ids := s.enqueue("p", 10)

	// The participant leaves between selection and validation
	leaver := ids[3]
	s.main.scheduler.WithBalancer(func(ps []model.QueuedParticipant) (balance.Result, error) {
		s.Require().NoError(s.store.Remove(s.ctx, leaver))
		return balance.Balance(ps)
	})

	result, err := s.main.scheduler.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(OutcomeAborted, result.Outcome)

	var others []model.ParticipantID
	for _, id := range ids {
		if id != leaver {
			others = append(others, id)
		}
	}
	s.assertQueued(others)
}

func (s *SchedulerSuite) TestBalanceFailureRevertsSentinel() {
	ids := s.enqueue("p", 10)
	s.main.scheduler.WithBalancer(func([]model.QueuedParticipant) (balance.Result, error) {
		return balance.Result{}, model.ErrBalanceIncomplete
	})

	result, err := s.main.scheduler.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(OutcomeBalanceFailed, result.Outcome)
	s.assertQueued(ids)
	s.assertLockFree()
}

func (s *SchedulerSuite) TestPersistenceFailureReleasesLock() {
	ids := s.enqueue("p", 10)
	s.matches.SaveFails = true

	result, err := s.main.scheduler.RunOnce(s.ctx)
	s.Require().ErrorIs(err, testutil.ErrInjected)
	s.Equal(OutcomeFailed, result.Outcome)
	s.assertQueued(ids)
	s.assertLockFree()

	// Recovers on the next pass
	s.matches.SaveFails = false
	result, err = s.main.scheduler.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(OutcomeCreated, result.Outcome)
}

func (s *SchedulerSuite) TestLockHeldSkipsPass() {
	ids := s.enqueue("p", 10)
	ok, _ := s.main.lock.Acquire(s.ctx)
	s.Require().True(ok)

	result, err := s.main.scheduler.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(OutcomeLockHeld, result.Outcome)
	s.assertQueued(ids)

	ok, _ = s.main.lock.Acquire(s.ctx)
	s.False(ok, "a skipped pass must not release someone else's lock")
}

// crashMidPass leaves ids the way a pass that died after the lifecycle
// transitions would: lock held, rows claimed, states IN_MATCH_PENDING
func (s *SchedulerSuite) crashMidPass(ids []model.ParticipantID) {
	ok, err := s.main.lock.Acquire(s.ctx)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Require().NoError(s.store.MarkProcessing(s.ctx, ids, s.clock.Now()))
	for _, id := range ids {
		s.Require().NoError(s.main.states.Transition(s.ctx, id, model.StateInQueue, model.StateInMatchPending))
	}
}

func (s *SchedulerSuite) TestAbandonedClaimIsReselected() {
	ids := s.enqueue("p", 10)
	s.crashMidPass(ids)

	result, err := s.main.scheduler.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(OutcomeLockHeld, result.Outcome)
	state, err := s.main.states.GetState(s.ctx, ids[0])
	s.Require().NoError(err)
	s.Equal(model.StateInMatchPending, state, "a fresh claim is still forming")

	s.clock.Advance(lockTTL + time.Second)

	result, err = s.main.scheduler.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(OutcomeCreated, result.Outcome)
	s.Require().Len(result.Matches, 1)
	s.ElementsMatch(ids, result.Matches[0].ParticipantIDs())
	s.Equal(10, s.metrics.CorrectionCount(metrics.CorrectionClaim))
	s.assertLockFree()
}

func (s *SchedulerSuite) TestAbandonedClaimReturnsToQueue() {
	ids := s.enqueue("p", 10)
	s.crashMidPass(ids)
	s.clock.Advance(lockTTL + time.Second)

	// The recovered ten cannot form a match, so they must end up waiting
	s.Require().NoError(s.main.channels.Drop(s.ctx, ids[2]))

	result, err := s.main.scheduler.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(OutcomeAborted, result.Outcome)
	s.assertQueued(ids)
	s.assertLockFree()
}

func (s *SchedulerSuite) TestAbandonedClaimOfPersistedMatchLeavesQueue() {
	ids := s.enqueue("p", 10)
	s.crashMidPass(ids)
	s.Require().NoError(s.store.Save(s.ctx, testutil.Match("m-crashed", model.MatchStatusPendingAcceptance, ids...)))
	s.clock.Advance(lockTTL + time.Second)

	result, err := s.main.scheduler.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(OutcomeInsufficient, result.Outcome)

	remaining, _ := s.store.List(s.ctx)
	s.Empty(remaining)
	state, err := s.main.states.GetState(s.ctx, ids[0])
	s.Require().NoError(err)
	s.Equal(model.StateInMatchPending, state)
}

func (s *SchedulerSuite) TestIdleWhenNobodyConnected() {
	ids := s.enqueue("p", 10)
	for _, id := range ids {
		s.Require().NoError(s.main.channels.Drop(s.ctx, id))
	}

	result, err := s.main.scheduler.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(OutcomeSkippedIdle, result.Outcome)
}

func (s *SchedulerSuite) TestIdleCheckCanBeSkipped() {
	// Sessions live in the main instance's cache only, so this one sees nobody
	in := s.newInstance(memory.NewCache(s.clock), Config{SkipIdleCheck: true})
	s.enqueue("bot-", 10)

	result, err := in.scheduler.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(OutcomeCreated, result.Outcome, "bots need no channel")
}

func (s *SchedulerSuite) TestSeveralMatchesPerPass() {
	in := s.newInstance(memory.NewCache(s.clock), Config{MaxMatchesPerPass: 3})
	s.enqueue("p", 25, in)

	result, err := in.scheduler.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.Len(result.Matches, 2)
	s.Equal(OutcomeInsufficient, result.Outcome)

	remaining, _ := s.store.List(s.ctx)
	s.Len(remaining, 5)
}

// Concurrency

func (s *SchedulerSuite) TestConcurrentPassesOnSharedLock() {
	s.enqueue("p", 10)

	var wg sync.WaitGroup
	results := make([]Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = s.main.scheduler.RunOnce(s.ctx)
		}(i)
	}
	wg.Wait()

	created := 0
	for _, r := range results {
		created += len(r.Matches)
	}
	s.Equal(1, created)
}

func (s *SchedulerSuite) TestNoDoubleSelectionWithoutSharedLock() {
	// Separate caches: every instance thinks it holds the lock, as after
	// a lock expiry. Only the queue store's processing marker protects us.
	instances := make([]*instance, 4)
	for i := range instances {
		instances[i] = s.newInstance(memory.NewCache(s.clock), Config{MaxMatchesPerPass: 1})
	}
	s.enqueue("p", 30, instances...)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var matches []*model.Match
	for _, in := range instances {
		wg.Add(1)
		go func(in *instance) {
			defer wg.Done()
			result, err := in.scheduler.RunOnce(s.ctx)
			s.NoError(err)
			mu.Lock()
			matches = append(matches, result.Matches...)
			mu.Unlock()
		}(in)
	}
	wg.Wait()

	s.NotEmpty(matches)
	seen := map[model.ParticipantID]model.MatchID{}
	for _, m := range matches {
		for _, id := range m.ParticipantIDs() {
			prev, dup := seen[id]
			s.False(dup, "%s selected into %s and %s", id, prev, m.ID)
			seen[id] = m.ID
		}
	}
}

// Periodic trigger

func (s *SchedulerSuite) TestStartRunsPeriodicPasses() {
	in := s.newInstance(memory.NewCache(s.clock), Config{Interval: 20 * time.Millisecond})
	s.enqueue("p", 10, in)

	s.Require().NoError(in.scheduler.Start())
	defer func() { s.NoError(in.scheduler.Stop()) }()

	s.Eventually(func() bool {
		remaining, _ := s.store.List(s.ctx)
		return len(remaining) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func (s *SchedulerSuite) TestTriggerRunsImmediately() {
	in := s.newInstance(memory.NewCache(s.clock), Config{Interval: time.Hour})
	s.enqueue("p", 10, in)

	s.Require().NoError(in.scheduler.Start())
	defer func() { s.NoError(in.scheduler.Stop()) }()

	in.scheduler.Trigger()

	s.Eventually(func() bool {
		return s.metrics.PassCount(metrics.OutcomeCreated) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func (s *SchedulerSuite) TestStopWithoutStart() {
	s.NoError(s.main.scheduler.Stop())
}
