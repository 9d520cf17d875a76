package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mcoot/lanequeue/internal/model"
	"github.com/mcoot/lanequeue/internal/testutil"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err)

	// Every pooled connection would otherwise get its own empty database
	sqlDB, err := db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	s.storage = NewWithDB(db)
	s.Require().NoError(s.storage.Migrate())
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
}

func (s *StorageSuite) enqueue(participants ...model.QueuedParticipant) {
	for i := range participants {
		s.Require().NoError(s.storage.Add(s.ctx, &participants[i]))
	}
}

// Queue tests

func (s *StorageSuite) TestAddAndGet() {
	p := testutil.Participant("alice", 1500, model.LaneMid, model.LaneSupport, 0)
	p.IsBot = true
	s.enqueue(p)

	retrieved, err := s.storage.Get(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(1500, retrieved.Rating)
	s.Equal(model.LaneMid, retrieved.PrimaryLane)
	s.Equal(model.LaneSupport, retrieved.SecondaryLane)
	s.True(retrieved.IsBot)
	s.Equal(model.ProcessingAvailable, retrieved.Status)
	s.True(p.JoinedAt.Equal(retrieved.JoinedAt))
}

func (s *StorageSuite) TestAddDuplicate() {
	p := testutil.Participant("alice", 1500, model.LaneMid, model.LaneTop, 0)
	s.enqueue(p)

	s.ErrorIs(s.storage.Add(s.ctx, &p), model.ErrAlreadyQueued)
}

func (s *StorageSuite) TestGetNotFound() {
	_, err := s.storage.Get(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrParticipantNotFound)
}

func (s *StorageSuite) TestListOrdersByJoinTime() {
	s.enqueue(
		testutil.Participant("c", 1000, model.LaneMid, model.LaneTop, 30),
		testutil.Participant("a", 1000, model.LaneMid, model.LaneTop, 10),
		testutil.Participant("b", 1000, model.LaneMid, model.LaneTop, 20),
	)

	list, err := s.storage.List(s.ctx)
	s.Require().NoError(err)
	s.Equal([]model.ParticipantID{"a", "b", "c"}, model.ParticipantIDs(list))
	s.Equal(2, list[1].Position)
}

func (s *StorageSuite) TestMarkProcessingClaimsAll() {
	s.enqueue(testutil.Lobby(4)...)
	ids := []model.ParticipantID{"p01", "p02", "p03"}

	s.Require().NoError(s.storage.MarkProcessing(s.ctx, ids, testutil.BaseTime))

	eligible, err := s.storage.ListEligible(s.ctx)
	s.Require().NoError(err)
	s.Equal([]model.ParticipantID{"p04"}, model.ParticipantIDs(eligible))
	s.Equal(4, eligible[0].Position)
}

func (s *StorageSuite) TestMarkProcessingRollsBackOnConflict() {
	s.enqueue(testutil.Lobby(3)...)
	s.Require().NoError(s.storage.MarkProcessing(s.ctx, []model.ParticipantID{"p03"}, testutil.BaseTime))

	err := s.storage.MarkProcessing(s.ctx, []model.ParticipantID{"p01", "p02", "p03"}, testutil.BaseTime)
	s.ErrorIs(err, model.ErrQueueConflict)

	count, err := s.storage.CountEligible(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, count, "p01 and p02 must stay available")
}

func (s *StorageSuite) TestRevertProcessing() {
	s.enqueue(testutil.Lobby(2)...)
	ids := []model.ParticipantID{"p01", "p02"}
	s.Require().NoError(s.storage.MarkProcessing(s.ctx, ids, testutil.BaseTime))

	s.Require().NoError(s.storage.RevertProcessing(s.ctx, ids))

	count, _ := s.storage.CountEligible(s.ctx)
	s.Equal(2, count)

	p1, err := s.storage.Get(s.ctx, "p01")
	s.Require().NoError(err)
	s.True(p1.ClaimedAt.IsZero())
}

func (s *StorageSuite) TestListStaleClaims() {
	s.enqueue(testutil.Lobby(4)...)
	s.Require().NoError(s.storage.MarkProcessing(s.ctx, []model.ParticipantID{"p02", "p01"}, testutil.BaseTime))
	s.Require().NoError(s.storage.MarkProcessing(s.ctx, []model.ParticipantID{"p03"}, testutil.BaseTime.Add(10*time.Minute)))

	stale, err := s.storage.ListStaleClaims(s.ctx, testutil.BaseTime.Add(5*time.Minute))
	s.Require().NoError(err)
	s.Equal([]model.ParticipantID{"p01", "p02"}, model.ParticipantIDs(stale))
	s.True(stale[0].ClaimedAt.Equal(testutil.BaseTime))

	stale, err = s.storage.ListStaleClaims(s.ctx, testutil.BaseTime)
	s.Require().NoError(err)
	s.Empty(stale)
}

func (s *StorageSuite) TestRemoveAndMembership() {
	s.enqueue(testutil.Lobby(2)...)

	member, err := s.storage.IsActiveMember(s.ctx, "p01")
	s.Require().NoError(err)
	s.True(member)

	s.Require().NoError(s.storage.Remove(s.ctx, "p01"))
	s.ErrorIs(s.storage.Remove(s.ctx, "p01"), model.ErrParticipantNotFound)

	member, _ = s.storage.IsActiveMember(s.ctx, "p01")
	s.False(member)

	s.Require().NoError(s.storage.RemoveAll(s.ctx, []model.ParticipantID{"p02", "p09"}))
	list, _ := s.storage.List(s.ctx)
	s.Empty(list)
}

// Match tests

func (s *StorageSuite) newMatch(id string, status model.MatchStatus, created time.Time) *model.Match {
	m := &model.Match{
		ID:        model.MatchID(id),
		Status:    status,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for i, lane := range model.Lanes {
		m.TeamA.Slots = append(m.TeamA.Slots, model.Slot{Lane: lane, ParticipantID: model.ParticipantID("a" + string(lane)), Rating: 1000 + i})
		m.TeamB.Slots = append(m.TeamB.Slots, model.Slot{Lane: lane, ParticipantID: model.ParticipantID("b" + string(lane)), Rating: 900 + i})
		m.TeamA.TotalRating += 1000 + i
		m.TeamB.TotalRating += 900 + i
	}
	return m
}

func (s *StorageSuite) TestSaveAndFindMatch() {
	m := s.newMatch("m1", model.MatchStatusPendingAcceptance, testutil.BaseTime)
	s.Require().NoError(s.storage.Save(s.ctx, m))

	found, err := s.storage.FindByID(s.ctx, "m1")
	s.Require().NoError(err)
	s.Equal(model.MatchStatusPendingAcceptance, found.Status)
	s.Equal(m.TeamA.TotalRating, found.TeamA.TotalRating)
	s.Require().Len(found.TeamA.Slots, model.TeamSize)
	s.Require().Len(found.TeamB.Slots, model.TeamSize)
	s.Equal(model.LaneTop, found.TeamA.Slots[0].Lane)
	s.Equal(model.ParticipantID("bsupport"), found.TeamB.Slots[4].ParticipantID)
}

func (s *StorageSuite) TestSaveIsIdempotent() {
	m := s.newMatch("m1", model.MatchStatusPendingAcceptance, testutil.BaseTime)
	s.Require().NoError(s.storage.Save(s.ctx, m))
	s.Require().NoError(s.storage.Save(s.ctx, m))

	found, err := s.storage.FindByID(s.ctx, "m1")
	s.Require().NoError(err)
	s.Len(found.ParticipantIDs(), model.MatchSize)
}

func (s *StorageSuite) TestFindMatchNotFound() {
	_, err := s.storage.FindByID(s.ctx, "missing")
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *StorageSuite) TestFindActiveForParticipant() {
	s.Require().NoError(s.storage.Save(s.ctx, s.newMatch("done", model.MatchStatusCompleted, testutil.BaseTime)))

	_, err := s.storage.FindActiveForParticipant(s.ctx, "amid")
	s.ErrorIs(err, model.ErrMatchNotFound)

	s.Require().NoError(s.storage.Save(s.ctx, s.newMatch("live", model.MatchStatusInProgress, testutil.BaseTime.Add(time.Hour))))

	found, err := s.storage.FindActiveForParticipant(s.ctx, "amid")
	s.Require().NoError(err)
	s.Equal(model.MatchID("live"), found.ID)

	_, err = s.storage.FindActiveForParticipant(s.ctx, "stranger")
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *StorageSuite) TestUpdateStatus() {
	s.Require().NoError(s.storage.Save(s.ctx, s.newMatch("m1", model.MatchStatusPendingAcceptance, testutil.BaseTime)))

	s.Require().NoError(s.storage.UpdateStatus(s.ctx, "m1", model.MatchStatusCancelled))

	found, _ := s.storage.FindByID(s.ctx, "m1")
	s.Equal(model.MatchStatusCancelled, found.Status)

	s.ErrorIs(s.storage.UpdateStatus(s.ctx, "missing", model.MatchStatusCancelled), model.ErrMatchNotFound)
}
