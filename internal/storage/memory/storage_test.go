package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

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
	s.storage = New()
	s.ctx = context.Background()
}

func (s *StorageSuite) enqueue(participants ...model.QueuedParticipant) {
	for i := range participants {
		s.Require().NoError(s.storage.Add(s.ctx, &participants[i]))
	}
}

// Queue tests

func (s *StorageSuite) TestAddAndGet() {
	p := testutil.Participant("alice", 1500, model.LaneMid, model.LaneTop, 0)
	s.enqueue(p)

	retrieved, err := s.storage.Get(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(p.Rating, retrieved.Rating)
	s.Equal(model.ProcessingAvailable, retrieved.Status)
}

func (s *StorageSuite) TestAddDuplicate() {
	p := testutil.Participant("alice", 1500, model.LaneMid, model.LaneTop, 0)
	s.enqueue(p)

	err := s.storage.Add(s.ctx, &p)
	s.ErrorIs(err, model.ErrAlreadyQueued)
}

func (s *StorageSuite) TestGetNotFound() {
	_, err := s.storage.Get(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrParticipantNotFound)
}

func (s *StorageSuite) TestListOrdersByJoinTimeWithPositions() {
	s.enqueue(
		testutil.Participant("late", 1000, model.LaneMid, model.LaneTop, 30),
		testutil.Participant("early", 1000, model.LaneMid, model.LaneTop, 10),
		testutil.Participant("middle", 1000, model.LaneMid, model.LaneTop, 20),
	)

	list, err := s.storage.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal(model.ParticipantID("early"), list[0].ID)
	s.Equal(model.ParticipantID("middle"), list[1].ID)
	s.Equal(model.ParticipantID("late"), list[2].ID)
	s.Equal(1, list[0].Position)
	s.Equal(3, list[2].Position)
}

func (s *StorageSuite) TestListEligibleSkipsProcessing() {
	s.enqueue(testutil.Lobby(3)...)
	s.Require().NoError(s.storage.MarkProcessing(s.ctx, []model.ParticipantID{"p02"}, testutil.BaseTime))

	eligible, err := s.storage.ListEligible(s.ctx)
	s.Require().NoError(err)
	s.Equal([]model.ParticipantID{"p01", "p03"}, model.ParticipantIDs(eligible))

	count, err := s.storage.CountEligible(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, count)
}

func (s *StorageSuite) TestMarkProcessingIsAllOrNothing() {
	s.enqueue(testutil.Lobby(3)...)
	s.Require().NoError(s.storage.MarkProcessing(s.ctx, []model.ParticipantID{"p02"}, testutil.BaseTime))

	err := s.storage.MarkProcessing(s.ctx, []model.ParticipantID{"p01", "p02", "p03"}, testutil.BaseTime)
	s.ErrorIs(err, model.ErrQueueConflict)

	p1, _ := s.storage.Get(s.ctx, "p01")
	s.Equal(model.ProcessingAvailable, p1.Status)
}

func (s *StorageSuite) TestMarkProcessingMissingParticipant() {
	s.enqueue(testutil.Lobby(1)...)
	err := s.storage.MarkProcessing(s.ctx, []model.ParticipantID{"p01", "ghost"}, testutil.BaseTime)
	s.ErrorIs(err, model.ErrQueueConflict)
}

func (s *StorageSuite) TestRevertProcessing() {
	s.enqueue(testutil.Lobby(2)...)
	ids := []model.ParticipantID{"p01", "p02"}
	s.Require().NoError(s.storage.MarkProcessing(s.ctx, ids, testutil.BaseTime))

	s.Require().NoError(s.storage.RevertProcessing(s.ctx, append(ids, "gone")))

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

func (s *StorageSuite) TestRemove() {
	s.enqueue(testutil.Lobby(1)...)

	s.Require().NoError(s.storage.Remove(s.ctx, "p01"))
	s.ErrorIs(s.storage.Remove(s.ctx, "p01"), model.ErrParticipantNotFound)

	member, err := s.storage.IsActiveMember(s.ctx, "p01")
	s.Require().NoError(err)
	s.False(member)
}

func (s *StorageSuite) TestRemoveAllIgnoresMissing() {
	s.enqueue(testutil.Lobby(2)...)
	s.Require().NoError(s.storage.RemoveAll(s.ctx, []model.ParticipantID{"p01", "p02", "p99"}))

	list, _ := s.storage.List(s.ctx)
	s.Empty(list)
}

// Match tests

func (s *StorageSuite) newMatch(id string, status model.MatchStatus, members ...model.ParticipantID) *model.Match {
	m := &model.Match{ID: model.MatchID(id), Status: status, CreatedAt: testutil.BaseTime}
	for i, p := range members {
		m.TeamA.Slots = append(m.TeamA.Slots, model.Slot{Lane: model.Lanes[i%5], ParticipantID: p})
	}
	return m
}

func (s *StorageSuite) TestSaveAndFindMatch() {
	m := s.newMatch("m1", model.MatchStatusPendingAcceptance, "p01")
	s.Require().NoError(s.storage.Save(s.ctx, m))

	found, err := s.storage.FindByID(s.ctx, "m1")
	s.Require().NoError(err)
	s.Equal(model.MatchStatusPendingAcceptance, found.Status)
	s.True(found.Includes("p01"))
}

func (s *StorageSuite) TestFindMatchNotFound() {
	_, err := s.storage.FindByID(s.ctx, "missing")
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *StorageSuite) TestFindActiveForParticipant() {
	s.Require().NoError(s.storage.Save(s.ctx, s.newMatch("old", model.MatchStatusCompleted, "p01")))

	_, err := s.storage.FindActiveForParticipant(s.ctx, "p01")
	s.ErrorIs(err, model.ErrMatchNotFound)

	active := s.newMatch("new", model.MatchStatusDrafting, "p01")
	active.CreatedAt = testutil.BaseTime.Add(time.Minute)
	s.Require().NoError(s.storage.Save(s.ctx, active))

	found, err := s.storage.FindActiveForParticipant(s.ctx, "p01")
	s.Require().NoError(err)
	s.Equal(model.MatchID("new"), found.ID)
}

func (s *StorageSuite) TestUpdateStatus() {
	s.Require().NoError(s.storage.Save(s.ctx, s.newMatch("m1", model.MatchStatusPendingAcceptance, "p01")))

	s.Require().NoError(s.storage.UpdateStatus(s.ctx, "m1", model.MatchStatusCancelled))

	found, _ := s.storage.FindByID(s.ctx, "m1")
	s.Equal(model.MatchStatusCancelled, found.Status)
	s.ErrorIs(s.storage.UpdateStatus(s.ctx, "missing", model.MatchStatusCancelled), model.ErrMatchNotFound)
}

func (s *StorageSuite) TestReturnedMatchIsACopy() {
	s.Require().NoError(s.storage.Save(s.ctx, s.newMatch("m1", model.MatchStatusPendingAcceptance, "p01")))

	found, _ := s.storage.FindByID(s.ctx, "m1")
	found.Status = model.MatchStatusCompleted
	found.TeamA.Slots[0].ParticipantID = "other"

	again, _ := s.storage.FindByID(s.ctx, "m1")
	s.Equal(model.MatchStatusPendingAcceptance, again.Status)
	s.True(again.Includes("p01"))
}
