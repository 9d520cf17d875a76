package balance

import (
	"sort"

	"github.com/mcoot/lanequeue/internal/model"
)

// Result is a complete two-team lane assignment
type Result struct {
	TeamA model.Roster
	TeamB model.Roster
}

// Func is the signature of a balancer, so callers can substitute one in tests
type Func func(participants []model.QueuedParticipant) (Result, error)

type board [2][]*model.QueuedParticipant

func (b *board) free(side model.Side, lane model.Lane) bool {
	i := lane.Index()
	return i >= 0 && b[side][i] == nil
}

func (b *board) take(side model.Side, lane model.Lane, p *model.QueuedParticipant) {
	b[side][lane.Index()] = p
}

// Balance assigns exactly ten participants to two teams of five, one per lane.
//
// Participants are placed strongest first (ties by earlier join, then id).
// Each takes the first free slot among: primary lane on A, primary on B,
// secondary on A, secondary on B, first free lane on A, first free lane on B.
// Any unfilled slot fails the whole assignment.
func Balance(participants []model.QueuedParticipant) (Result, error) {
	if len(participants) != model.MatchSize {
		return Result{}, model.ErrInvalidBalanceInput
	}
	seen := make(map[model.ParticipantID]bool, len(participants))
	for _, p := range participants {
		if seen[p.ID] {
			return Result{}, model.ErrInvalidBalanceInput
		}
		seen[p.ID] = true
	}

	ordered := make([]*model.QueuedParticipant, len(participants))
	for i := range participants {
		ordered[i] = &participants[i]
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.ID < b.ID
	})

	var b board
	for side := range b {
		b[side] = make([]*model.QueuedParticipant, len(model.Lanes))
	}

	for _, p := range ordered {
		place(&b, p)
	}

	return collect(&b)
}

func place(b *board, p *model.QueuedParticipant) {
	for _, lane := range []model.Lane{p.PrimaryLane, p.SecondaryLane} {
		for _, side := range []model.Side{model.SideA, model.SideB} {
			if b.free(side, lane) {
				b.take(side, lane, p)
				return
			}
		}
	}

	// Autofill
	for _, side := range []model.Side{model.SideA, model.SideB} {
		for _, lane := range model.Lanes {
			if b.free(side, lane) {
				b.take(side, lane, p)
				return
			}
		}
	}
}

func collect(b *board) (Result, error) {
	var result Result
	for side, roster := range []*model.Roster{&result.TeamA, &result.TeamB} {
		for i, p := range b[side] {
			if p == nil {
				return Result{}, model.ErrBalanceIncomplete
			}
			roster.Slots = append(roster.Slots, model.Slot{
				Lane:          model.Lanes[i],
				ParticipantID: p.ID,
				Rating:        p.Rating,
			})
			roster.TotalRating += p.Rating
		}
	}
	return result, nil
}
