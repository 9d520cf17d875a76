package testutil

import (
	"fmt"
	"time"

	"github.com/mcoot/lanequeue/internal/model"
)

// BaseTime is the reference instant used by fixtures
var BaseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// Participant builds a queued participant who joined offset seconds after BaseTime
func Participant(id string, rating int, primary, secondary model.Lane, offset int) model.QueuedParticipant {
	return model.QueuedParticipant{
		ID:            model.ParticipantID(id),
		DisplayName:   id,
		Region:        "euw",
		Rating:        rating,
		PrimaryLane:   primary,
		SecondaryLane: secondary,
		JoinedAt:      BaseTime.Add(time.Duration(offset) * time.Second),
		Status:        model.ProcessingAvailable,
	}
}

// Lobby builds n participants p01..pNN with descending ratings, joining one
// second apart, cycling primary lanes through model.Lanes.
func Lobby(n int) []model.QueuedParticipant {
	participants := make([]model.QueuedParticipant, n)
	for i := 0; i < n; i++ {
		primary := model.Lanes[i%len(model.Lanes)]
		secondary := model.Lanes[(i+1)%len(model.Lanes)]
		participants[i] = Participant(fmt.Sprintf("p%02d", i+1), 2000-i*10, primary, secondary, i)
	}
	return participants
}

// Match builds a match whose first five ids form side A and the rest side B,
// one per lane in model.Lanes order.
func Match(id string, status model.MatchStatus, participants ...model.ParticipantID) *model.Match {
	m := &model.Match{
		ID:        model.MatchID(id),
		Status:    status,
		CreatedAt: BaseTime,
		UpdatedAt: BaseTime,
	}
	for i, pid := range participants {
		slot := model.Slot{Lane: model.Lanes[i%len(model.Lanes)], ParticipantID: pid, Rating: 1000}
		if i < model.TeamSize {
			m.TeamA.Slots = append(m.TeamA.Slots, slot)
			m.TeamA.TotalRating += slot.Rating
		} else {
			m.TeamB.Slots = append(m.TeamB.Slots, slot)
			m.TeamB.TotalRating += slot.Rating
		}
	}
	return m
}
