package response

import (
	"time"

	"github.com/mcoot/lanequeue/internal/model"
	"github.com/mcoot/lanequeue/internal/services/scheduler"
)

// QueueEntry represents a queued participant in API responses
type QueueEntry struct {
	ParticipantID string    `json:"participant_id"`
	DisplayName   string    `json:"display_name"`
	Rating        int       `json:"rating"`
	PrimaryLane   string    `json:"primary_lane"`
	SecondaryLane string    `json:"secondary_lane,omitempty"`
	IsBot         bool      `json:"is_bot,omitempty"`
	Position      int       `json:"position,omitempty"`
	Processing    bool      `json:"processing,omitempty"`
	JoinedAt      time.Time `json:"joined_at"`
}

// QueueEntryFromModel converts a model.QueuedParticipant
func QueueEntryFromModel(p *model.QueuedParticipant) QueueEntry {
	return QueueEntry{
		ParticipantID: string(p.ID),
		DisplayName:   p.DisplayName,
		Rating:        p.Rating,
		PrimaryLane:   string(p.PrimaryLane),
		SecondaryLane: string(p.SecondaryLane),
		IsBot:         p.IsBot,
		Position:      p.Position,
		Processing:    p.Status == model.ProcessingActive,
		JoinedAt:      p.JoinedAt,
	}
}

// QueueResponse lists the queue in join order
type QueueResponse struct {
	Entries []QueueEntry `json:"entries"`
}

// PlayerState is the reconciled lifecycle state of a participant
type PlayerState struct {
	ParticipantID string `json:"participant_id"`
	State         string `json:"state"`
	MatchID       string `json:"match_id,omitempty"`
}

// Slot is one lane assignment in a team
type Slot struct {
	Lane          string `json:"lane"`
	ParticipantID string `json:"participant_id"`
	Rating        int    `json:"rating"`
}

// Team represents one side of a match
type Team struct {
	Slots       []Slot `json:"slots"`
	TotalRating int    `json:"total_rating"`
}

// TeamFromModel converts a model.Roster
func TeamFromModel(r model.Roster) Team {
	slots := make([]Slot, len(r.Slots))
	for i, s := range r.Slots {
		slots[i] = Slot{
			Lane:          string(s.Lane),
			ParticipantID: string(s.ParticipantID),
			Rating:        s.Rating,
		}
	}
	return Team{Slots: slots, TotalRating: r.TotalRating}
}

// Match represents a formed match
type Match struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	TeamA     Team      `json:"team_a"`
	TeamB     Team      `json:"team_b"`
	CreatedAt time.Time `json:"created_at"`
}

// MatchFromModel converts a model.Match
func MatchFromModel(m *model.Match) Match {
	return Match{
		ID:        string(m.ID),
		Status:    string(m.Status),
		TeamA:     TeamFromModel(m.TeamA),
		TeamB:     TeamFromModel(m.TeamB),
		CreatedAt: m.CreatedAt,
	}
}

// PassResponse reports the result of a manual processing pass
type PassResponse struct {
	Outcome string  `json:"outcome"`
	Matches []Match `json:"matches"`
}

// PassResponseFromResult converts a scheduler.Result
func PassResponseFromResult(r scheduler.Result) PassResponse {
	matches := make([]Match, len(r.Matches))
	for i, m := range r.Matches {
		matches[i] = MatchFromModel(m)
	}
	return PassResponse{Outcome: string(r.Outcome), Matches: matches}
}

// Health is the health check response
type Health struct {
	Status    string `json:"status"`
	Queued    int    `json:"queued"`
	Connected int    `json:"connected"`
}
