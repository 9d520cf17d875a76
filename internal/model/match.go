package model

import "time"

// MatchID uniquely identifies a match
type MatchID string

// TeamSize is the number of participants per side
const TeamSize = 5

// MatchSize is the number of participants needed to form a match
const MatchSize = 2 * TeamSize

// MatchStatus is the lifecycle status of a match
type MatchStatus string

const (
	MatchStatusFormed            MatchStatus = "formed"
	MatchStatusPendingAcceptance MatchStatus = "pending_acceptance"
	MatchStatusDrafting          MatchStatus = "drafting"
	MatchStatusInProgress        MatchStatus = "in_progress"
	MatchStatusCompleted         MatchStatus = "completed"
	MatchStatusCancelled         MatchStatus = "cancelled"
)

// IsActive reports whether participants of a match in this status are held by it
func (s MatchStatus) IsActive() bool {
	switch s {
	case MatchStatusPendingAcceptance, MatchStatusDrafting, MatchStatusInProgress:
		return true
	}
	return false
}

// IsTerminal reports whether the match has ended
func (s MatchStatus) IsTerminal() bool {
	return s == MatchStatusCompleted || s == MatchStatusCancelled
}

// Side identifies one of the two teams
type Side int

const (
	SideA Side = iota
	SideB
)

func (s Side) String() string {
	if s == SideA {
		return "A"
	}
	return "B"
}

// Slot is one assigned (lane, participant) pair on a team
type Slot struct {
	Lane          Lane
	ParticipantID ParticipantID
	Rating        int
}

// Roster is one side of a match
type Roster struct {
	Slots       []Slot
	TotalRating int
}

// ParticipantIDs returns the roster's participants in lane order
func (r Roster) ParticipantIDs() []ParticipantID {
	ids := make([]ParticipantID, len(r.Slots))
	for i, s := range r.Slots {
		ids[i] = s.ParticipantID
	}
	return ids
}

// Match is the authoritative record of a formed match
type Match struct {
	ID        MatchID
	Status    MatchStatus
	TeamA     Roster
	TeamB     Roster
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ParticipantIDs returns all ten participants, side A first
func (m *Match) ParticipantIDs() []ParticipantID {
	return append(m.TeamA.ParticipantIDs(), m.TeamB.ParticipantIDs()...)
}

// Includes reports whether id is on either roster
func (m *Match) Includes(id ParticipantID) bool {
	for _, p := range m.ParticipantIDs() {
		if p == id {
			return true
		}
	}
	return false
}
