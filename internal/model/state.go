package model

// PlayerState is a participant's lifecycle state as held in the state cache
type PlayerState string

const (
	StateAvailable      PlayerState = "AVAILABLE"
	StateInQueue        PlayerState = "IN_QUEUE"
	StateInMatchPending PlayerState = "IN_MATCH_PENDING" // selected, awaiting acceptance
	StateInDraft        PlayerState = "IN_DRAFT"
	StateInGame         PlayerState = "IN_GAME"
)

// transitions lists the states reachable from each state through a normal
// business transition. Anything else needs a forced correction.
var transitions = map[PlayerState][]PlayerState{
	StateAvailable:      {StateInQueue},
	StateInQueue:        {StateAvailable, StateInMatchPending},
	StateInMatchPending: {StateInDraft, StateInQueue, StateAvailable},
	StateInDraft:        {StateInGame, StateAvailable},
	StateInGame:         {StateAvailable},
}

// Valid reports whether s is a known lifecycle state
func (s PlayerState) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// InMatch reports whether s claims the participant belongs to a match
func (s PlayerState) InMatch() bool {
	switch s {
	case StateInMatchPending, StateInDraft, StateInGame:
		return true
	}
	return false
}

// CanTransitionTo reports whether s -> next is a permitted business transition.
// Re-asserting the current state is permitted and only refreshes its expiry.
func (s PlayerState) CanTransitionTo(next PlayerState) bool {
	if s == next {
		return s.Valid()
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// StateForMatchStatus maps an active match status to the lifecycle state its
// participants must be in. ok is false for statuses that do not hold players.
func StateForMatchStatus(status MatchStatus) (PlayerState, bool) {
	switch status {
	case MatchStatusPendingAcceptance:
		return StateInMatchPending, true
	case MatchStatusDrafting:
		return StateInDraft, true
	case MatchStatusInProgress:
		return StateInGame, true
	}
	return "", false
}
