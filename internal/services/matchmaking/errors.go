package matchmaking

import (
	"fmt"
	"strings"

	"github.com/mcoot/lanequeue/internal/model"
)

// Step identifies a validation step of match creation
type Step int

const (
	StepQueueMembership Step = iota + 1
	StepPlayerState
	StepOwnership
	StepChannel
	StepTransition
)

func (s Step) String() string {
	switch s {
	case StepQueueMembership:
		return "queue_membership"
	case StepPlayerState:
		return "player_state"
	case StepOwnership:
		return "ownership"
	case StepChannel:
		return "channel"
	case StepTransition:
		return "transition"
	}
	return fmt.Sprintf("step_%d", int(s))
}

// AbortError reports a validation failure that cancelled match creation.
// Nothing was persisted and every participant was restored.
type AbortError struct {
	Step         Step
	Participants []model.ParticipantID
	Cause        error
}

func (e *AbortError) Error() string {
	ids := make([]string, len(e.Participants))
	for i, id := range e.Participants {
		ids[i] = string(id)
	}
	return fmt.Sprintf("match creation aborted at %s [%s]: %v", e.Step, strings.Join(ids, ","), e.Cause)
}

func (e *AbortError) Unwrap() error {
	return e.Cause
}
