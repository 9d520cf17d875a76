package model

import (
	"strings"
	"time"
)

// ParticipantID uniquely identifies a queued participant
type ParticipantID string

// BotPrefix marks simulated participants that have no delivery channel
const BotPrefix = "bot-"

// Lane is a role slot within a team
type Lane string

const (
	LaneTop     Lane = "top"
	LaneJungle  Lane = "jungle"
	LaneMid     Lane = "mid"
	LaneCarry   Lane = "carry"
	LaneSupport Lane = "support"
)

// Lanes lists every lane in autofill order
var Lanes = []Lane{LaneTop, LaneJungle, LaneMid, LaneCarry, LaneSupport}

// Index returns the lane's position in Lanes, or -1 for an unknown lane
func (l Lane) Index() int {
	for i, lane := range Lanes {
		if lane == l {
			return i
		}
	}
	return -1
}

// Valid reports whether l is one of the five known lanes
func (l Lane) Valid() bool {
	return l.Index() >= 0
}

// ProcessingStatus is the queue row marker used to prevent double selection
type ProcessingStatus string

const (
	ProcessingAvailable ProcessingStatus = "available"
	ProcessingActive    ProcessingStatus = "processing"
)

// QueuedParticipant is a participant waiting in the queue.
// The Queue Store owns it; everything else only holds projections.
type QueuedParticipant struct {
	ID            ParticipantID
	DisplayName   string
	Region        string
	Rating        int
	PrimaryLane   Lane
	SecondaryLane Lane
	IsBot         bool
	JoinedAt      time.Time
	Status        ProcessingStatus
	ClaimedAt     time.Time // when Status became processing; zero while available
	Position      int       // derived, 1-based; zero when not computed
}

// ClaimStale reports whether the row is processing under a claim older than
// ttl. Only a crashed or expired pass leaves such a claim behind.
func (p *QueuedParticipant) ClaimStale(now time.Time, ttl time.Duration) bool {
	return p.Status == ProcessingActive && now.Sub(p.ClaimedAt) > ttl
}

// IsSimulated reports whether the participant is a bot exempt from channel checks
func (p *QueuedParticipant) IsSimulated() bool {
	return p.IsBot || IsBotID(p.ID)
}

// IsBotID reports whether id follows the bot naming convention
func IsBotID(id ParticipantID) bool {
	return strings.HasPrefix(string(id), BotPrefix)
}

// ParticipantIDs extracts the ids of the given participants, preserving order
func ParticipantIDs(participants []QueuedParticipant) []ParticipantID {
	ids := make([]ParticipantID, len(participants))
	for i, p := range participants {
		ids[i] = p.ID
	}
	return ids
}
