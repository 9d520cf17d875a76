package redis

import (
	"fmt"

	"github.com/mcoot/lanequeue/internal/model"
)

// Key prefix for all queue-related data
const keyPrefix = "lanequeue"

// playerStateKey returns the Redis key for a participant's lifecycle state
func playerStateKey(id model.ParticipantID) string {
	return fmt.Sprintf("%s:state:%s", keyPrefix, id)
}

// ownershipKey returns the Redis key for participant -> match ownership
func ownershipKey(id model.ParticipantID) string {
	return fmt.Sprintf("%s:owner:%s", keyPrefix, id)
}

// lockKey returns the Redis key for a named singleton lock
func lockKey(name string) string {
	return fmt.Sprintf("%s:lock:%s", keyPrefix, name)
}

// sessionsKey returns the Redis key for the ZSET of participants with a
// delivery session, scored by their latest expiry in unix milliseconds
func sessionsKey() string {
	return fmt.Sprintf("%s:sessions", keyPrefix)
}

// connectionsKey returns the Redis key for the ZSET of one participant's
// open connections across all instances, scored like sessionsKey
func connectionsKey(id model.ParticipantID) string {
	return fmt.Sprintf("%s:session:%s", keyPrefix, id)
}

// PlayerChannel returns the pub/sub channel addressed to one participant
func PlayerChannel(id model.ParticipantID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// QueueChannel returns the pub/sub channel for queue-wide notifications
func QueueChannel() string {
	return fmt.Sprintf("%s:queue", keyPrefix)
}
