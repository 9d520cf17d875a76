package request

// JoinQueueRequest is the request body for entering the queue
type JoinQueueRequest struct {
	ParticipantID string `json:"participant_id"`
	DisplayName   string `json:"display_name"`
	Region        string `json:"region,omitempty"`
	Rating        int    `json:"rating"`
	PrimaryLane   string `json:"primary_lane"`
	SecondaryLane string `json:"secondary_lane,omitempty"`
	IsBot         bool   `json:"is_bot,omitempty"`
}

// AddBotsRequest is the request body for queueing simulated participants
type AddBotsRequest struct {
	Count    int    `json:"count"`
	Strategy string `json:"strategy,omitempty"`
}
