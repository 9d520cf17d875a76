package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/lanequeue/internal/api/apierr"
	"github.com/mcoot/lanequeue/internal/api/request"
	"github.com/mcoot/lanequeue/internal/api/response"
	"github.com/mcoot/lanequeue/internal/model"
	"github.com/mcoot/lanequeue/internal/services/queue"
)

// QueueHandler handles queue membership endpoints
type QueueHandler struct {
	queue *queue.Service
}

// NewQueueHandler creates a new queue handler
func NewQueueHandler(queueService *queue.Service) *QueueHandler {
	return &QueueHandler{
		queue: queueService,
	}
}

// Join handles POST /api/v1/queue
func (h *QueueHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req request.JoinQueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("invalid request body"))
		return
	}

	if req.ParticipantID == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("participant_id is required"))
		return
	}
	if req.PrimaryLane == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("primary_lane is required"))
		return
	}

	p, err := h.queue.Join(r.Context(), queue.JoinRequest{
		ID:            model.ParticipantID(req.ParticipantID),
		DisplayName:   req.DisplayName,
		Region:        req.Region,
		Rating:        req.Rating,
		PrimaryLane:   model.Lane(req.PrimaryLane),
		SecondaryLane: model.Lane(req.SecondaryLane),
		IsBot:         req.IsBot,
	})
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.QueueEntryFromModel(p))
}

// Leave handles DELETE /api/v1/queue/{participant_id}
func (h *QueueHandler) Leave(w http.ResponseWriter, r *http.Request) {
	id := model.ParticipantID(mux.Vars(r)["participant_id"])

	if err := h.queue.Leave(r.Context(), id); err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// List handles GET /api/v1/queue
func (h *QueueHandler) List(w http.ResponseWriter, r *http.Request) {
	positions, err := h.queue.Positions(r.Context())
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	entries := make([]response.QueueEntry, len(positions))
	for i := range positions {
		entries[i] = response.QueueEntryFromModel(&positions[i])
	}
	response.JSON(w, http.StatusOK, response.QueueResponse{Entries: entries})
}
