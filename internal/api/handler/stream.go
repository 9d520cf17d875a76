package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/lanequeue/internal/model"
	"github.com/mcoot/lanequeue/internal/services/channels"
	"github.com/mcoot/lanequeue/internal/stream"
)

// StreamHandler serves participants' event streams
type StreamHandler struct {
	hub      *stream.Hub
	channels *channels.Registry
	logger   *slog.Logger
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(hub *stream.Hub, registry *channels.Registry, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		hub:      hub,
		channels: registry,
		logger:   logger,
	}
}

// Events handles GET /api/v1/players/{participant_id}/events.
// The open stream counts as the participant's delivery channel.
func (h *StreamHandler) Events(w http.ResponseWriter, r *http.Request) {
	id := model.ParticipantID(mux.Vars(r)["participant_id"])
	stream.ServeSSE(w, r, h.hub, h.channels, id, h.logger)
}
