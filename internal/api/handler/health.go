package handler

import (
	"net/http"

	"github.com/mcoot/lanequeue/internal/api/response"
	"github.com/mcoot/lanequeue/internal/services/channels"
	"github.com/mcoot/lanequeue/internal/services/queue"
)

// HealthHandler reports whether the backends answer, with a little queue context
type HealthHandler struct {
	queue    *queue.Service
	channels *channels.Registry
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(queueService *queue.Service, registry *channels.Registry) *HealthHandler {
	return &HealthHandler{
		queue:    queueService,
		channels: registry,
	}
}

// Check handles GET /api/v1/health. Any backend error reports 503.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	positions, err := h.queue.Positions(r.Context())
	if err != nil {
		response.JSON(w, http.StatusServiceUnavailable, response.Health{Status: "unavailable"})
		return
	}
	connected, err := h.channels.ConnectedCount(r.Context())
	if err != nil {
		response.JSON(w, http.StatusServiceUnavailable, response.Health{Status: "unavailable"})
		return
	}

	response.JSON(w, http.StatusOK, response.Health{
		Status:    "ok",
		Queued:    len(positions),
		Connected: connected,
	})
}
