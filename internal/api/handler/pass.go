package handler

import (
	"net/http"

	"github.com/mcoot/lanequeue/internal/api/apierr"
	"github.com/mcoot/lanequeue/internal/api/response"
	"github.com/mcoot/lanequeue/internal/services/scheduler"
)

// PassHandler runs processing passes on request
type PassHandler struct {
	scheduler *scheduler.Scheduler
}

// NewPassHandler creates a new pass handler
func NewPassHandler(s *scheduler.Scheduler) *PassHandler {
	return &PassHandler{
		scheduler: s,
	}
}

// Run handles POST /api/v1/passes. A pass that loses the lock is reported
// with outcome lock_held rather than as an error.
func (h *PassHandler) Run(w http.ResponseWriter, r *http.Request) {
	result, err := h.scheduler.RunOnce(r.Context())
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PassResponseFromResult(result))
}
