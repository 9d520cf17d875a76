package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/lanequeue/internal/api/apierr"
	"github.com/mcoot/lanequeue/internal/api/response"
	"github.com/mcoot/lanequeue/internal/model"
	"github.com/mcoot/lanequeue/internal/services/channels"
	"github.com/mcoot/lanequeue/internal/services/ownership"
	"github.com/mcoot/lanequeue/internal/services/playerstate"
)

// PlayerHandler handles per-participant endpoints
type PlayerHandler struct {
	states   *playerstate.Service
	owners   *ownership.Service
	channels *channels.Registry
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(states *playerstate.Service, owners *ownership.Service, registry *channels.Registry) *PlayerHandler {
	return &PlayerHandler{
		states:   states,
		owners:   owners,
		channels: registry,
	}
}

// GetState handles GET /api/v1/players/{participant_id}/state
func (h *PlayerHandler) GetState(w http.ResponseWriter, r *http.Request) {
	id := model.ParticipantID(mux.Vars(r)["participant_id"])

	state, err := h.states.GetState(r.Context(), id)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	matchID, _, err := h.owners.Reconcile(r.Context(), id)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerState{
		ParticipantID: string(id),
		State:         string(state),
		MatchID:       string(matchID),
	})
}

// Heartbeat handles PUT /api/v1/players/{participant_id}/channel
func (h *PlayerHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	id := model.ParticipantID(mux.Vars(r)["participant_id"])

	if err := h.channels.Touch(r.Context(), id); err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// Disconnect handles DELETE /api/v1/players/{participant_id}/channel
func (h *PlayerHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	id := model.ParticipantID(mux.Vars(r)["participant_id"])

	if err := h.channels.Drop(r.Context(), id); err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.NoContent(w)
}
