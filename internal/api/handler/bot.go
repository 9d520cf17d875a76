package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/lanequeue/internal/api/apierr"
	"github.com/mcoot/lanequeue/internal/api/request"
	"github.com/mcoot/lanequeue/internal/api/response"
	"github.com/mcoot/lanequeue/internal/services/bot"
)

// BotHandler handles simulated participant endpoints
type BotHandler struct {
	bots *bot.Service
}

// NewBotHandler creates a new bot handler
func NewBotHandler(bots *bot.Service) *BotHandler {
	return &BotHandler{
		bots: bots,
	}
}

// Add handles POST /api/v1/bots
func (h *BotHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req request.AddBotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("invalid request body"))
		return
	}

	added, err := h.bots.AddBots(r.Context(), req.Count, req.Strategy)
	if errors.Is(err, bot.ErrUnknownStrategy) || errors.Is(err, bot.ErrInvalidCount) {
		apierr.WriteError(w, apierr.NewInvalidRequestError(err.Error()))
		return
	}
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	entries := make([]response.QueueEntry, len(added))
	for i, p := range added {
		entries[i] = response.QueueEntryFromModel(p)
	}
	response.JSON(w, http.StatusCreated, response.QueueResponse{Entries: entries})
}
