package stream

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/lanequeue/internal/model"
)

const (
	// Time between keepalive pings; each one also refreshes the delivery channel
	pingPeriod = 30 * time.Second

	// Buffer size for outgoing messages
	sendBufferSize = 256
)

// Presence records which connections keep a participant's delivery channel
// alive, across every instance
type Presence interface {
	TouchConnection(ctx context.Context, id model.ParticipantID, conn string) error
	DropConnection(ctx context.Context, id model.ParticipantID, conn string) error
}

// Client represents a connected SSE client
type Client struct {
	participantID model.ParticipantID
	connID        string
	send          chan []byte
	connectedAt   time.Time
}

// NewClient creates a new SSE client with a unique connection id
func NewClient(participantID model.ParticipantID) *Client {
	return &Client{
		participantID: participantID,
		connID:        uuid.NewString(),
		send:          make(chan []byte, sendBufferSize),
		connectedAt:   time.Now(),
	}
}

// ServeSSE streams a participant's events until the request ends, keeping
// their delivery channel alive for the duration
func ServeSSE(w http.ResponseWriter, r *http.Request, hub *Hub, presence Presence, id model.ParticipantID, logger *slog.Logger) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	// The stream outlives the server's write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ctx := r.Context()
	client := NewClient(id)
	touch := func() {
		if err := presence.TouchConnection(ctx, id, client.connID); err != nil && ctx.Err() == nil {
			logger.Warn("failed to refresh delivery channel",
				slog.String("participant_id", string(id)),
				slog.String("error", err.Error()))
		}
	}
	touch()

	hub.Register(client)

	defer func() {
		hub.Unregister(client)
		// The request context is already done; use a fresh one for the cleanup
		if err := presence.DropConnection(context.WithoutCancel(ctx), id, client.connID); err != nil {
			logger.Warn("failed to drop delivery channel",
				slog.String("participant_id", string(id)),
				slog.String("error", err.Error()))
		}
	}()

	_, _ = w.Write(formatSSEMessage("connected", `{"status":"connected"}`))
	flusher.Flush()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				return
			}
			if _, err := w.Write(message); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			touch()
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-ctx.Done():
			return
		}
	}
}
