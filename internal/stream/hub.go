package stream

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mcoot/lanequeue/internal/model"
)

// delivery is one message for one participant, or for everyone when to is empty
type delivery struct {
	to      model.ParticipantID
	message []byte
}

// registration is acknowledged once the client can receive deliveries
type registration struct {
	client *Client
	done   chan struct{}
}

// unregistration carries a reply reporting whether the participant has no
// other client left on this instance
type unregistration struct {
	client *Client
	last   chan bool
}

// Hub manages the SSE clients connected to this instance
type Hub struct {
	clients map[model.ParticipantID]map[*Client]bool
	mu      sync.RWMutex
	logger  *slog.Logger

	// Channels for managing clients
	register   chan registration
	unregister chan unregistration
	deliver    chan delivery
	done       chan struct{}
	closeOnce  sync.Once
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[model.ParticipantID]map[*Client]bool),
		logger:     logger.With(slog.String("component", "stream")),
		register:   make(chan registration),
		unregister: make(chan unregistration),
		deliver:    make(chan delivery, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	h.logger.Info("stream hub started")
	for {
		select {
		case req := <-h.register:
			client := req.client
			h.mu.Lock()
			set, ok := h.clients[client.participantID]
			if !ok {
				set = make(map[*Client]bool)
				h.clients[client.participantID] = set
			}
			set[client] = true
			h.mu.Unlock()
			close(req.done)
			h.logger.Debug("stream client registered",
				slog.String("participant_id", string(client.participantID)))

		case req := <-h.unregister:
			client := req.client
			h.mu.Lock()
			set := h.clients[client.participantID]
			if set[client] {
				delete(set, client)
				close(client.send)
				h.logger.Debug("stream client unregistered",
					slog.String("participant_id", string(client.participantID)),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))
			}
			last := len(set) == 0
			if last {
				delete(h.clients, client.participantID)
			}
			h.mu.Unlock()
			req.last <- last

		case d := <-h.deliver:
			h.mu.RLock()
			dropped := 0
			if d.to == "" {
				for _, set := range h.clients {
					dropped += sendAll(set, d.message)
				}
			} else {
				dropped += sendAll(h.clients[d.to], d.message)
			}
			h.mu.RUnlock()
			if dropped > 0 {
				h.logger.Warn("stream message dropped - client buffer full",
					slog.String("participant_id", string(d.to)),
					slog.Int("dropped", dropped))
			}

		case <-h.done:
			h.mu.Lock()
			count := 0
			for id, set := range h.clients {
				for client := range set {
					close(client.send)
					count++
				}
				delete(h.clients, id)
			}
			h.mu.Unlock()
			h.logger.Info("stream hub stopped", slog.Int("disconnected_clients", count))
			return
		}
	}
}

func sendAll(set map[*Client]bool, message []byte) (dropped int) {
	for client := range set {
		select {
		case client.send <- message:
		default:
			dropped++
		}
	}
	return dropped
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	req := registration{client: client, done: make(chan struct{})}
	select {
	case h.register <- req:
		<-req.done
	case <-h.done:
		close(client.send)
	}
}

// Unregister removes a client and reports whether it was the participant's last one
func (h *Hub) Unregister(client *Client) bool {
	req := unregistration{client: client, last: make(chan bool, 1)}
	select {
	case h.unregister <- req:
		return <-req.last
	case <-h.done:
		return true
	}
}

// Send queues an event for every client of one participant
func (h *Hub) Send(to model.ParticipantID, eventName, data string) {
	h.enqueue(delivery{to: to, message: formatSSEMessage(eventName, data)})
}

// Broadcast queues an event for every connected client
func (h *Hub) Broadcast(eventName, data string) {
	h.enqueue(delivery{message: formatSSEMessage(eventName, data)})
}

func (h *Hub) enqueue(d delivery) {
	select {
	case h.deliver <- d:
	default:
		h.logger.Warn("stream delivery dropped - hub buffer full")
	}
}

// Close shuts down the hub and disconnects every client
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// Connected reports whether the participant has a client on this instance
func (h *Hub) Connected(id model.ParticipantID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[id]) > 0
}

// formatSSEMessage formats an SSE message with event name and data.
// Each line of data gets its own "data: " prefix.
func formatSSEMessage(eventName, data string) []byte {
	var b strings.Builder
	b.WriteString("event: " + eventName + "\n")
	for _, line := range splitLines(data) {
		b.WriteString("data: " + line + "\n")
	}
	b.WriteString("\n")
	return []byte(b.String())
}

// splitLines splits a string into lines, handling various line endings
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
