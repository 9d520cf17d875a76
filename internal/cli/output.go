package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case QueueEntry:
		o.printQueueEntry(v)
	case QueueList:
		o.printQueueList(v)
	case PlayerState:
		o.printPlayerState(v)
	case PassResult:
		o.printPassResult(v)
	case HealthResult:
		o.printHealthResult(v)
	case StreamEvent:
		fmt.Printf("%s %s\n", v.Event, v.Data)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// QueueEntry response type (matches API)
type QueueEntry struct {
	ParticipantID string `json:"participant_id"`
	DisplayName   string `json:"display_name"`
	Rating        int    `json:"rating"`
	PrimaryLane   string `json:"primary_lane"`
	SecondaryLane string `json:"secondary_lane,omitempty"`
	IsBot         bool   `json:"is_bot,omitempty"`
	Position      int    `json:"position,omitempty"`
	Processing    bool   `json:"processing,omitempty"`
}

// QueueList response type
type QueueList struct {
	Entries []QueueEntry `json:"entries"`
}

// PlayerState response type
type PlayerState struct {
	ParticipantID string `json:"participant_id"`
	State         string `json:"state"`
	MatchID       string `json:"match_id,omitempty"`
}

// Slot response type
type Slot struct {
	Lane          string `json:"lane"`
	ParticipantID string `json:"participant_id"`
	Rating        int    `json:"rating"`
}

// Team response type
type Team struct {
	Slots       []Slot `json:"slots"`
	TotalRating int    `json:"total_rating"`
}

// Match response type
type Match struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	TeamA  Team   `json:"team_a"`
	TeamB  Team   `json:"team_b"`
}

// PassResult response type
type PassResult struct {
	Outcome string  `json:"outcome"`
	Matches []Match `json:"matches"`
}

// HealthResult response type
type HealthResult struct {
	Status    string `json:"status"`
	Queued    int    `json:"queued"`
	Connected int    `json:"connected"`
}

// StreamEvent is one server-sent event
type StreamEvent struct {
	Event string `json:"event"`
	Data  string `json:"data"`
}

func (o *Output) printQueueEntry(e QueueEntry) {
	lanes := e.PrimaryLane
	if e.SecondaryLane != "" {
		lanes += "/" + e.SecondaryLane
	}
	flags := ""
	if e.IsBot {
		flags += " [bot]"
	}
	if e.Processing {
		flags += " [processing]"
	}
	fmt.Printf("%3d  %-20s %5d  %s%s\n", e.Position, e.ParticipantID, e.Rating, lanes, flags)
}

func (o *Output) printQueueList(l QueueList) {
	if len(l.Entries) == 0 {
		fmt.Println("Queue is empty")
		return
	}
	fmt.Printf("Queued: %d\n", len(l.Entries))
	for _, e := range l.Entries {
		o.printQueueEntry(e)
	}
}

func (o *Output) printPlayerState(s PlayerState) {
	fmt.Printf("Participant: %s\n", s.ParticipantID)
	fmt.Printf("State: %s\n", s.State)
	if s.MatchID != "" {
		fmt.Printf("Match: %s\n", s.MatchID)
	}
}

func (o *Output) printPassResult(p PassResult) {
	fmt.Printf("Outcome: %s\n", p.Outcome)
	for _, m := range p.Matches {
		fmt.Printf("\nMatch %s (%s)\n", m.ID, m.Status)
		o.printTeam("A", m.TeamA)
		o.printTeam("B", m.TeamB)
	}
}

func (o *Output) printTeam(name string, t Team) {
	parts := make([]string, len(t.Slots))
	for i, s := range t.Slots {
		parts[i] = fmt.Sprintf("%s=%s", s.Lane, s.ParticipantID)
	}
	fmt.Printf("  Team %s [%d]: %s\n", name, t.TotalRating, strings.Join(parts, " "))
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
	fmt.Printf("Queued: %d\n", h.Queued)
	fmt.Printf("Connected: %d\n", h.Connected)
}
