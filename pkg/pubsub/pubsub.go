// Package pubsub fans resolution events out to server-sent event streams.
package pubsub

import (
	"encoding/json"
	"fmt"
	"io"
)

// TopicResolution carries the state of the resolve loop
const TopicResolution = "resolution"

// Event types published on TopicResolution
const (
	EventResolving = "resolving"
	EventResolved  = "resolved"
	EventFailed    = "failed"
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Version int             `json:"version"` // per topic, increasing
}

// ResolutionStatus is the payload of every TopicResolution event
type ResolutionStatus struct {
	RunID   string   `json:"runId,omitempty"`
	Message string   `json:"message,omitempty"`
	Targets int      `json:"targets"`
	Units   int      `json:"units"`
	Files   []string `json:"files,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// WriteSSE writes an event to an SSE response writer
// Format: "event: type\ndata: {json}\n\n"
func WriteSSE(w io.Writer, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
	return err
}
