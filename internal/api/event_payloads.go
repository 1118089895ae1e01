package api

import (
	"time"

	"watchify/internal/event"
)

// eventPayload is the wire form shared by the SSE and websocket streams. Only
// the fields relevant to the concrete event type are populated.
type eventPayload struct {
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	Path       string    `json:"path,omitempty"`
	Operation  string    `json:"operation,omitempty"`
	Command    string    `json:"command,omitempty"`
	Line       string    `json:"line,omitempty"`
	ExitCode   *int      `json:"exit_code,omitempty"`
	Target     string    `json:"target,omitempty"`
	Trigger    string    `json:"trigger,omitempty"`
	ChangeType string    `json:"change_type,omitempty"`
	Reason     string    `json:"reason,omitempty"`
}

func buildEventPayload(received event.Event) (eventPayload, bool) {
	if received == nil {
		return eventPayload{}, false
	}

	payload := eventPayload{
		Type:      received.Type(),
		Timestamp: received.Timestamp(),
	}
	if payload.Timestamp.IsZero() {
		payload.Timestamp = time.Now().UTC()
	}

	switch typed := received.(type) {
	case event.FileEvent:
		payload.Path = typed.Path
		payload.Operation = typed.Operation
	case event.ProcessEvent:
		payload.Command = typed.Command
		payload.Line = typed.Line
		if typed.EventType == event.TypeProcessExit {
			exitCode := typed.ExitCode
			payload.ExitCode = &exitCode
		}
	case event.ConfigEvent:
		payload.Path = typed.Path
		payload.ChangeType = typed.ChangeType
	case event.SpyEvent:
		payload.Target = typed.Target
		payload.Trigger = typed.Trigger
	case event.WatchErrorEvent:
		payload.Path = typed.Path
		payload.Reason = typed.Reason
	}

	return payload, true
}
