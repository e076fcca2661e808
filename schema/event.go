package schema

import (
	"maps"
	"time"
)

// Event is a single telemetry record buffered by the outbox.
// Field names are part of the ingestion wire contract.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	Timestamp int64          `json:"ts"` // milliseconds since epoch
	DeviceID  string         `json:"deviceId,omitempty"`
	UserID    string         `json:"userId,omitempty"`
}

// NewEvent creates an Event stamped with the current time.
func NewEvent(id, eventType string, payload map[string]any) Event {
	return Event{
		ID:        id,
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Clone returns a copy that shares no mutable state with e.
func (e Event) Clone() Event {
	out := e
	out.Payload = clonePayload(e.Payload)
	return out
}

// Time returns the event timestamp as a time.Time.
func (e Event) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// CloneEvents deep-copies a slice of events.
func CloneEvents(events []Event) []Event {
	out := make([]Event, len(events))
	for i := range events {
		out[i] = events[i].Clone()
	}
	return out
}

func clonePayload(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := maps.Clone(in)
	for k, v := range out {
		switch tv := v.(type) {
		case map[string]any:
			out[k] = clonePayload(tv)
		case []any:
			out[k] = cloneSlice(tv)
		}
	}
	return out
}

func cloneSlice(in []any) []any {
	out := make([]any, len(in))
	for i, v := range in {
		switch tv := v.(type) {
		case map[string]any:
			out[i] = clonePayload(tv)
		case []any:
			out[i] = cloneSlice(tv)
		default:
			out[i] = v
		}
	}
	return out
}
