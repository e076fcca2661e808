package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClone_DoesNotShareNestedState(t *testing.T) {
	original := Event{
		ID:   "1",
		Type: TypeBehavior,
		Payload: map[string]any{
			"nested": map[string]any{"k": "v"},
			"list":   []any{map[string]any{"x": 1}},
		},
	}

	clone := original.Clone()
	clone.Payload["nested"].(map[string]any)["k"] = "changed"
	clone.Payload["list"].([]any)[0].(map[string]any)["x"] = 2
	clone.Payload["added"] = true

	assert.Equal(t, "v", original.Payload["nested"].(map[string]any)["k"])
	assert.Equal(t, 1, original.Payload["list"].([]any)[0].(map[string]any)["x"])
	assert.NotContains(t, original.Payload, "added")
}

func TestNewEvent_StampsTimestamp(t *testing.T) {
	e := NewEvent("id", "type", nil)
	assert.NotZero(t, e.Timestamp)
	assert.Equal(t, e.Timestamp, e.Time().UnixMilli())
}

func TestAnalyticsPayloads(t *testing.T) {
	tests := []struct {
		name     string
		payload  AnalyticsPayload
		wantType string
		want     map[string]any
	}{
		{
			name:     "trigger omits empty optionals",
			payload:  TriggerPayload{Trigger: TriggerPanic},
			wantType: TypeTrigger,
			want:     map[string]any{"trigger": "panic"},
		},
		{
			name:     "reset complete drops out of range outcome",
			payload:  ResetCompletePayload{Reset: ResetBox, DurationSec: 90, Outcome: 9},
			wantType: TypeResetComplete,
			want:     map[string]any{"reset": "box", "duration_sec": 90},
		},
		{
			name:     "reset complete keeps rating and link",
			payload:  ResetCompletePayload{Reset: ResetSigh, DurationSec: 30, Outcome: 4, FromStartID: "s1"},
			wantType: TypeResetComplete,
			want:     map[string]any{"reset": "sigh", "duration_sec": 30, "outcome": 4, "from_start_id": "s1"},
		},
		{
			name:     "ai message",
			payload:  AIMessagePayload{EmotionalState: EmotionCraving, InputLen: 12, Model: "m", ResponseLen: 40},
			wantType: TypeAIMessage,
			want:     map[string]any{"emotional_state": "craving", "input_len": 12, "model": "m", "response_len": 40},
		},
		{
			name:     "reset start",
			payload:  ResetStartPayload{Reset: ResetCold, FromTriggerID: "t1"},
			wantType: TypeResetStart,
			want:     map[string]any{"reset": "cold", "from_trigger_id": "t1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.payload.EventType())
			assert.Equal(t, tt.want, tt.payload.Payload())
		})
	}
}
