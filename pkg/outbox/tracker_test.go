package outbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoff-tech/event-outbox/pkg/store"
	"github.com/zoff-tech/event-outbox/schema"
)

func TestTracker(t *testing.T) {
	o := newTestOutbox(t, store.NewMemoryStore(), &fakeSender{})
	tr := NewTracker(o, "device-1")
	ctx := context.Background()

	tr.TrackBehavior(ctx, "u1", map[string]any{"action": "open"})
	tr.TrackIntervention(ctx, "u1", nil)
	tr.TrackOutcome(ctx, "u1", map[string]any{"success": true})
	tr.TrackResetComplete(ctx, "u1", map[string]any{"reset": "box"})
	res := tr.TrackAnalytics(ctx, "u2", schema.ResetCompletePayload{Reset: schema.ResetBox, DurationSec: 60, Outcome: 4})
	assert.Equal(t, 5, res.Size)

	got := o.QueuedEvents(ctx)
	require.Len(t, got, 5)

	types := make([]string, len(got))
	for i, e := range got {
		types[i] = e.Type
		assert.Equal(t, "device-1", e.DeviceID)
		assert.NotEmpty(t, e.ID)
		assert.NotNil(t, e.Payload)
	}
	assert.Equal(t, []string{
		schema.TypeBehavior,
		schema.TypeIntervention,
		schema.TypeOutcome,
		schema.TypeResetComplete,
		schema.TypeResetComplete,
	}, types)

	last := got[4]
	assert.Equal(t, "u2", last.UserID)
	assert.Equal(t, "box", last.Payload["reset"])
	assert.Equal(t, 4, last.Payload["outcome"])
}
