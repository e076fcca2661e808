package outbox

import (
	"context"

	"github.com/zoff-tech/event-outbox/schema"
)

// Tracker stamps events with the device and user before queueing them.
type Tracker struct {
	outbox   *Outbox
	deviceID string
}

func NewTracker(ob *Outbox, deviceID string) *Tracker {
	return &Tracker{outbox: ob, deviceID: deviceID}
}

// Track queues an event of any type.
func (t *Tracker) Track(ctx context.Context, eventType, userID string, payload map[string]any) EnqueueResult {
	ev := schema.Event{
		Type:     eventType,
		Payload:  payload,
		DeviceID: t.deviceID,
		UserID:   userID,
	}
	if ev.Payload == nil {
		ev.Payload = map[string]any{}
	}
	return t.outbox.Enqueue(ctx, ev)
}

func (t *Tracker) TrackBehavior(ctx context.Context, userID string, behavior map[string]any) EnqueueResult {
	return t.Track(ctx, schema.TypeBehavior, userID, behavior)
}

func (t *Tracker) TrackIntervention(ctx context.Context, userID string, intervention map[string]any) EnqueueResult {
	return t.Track(ctx, schema.TypeIntervention, userID, intervention)
}

func (t *Tracker) TrackOutcome(ctx context.Context, userID string, outcome map[string]any) EnqueueResult {
	return t.Track(ctx, schema.TypeOutcome, userID, outcome)
}

func (t *Tracker) TrackResetComplete(ctx context.Context, userID string, reset map[string]any) EnqueueResult {
	return t.Track(ctx, schema.TypeResetComplete, userID, reset)
}

// TrackAnalytics queues one of the typed analytics payloads.
func (t *Tracker) TrackAnalytics(ctx context.Context, userID string, p schema.AnalyticsPayload) EnqueueResult {
	return t.Track(ctx, p.EventType(), userID, p.Payload())
}
