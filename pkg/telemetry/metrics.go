package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OutboxMetrics records queue and delivery counters for the outbox.
type OutboxMetrics struct {
	enqueued  metric.Int64Counter
	evicted   metric.Int64Counter
	delivered metric.Int64Counter
	flushes   metric.Int64Counter
	meter     metric.Meter
}

// NewOutboxMetrics creates the instruments on the global meter provider.
func NewOutboxMetrics() (*OutboxMetrics, error) {
	return NewOutboxMetricsWithMeter(otel.Meter(InstrumentationName))
}

func NewOutboxMetricsWithMeter(meter metric.Meter) (*OutboxMetrics, error) {
	m := &OutboxMetrics{meter: meter}

	var err error
	if m.enqueued, err = meter.Int64Counter("outbox.events.enqueued",
		metric.WithDescription("Events accepted into the outbox queue"),
		metric.WithUnit("{event}")); err != nil {
		return nil, fmt.Errorf("create enqueued counter: %w", err)
	}
	if m.evicted, err = meter.Int64Counter("outbox.events.evicted",
		metric.WithDescription("Oldest events dropped to stay within capacity"),
		metric.WithUnit("{event}")); err != nil {
		return nil, fmt.Errorf("create evicted counter: %w", err)
	}
	if m.delivered, err = meter.Int64Counter("outbox.events.delivered",
		metric.WithDescription("Events confirmed by the ingestion endpoint"),
		metric.WithUnit("{event}")); err != nil {
		return nil, fmt.Errorf("create delivered counter: %w", err)
	}
	if m.flushes, err = meter.Int64Counter("outbox.flush.attempts",
		metric.WithDescription("Flush calls by outcome"),
		metric.WithUnit("{flush}")); err != nil {
		return nil, fmt.Errorf("create flush counter: %w", err)
	}

	return m, nil
}

func (m *OutboxMetrics) AddEnqueued(ctx context.Context, n int) {
	m.enqueued.Add(ctx, int64(n))
}

func (m *OutboxMetrics) AddEvicted(ctx context.Context, n int) {
	if n > 0 {
		m.evicted.Add(ctx, int64(n))
	}
}

func (m *OutboxMetrics) AddDelivered(ctx context.Context, n int) {
	if n > 0 {
		m.delivered.Add(ctx, int64(n))
	}
}

// RecordFlush counts a flush call. outcome is "ok" or the short-circuit reason.
func (m *OutboxMetrics) RecordFlush(ctx context.Context, outcome string) {
	m.flushes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// ObserveQueueSize registers an asynchronous gauge reading the current queue length.
func (m *OutboxMetrics) ObserveQueueSize(size func() int) error {
	_, err := m.meter.Int64ObservableGauge("outbox.queue.size",
		metric.WithDescription("Events waiting for delivery"),
		metric.WithUnit("{event}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(size()))
			return nil
		}),
	)
	return err
}
