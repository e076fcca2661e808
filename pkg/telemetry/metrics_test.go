package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestOutboxMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	m, err := NewOutboxMetricsWithMeter(mp.Meter(InstrumentationName))
	require.NoError(t, err)

	ctx := context.Background()
	m.AddEnqueued(ctx, 3)
	m.AddEvicted(ctx, 1)
	m.AddEvicted(ctx, 0)
	m.AddDelivered(ctx, 2)
	m.RecordFlush(ctx, "ok")
	m.RecordFlush(ctx, "offline")
	m.RecordFlush(ctx, "offline")

	size := 7
	require.NoError(t, m.ObserveQueueSize(func() int { return size }))

	data := collect(t, reader)

	sumOf := func(name string) int64 {
		sum, ok := data[name].(metricdata.Sum[int64])
		require.True(t, ok, name)
		var total int64
		for _, dp := range sum.DataPoints {
			total += dp.Value
		}
		return total
	}

	assert.Equal(t, int64(3), sumOf("outbox.events.enqueued"))
	assert.Equal(t, int64(1), sumOf("outbox.events.evicted"))
	assert.Equal(t, int64(2), sumOf("outbox.events.delivered"))

	flushes := data["outbox.flush.attempts"].(metricdata.Sum[int64])
	byOutcome := map[string]int64{}
	for _, dp := range flushes.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("outcome"))
		byOutcome[v.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"ok": 1, "offline": 2}, byOutcome)

	gauge, ok := data["outbox.queue.size"].(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(7), gauge.DataPoints[0].Value)
}
