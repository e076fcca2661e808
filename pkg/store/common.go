package store

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "event-outbox"

func startSpan(ctx context.Context, system, operation, key string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "kv."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", system),
			attribute.String("db.operation", operation),
			attribute.String("kv.key", key),
		),
	)
}

func finishSpan(span trace.Span, startTime time.Time, err error) {
	addDBStatsToSpan(span, time.Since(startTime))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func addDBStatsToSpan(span trace.Span, duration time.Duration) {
	span.SetAttributes(
		attribute.Float64("db.execution_time_ms", float64(duration.Microseconds())/1000),
	)
}
