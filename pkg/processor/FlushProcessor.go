package processor

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/zoff-tech/event-outbox/pkg/lifecycle"
	"github.com/zoff-tech/event-outbox/pkg/logging"
	"github.com/zoff-tech/event-outbox/pkg/outbox"
)

// Flusher is the part of the outbox the processor drives.
type Flusher interface {
	Flush(ctx context.Context, opts ...outbox.FlushOption) outbox.FlushResult
}

// FlushProcessor attempts a flush for every lifecycle signal. Results are
// logged and traced; nothing is retried here, the next signal is the retry.
type FlushProcessor struct {
	outbox Flusher
	bus    *lifecycle.Bus
	tracer trace.Tracer
	logger *zap.Logger
}

// NewFlushProcessor creates a new instance of FlushProcessor.
func NewFlushProcessor(ob Flusher, bus *lifecycle.Bus, logger *zap.Logger) *FlushProcessor {
	return &FlushProcessor{
		outbox: ob,
		bus:    bus,
		tracer: otel.Tracer("event-outbox"),
		logger: logging.OrNop(logger).With(zap.String("component", "processor")),
	}
}

// Start subscribes to the bus and requests the boot flush.
func (p *FlushProcessor) Start(ctx context.Context) error {
	p.bus.Subscribe(p.ProcessSignal)
	return p.bus.Publish(ctx, lifecycle.KindProcessStart)
}

func (p *FlushProcessor) ProcessSignal(ctx context.Context, sig lifecycle.Signal) {
	ctx, span := p.tracer.Start(ctx, "ProcessFlushSignal", trace.WithAttributes(
		attribute.String("signal.kind", string(sig.Kind)),
		attribute.String("signal.at", sig.At.Format(time.RFC3339Nano)),
	))
	defer span.End()

	res := p.outbox.Flush(ctx)
	span.SetAttributes(
		attribute.String("outbox.flush.outcome", res.Outcome()),
		attribute.Int("outbox.flush.count", res.Count),
	)

	logger := logging.WithTrace(ctx, p.logger).With(
		zap.String("signal", string(sig.Kind)),
		zap.String("outcome", res.Outcome()),
		zap.Int("count", res.Count),
	)
	switch {
	case res.Err != nil:
		span.RecordError(res.Err)
		if !res.OK {
			span.SetStatus(codes.Error, res.Err.Error())
		}
		logger.Warn("flush attempt finished with error", zap.Error(res.Err))
	case res.OK && res.Count > 0:
		logger.Info("flush attempt delivered events")
	default:
		logger.Debug("flush attempt finished")
	}
}
