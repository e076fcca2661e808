package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zoff-tech/event-outbox/pkg/config"
	"github.com/zoff-tech/event-outbox/pkg/ingest"
)

// Connectivity reports whether the device can currently reach the network.
type Connectivity interface {
	Connected(ctx context.Context) bool
}

// ConnectivityFunc adapts a function to Connectivity.
type ConnectivityFunc func(ctx context.Context) bool

func (f ConnectivityFunc) Connected(ctx context.Context) bool { return f(ctx) }

// AlwaysConnected is used when the host has no connectivity signal.
var AlwaysConnected Connectivity = ConnectivityFunc(func(context.Context) bool { return true })

// Metrics receives outbox counters. telemetry.OutboxMetrics implements it.
type Metrics interface {
	AddEnqueued(ctx context.Context, n int)
	AddEvicted(ctx context.Context, n int)
	AddDelivered(ctx context.Context, n int)
	RecordFlush(ctx context.Context, outcome string)
}

type nopMetrics struct{}

func (nopMetrics) AddEnqueued(context.Context, int)    {}
func (nopMetrics) AddEvicted(context.Context, int)     {}
func (nopMetrics) AddDelivered(context.Context, int)   {}
func (nopMetrics) RecordFlush(context.Context, string) {}

// Option configures an Outbox.
type Option func(*Outbox)

// WithCapacity sets the maximum queue length. Values below one are ignored.
func WithCapacity(n int) Option {
	return func(o *Outbox) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// WithStorageKey sets the durable key holding the queue.
func WithStorageKey(key string) Option {
	return func(o *Outbox) {
		if key != "" {
			o.key = key
		}
	}
}

// WithTarget sets the default ingestion endpoint and token.
func WithTarget(t ingest.Target) Option {
	return func(o *Outbox) { o.target = t }
}

// WithFlushTimeout bounds each delivery attempt. Zero disables the bound.
func WithFlushTimeout(d time.Duration) Option {
	return func(o *Outbox) { o.timeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Outbox) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(o *Outbox) {
		if m != nil {
			o.metrics = m
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Outbox) {
		if now != nil {
			o.now = now
		}
	}
}

func WithIDGenerator(gen func() string) Option {
	return func(o *Outbox) {
		if gen != nil {
			o.newID = gen
		}
	}
}

func defaults(o *Outbox) {
	o.capacity = config.DefaultCapacity
	o.key = config.DefaultStorageKey
	o.timeout = config.DefaultTimeout
	o.logger = zap.NewNop()
	o.metrics = nopMetrics{}
	o.now = time.Now
	o.newID = uuid.NewString
}

// FlushOption overrides the default target for a single Flush.
type FlushOption func(*ingest.Target)

func WithEndpoint(endpoint string) FlushOption {
	return func(t *ingest.Target) { t.Endpoint = endpoint }
}

func WithToken(token string) FlushOption {
	return func(t *ingest.Target) { t.Token = token }
}
