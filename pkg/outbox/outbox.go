// Package outbox buffers events in a bounded durable queue and delivers them
// to the ingestion endpoint in batches.
//
// The in-memory queue is the source of truth while the process lives. Every
// mutation is mirrored to a KeyValueStore under a single key so the queue
// survives restarts. Delivery is at-least-once: a batch leaves the queue only
// after the endpoint accepted it.
package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/zoff-tech/event-outbox/pkg/ingest"
	"github.com/zoff-tech/event-outbox/pkg/logging"
	"github.com/zoff-tech/event-outbox/pkg/store"
	"github.com/zoff-tech/event-outbox/schema"
)

const tracerName = "event-outbox"

type Outbox struct {
	store        store.KeyValueStore
	sender       ingest.Sender
	connectivity Connectivity

	capacity int
	key      string
	target   ingest.Target
	timeout  time.Duration
	logger   *zap.Logger
	metrics  Metrics
	now      func() time.Time
	newID    func() string

	hydrateOnce sync.Once

	mu         sync.Mutex
	queue      []schema.Event
	flushing   bool
	evicted    uint64 // events dropped from the front by capacity, ever
	generation uint64 // bumped by Clear
	lastFlush  *FlushResult

	// persistMu orders writes to the store; each write carries the state
	// current when it acquired the lock.
	persistMu sync.Mutex
}

// New builds an outbox. A nil connectivity means always connected.
func New(kv store.KeyValueStore, sender ingest.Sender, connectivity Connectivity, opts ...Option) *Outbox {
	o := &Outbox{
		store:        kv,
		sender:       sender,
		connectivity: connectivity,
	}
	defaults(o)
	for _, opt := range opts {
		opt(o)
	}
	if o.connectivity == nil {
		o.connectivity = AlwaysConnected
	}
	o.logger = o.logger.With(zap.String("component", "outbox"), zap.String("key", o.key))
	return o
}

// Capacity returns the maximum queue length.
func (o *Outbox) Capacity() int {
	return o.capacity
}

// Hydrate loads the persisted queue. Only the first call reads the store;
// later calls return immediately. Every public operation hydrates first.
func (o *Outbox) Hydrate(ctx context.Context) {
	o.hydrateOnce.Do(func() {
		events := o.load(ctx)
		o.mu.Lock()
		o.queue = events
		o.mu.Unlock()
	})
}

func (o *Outbox) load(ctx context.Context) []schema.Event {
	raw, found, err := o.store.Get(ctx, o.key)
	if err != nil {
		o.logger.Error("failed to read persisted queue, starting empty", zap.Error(err))
		return nil
	}
	if !found || raw == "" {
		return nil
	}

	var events []schema.Event
	if err := json.Unmarshal([]byte(raw), &events); err != nil {
		o.logger.Warn("persisted queue is malformed, starting empty", zap.Error(err))
		return nil
	}
	if over := len(events) - o.capacity; over > 0 {
		o.logger.Warn("persisted queue exceeds capacity, dropping oldest",
			zap.Int("dropped", over), zap.Int("capacity", o.capacity))
		events = events[over:]
	}
	o.logger.Debug("queue hydrated", zap.Int("size", len(events)))
	return events
}

// Enqueue appends ev, evicting the oldest events when the queue is full, and
// persists the queue before returning. Missing ID and timestamp are filled.
func (o *Outbox) Enqueue(ctx context.Context, ev schema.Event) EnqueueResult {
	o.Hydrate(ctx)

	ev = ev.Clone()
	if ev.Timestamp == 0 {
		ev.Timestamp = o.now().UnixMilli()
	}
	if ev.ID == "" {
		ev.ID = o.newID()
	}

	o.mu.Lock()
	o.queue = append(o.queue, ev)
	evicted := o.evictLocked()
	size := len(o.queue)
	o.mu.Unlock()

	o.metrics.AddEnqueued(ctx, 1)
	if evicted > 0 {
		o.metrics.AddEvicted(ctx, evicted)
		o.logger.Warn("queue full, evicted oldest events", zap.Int("evicted", evicted), zap.Int("capacity", o.capacity))
	}

	return EnqueueResult{Size: size, Evicted: evicted, PersistErr: o.persist(ctx)}
}

func (o *Outbox) evictLocked() int {
	over := len(o.queue) - o.capacity
	if over <= 0 {
		return 0
	}
	o.dropFrontLocked(over)
	o.evicted += uint64(over)
	return over
}

func (o *Outbox) dropFrontLocked(n int) {
	remaining := copy(o.queue, o.queue[n:])
	clear(o.queue[remaining:])
	o.queue = o.queue[:remaining]
}

// Flush sends the whole queue as one batch. Checks run in order and stop at
// the first hit: flush already running, empty queue, offline, missing
// endpoint or token. On success only the delivered events are removed, so
// events enqueued while the request was in flight stay queued.
func (o *Outbox) Flush(ctx context.Context, opts ...FlushOption) FlushResult {
	o.Hydrate(ctx)

	ctx, span := otel.Tracer(tracerName).Start(ctx, "outbox.Flush", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()
	logger := logging.WithTrace(ctx, o.logger)

	o.mu.Lock()
	if o.flushing {
		o.mu.Unlock()
		res := FlushResult{Reason: ReasonInProgress, At: o.now()}
		o.metrics.RecordFlush(ctx, res.Outcome())
		span.SetAttributes(attribute.String("outbox.flush.outcome", res.Outcome()))
		logger.Debug("flush skipped, another flush is running")
		return res
	}
	if len(o.queue) == 0 {
		o.mu.Unlock()
		return o.complete(ctx, span, FlushResult{OK: true})
	}
	o.flushing = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.flushing = false
		o.mu.Unlock()
	}()

	if !o.connectivity.Connected(ctx) {
		logger.Debug("flush skipped, offline")
		return o.complete(ctx, span, FlushResult{Reason: ReasonOffline})
	}

	var override ingest.Target
	for _, opt := range opts {
		opt(&override)
	}
	target := o.target.Merge(override)
	if !target.Complete() {
		logger.Warn("flush skipped, ingest endpoint or token not configured")
		return o.complete(ctx, span, FlushResult{Reason: ReasonMissingConfig})
	}

	o.mu.Lock()
	snapshot := schema.CloneEvents(o.queue)
	evictedAtSnapshot, generation := o.evicted, o.generation
	o.mu.Unlock()
	if len(snapshot) == 0 {
		// cleared while the checks ran
		return o.complete(ctx, span, FlushResult{OK: true})
	}
	span.SetAttributes(attribute.Int("outbox.batch.size", len(snapshot)))

	sendCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	if err := o.sender.Send(sendCtx, target, snapshot); err != nil {
		logger.Warn("flush failed, queue kept", zap.Int("events", len(snapshot)), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return o.complete(ctx, span, FlushResult{Reason: ReasonDeliveryFailed, Err: err})
	}

	o.mu.Lock()
	trimmed, err := o.trimLocked(snapshot, evictedAtSnapshot, generation)
	o.mu.Unlock()

	res := FlushResult{OK: true, Count: len(snapshot), Err: err}
	if err != nil {
		logger.Error("delivered batch no longer heads the queue, keeping queue untouched",
			zap.Int("events", len(snapshot)), zap.Error(err))
	}
	if trimmed > 0 {
		// a failed write here only risks redelivery after a restart
		if perr := o.persist(ctx); perr != nil && res.Err == nil {
			res.Err = perr
		}
	}
	o.metrics.AddDelivered(ctx, len(snapshot))
	logger.Info("flush delivered", zap.Int("events", len(snapshot)), zap.Int("trimmed", trimmed))
	return o.complete(ctx, span, res)
}

// trimLocked removes what is left of snapshot from the front of the queue.
// Capacity eviction during the request may already have dropped the head of
// the snapshot, and a Clear drops all of it.
func (o *Outbox) trimLocked(snapshot []schema.Event, evictedAtSnapshot, generation uint64) (int, error) {
	if o.generation != generation {
		return 0, nil
	}
	gone := o.evicted - evictedAtSnapshot
	if gone >= uint64(len(snapshot)) {
		return 0, nil
	}
	remaining := snapshot[gone:]
	if len(o.queue) < len(remaining) {
		return 0, fmt.Errorf("%w: queue has %d events, expected at least %d", ErrSnapshotNotPrefix, len(o.queue), len(remaining))
	}
	for i := range remaining {
		if o.queue[i].ID != remaining[i].ID || o.queue[i].Type != remaining[i].Type {
			return 0, fmt.Errorf("%w: mismatch at position %d", ErrSnapshotNotPrefix, i)
		}
	}
	o.dropFrontLocked(len(remaining))
	return len(remaining), nil
}

func (o *Outbox) complete(ctx context.Context, span trace.Span, res FlushResult) FlushResult {
	res.At = o.now()
	o.metrics.RecordFlush(ctx, res.Outcome())
	span.SetAttributes(
		attribute.String("outbox.flush.outcome", res.Outcome()),
		attribute.Int("outbox.flush.count", res.Count),
	)

	o.mu.Lock()
	o.lastFlush = &res
	o.mu.Unlock()
	return res
}

// LastFlush returns the result of the most recent flush that got past the
// in-progress check.
func (o *Outbox) LastFlush() (FlushResult, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.lastFlush == nil {
		return FlushResult{}, false
	}
	return *o.lastFlush, true
}

// QueuedEvents returns a deep copy of the queue, oldest first.
func (o *Outbox) QueuedEvents(ctx context.Context) []schema.Event {
	o.Hydrate(ctx)
	o.mu.Lock()
	defer o.mu.Unlock()
	return schema.CloneEvents(o.queue)
}

// QueueSize returns the in-memory length without touching the store.
func (o *Outbox) QueueSize() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

// QueueSizeContext hydrates if needed and returns the queue length.
func (o *Outbox) QueueSizeContext(ctx context.Context) int {
	o.Hydrate(ctx)
	return o.QueueSize()
}

// Clear drops every queued event and deletes the durable copy. A flush in
// flight when Clear runs will not trim anything afterwards.
func (o *Outbox) Clear(ctx context.Context) ClearResult {
	o.Hydrate(ctx)

	o.persistMu.Lock()
	defer o.persistMu.Unlock()

	o.mu.Lock()
	cleared := len(o.queue)
	o.queue = nil
	o.generation++
	o.mu.Unlock()

	res := ClearResult{Cleared: cleared}
	if err := o.store.Remove(ctx, o.key); err != nil {
		o.logger.Error("failed to remove persisted queue", zap.Error(err))
		res.PersistErr = fmt.Errorf("failed to remove persisted queue: %w", err)
	}
	o.logger.Info("queue cleared", zap.Int("cleared", cleared))
	return res
}

func (o *Outbox) persist(ctx context.Context) error {
	o.persistMu.Lock()
	defer o.persistMu.Unlock()

	o.mu.Lock()
	events := make([]schema.Event, len(o.queue))
	copy(events, o.queue)
	o.mu.Unlock()

	data, err := json.Marshal(events)
	if err != nil {
		o.logger.Error("failed to encode queue", zap.Error(err))
		return fmt.Errorf("failed to encode queue: %w", err)
	}
	if err := o.store.Set(ctx, o.key, string(data)); err != nil {
		o.logger.Error("failed to persist queue", zap.Int("size", len(events)), zap.Error(err))
		return fmt.Errorf("failed to persist queue: %w", err)
	}
	return nil
}
