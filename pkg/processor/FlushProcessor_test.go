package processor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zoff-tech/event-outbox/pkg/ingest"
	"github.com/zoff-tech/event-outbox/pkg/lifecycle"
	"github.com/zoff-tech/event-outbox/pkg/outbox"
	"github.com/zoff-tech/event-outbox/pkg/store"
	"github.com/zoff-tech/event-outbox/schema"
)

type stubFlusher struct {
	mu     sync.Mutex
	calls  int
	result outbox.FlushResult
}

func (s *stubFlusher) Flush(context.Context, ...outbox.FlushOption) outbox.FlushResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.result
}

func TestStart_FlushesOnBoot(t *testing.T) {
	bus := lifecycle.NewBus(nil)
	f := &stubFlusher{result: outbox.FlushResult{OK: true}}
	p := NewFlushProcessor(f, bus, zap.NewNop())

	require.NoError(t, p.Start(context.Background()))
	bus.Close()

	assert.Equal(t, 1, f.calls)
}

func TestProcessSignal_EverySignalAttemptsFlush(t *testing.T) {
	bus := lifecycle.NewBus(nil)
	f := &stubFlusher{result: outbox.FlushResult{OK: true}}
	p := NewFlushProcessor(f, bus, nil)
	require.NoError(t, p.Start(context.Background()))

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, lifecycle.KindForeground))
	require.NoError(t, bus.Publish(ctx, lifecycle.KindConnectivityRegained))
	require.NoError(t, bus.Publish(ctx, lifecycle.KindManual))
	bus.Close()

	assert.Equal(t, 4, f.calls)
}

func TestProcessSignal_LogsFailure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	f := &stubFlusher{result: outbox.FlushResult{Reason: outbox.ReasonDeliveryFailed, Err: errors.New("503")}}
	p := NewFlushProcessor(f, lifecycle.NewBus(nil), zap.New(core))

	p.ProcessSignal(context.Background(), lifecycle.Signal{Kind: lifecycle.KindForeground})

	entries := logs.FilterMessage("flush attempt finished with error").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "foreground", fields["signal"])
	assert.Equal(t, "delivery-failed", fields["outcome"])
	assert.Equal(t, "503", fields["error"])
}

type gatedSender struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (g *gatedSender) Send(context.Context, ingest.Target, []schema.Event) error {
	if g.calls.Add(1) == 1 {
		close(g.started)
	}
	<-g.release
	return nil
}

type outcomeCounter struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (o *outcomeCounter) AddEnqueued(context.Context, int)  {}
func (o *outcomeCounter) AddEvicted(context.Context, int)   {}
func (o *outcomeCounter) AddDelivered(context.Context, int) {}

func (o *outcomeCounter) RecordFlush(_ context.Context, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes[outcome]++
}

func (o *outcomeCounter) count(outcome string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.outcomes[outcome]
}

// Boot, foreground and reconnect firing together must produce one delivery.
func TestConcurrentTriggersSendOnce(t *testing.T) {
	sender := &gatedSender{started: make(chan struct{}), release: make(chan struct{})}
	metrics := &outcomeCounter{outcomes: map[string]int{}}
	ob := outbox.New(store.NewMemoryStore(), sender, nil,
		outbox.WithTarget(ingest.Target{Endpoint: "https://ingest.example", Token: "t"}),
		outbox.WithMetrics(metrics))
	ob.Enqueue(context.Background(), schema.Event{Type: "behavior"})

	bus := lifecycle.NewBus(nil)
	p := NewFlushProcessor(ob, bus, nil)
	require.NoError(t, p.Start(context.Background()))
	<-sender.started

	require.NoError(t, bus.Publish(context.Background(), lifecycle.KindForeground))
	require.NoError(t, bus.Publish(context.Background(), lifecycle.KindConnectivityRegained))

	require.Eventually(t, func() bool {
		return metrics.count(string(outbox.ReasonInProgress)) == 2
	}, time.Second, time.Millisecond)
	close(sender.release)
	bus.Close()

	assert.Equal(t, int32(1), sender.calls.Load())
	assert.Equal(t, 1, metrics.count("ok"))
	assert.Equal(t, 0, ob.QueueSize())
}
