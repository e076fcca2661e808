// Package lifecycle turns host lifecycle and connectivity changes into flush
// signals.
package lifecycle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/zoff-tech/event-outbox/pkg/logging"
)

var ErrBusClosed = errors.New("lifecycle bus closed")

// Kind names what prompted a signal.
type Kind string

const (
	KindProcessStart         Kind = "process-start"
	KindForeground           Kind = "foreground"
	KindConnectivityRegained Kind = "connectivity-regained"
	KindManual               Kind = "manual"
)

type Signal struct {
	Kind Kind
	At   time.Time
}

// Handler reacts to a signal. It runs on its own goroutine.
type Handler func(ctx context.Context, sig Signal)

// Bus fans signals out to every subscriber. Publish never blocks on
// handlers and a panicking handler does not affect the others.
type Bus struct {
	logger *zap.Logger
	now    func() time.Time

	mu       sync.RWMutex
	handlers []Handler
	closed   bool

	wg conc.WaitGroup
}

func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		logger: logging.OrNop(logger).With(zap.String("component", "lifecycle")),
		now:    time.Now,
	}
}

func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers a signal of the given kind to all subscribers. Handlers
// keep the values of ctx but not its cancellation, so a request that
// triggered the signal may finish before the handlers do.
func (b *Bus) Publish(ctx context.Context, kind Kind) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	sig := Signal{Kind: kind, At: b.now()}
	hctx := context.WithoutCancel(ctx)
	b.logger.Debug("signal published", zap.String("kind", string(kind)), zap.Int("subscribers", len(b.handlers)))
	for _, h := range b.handlers {
		h := h
		b.wg.Go(func() { h(hctx, sig) })
	}
	return nil
}

// Close rejects further signals and waits for running handlers.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	if r := b.wg.WaitAndRecover(); r != nil {
		b.logger.Error("signal handler panicked", zap.Any("panic", r.Value), zap.String("stack", string(r.Stack)))
	}
}
