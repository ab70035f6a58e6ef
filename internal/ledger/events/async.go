package events

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

// ErrBufferFull is returned by Async.Publish when the worker has fallen behind.
var ErrBufferFull = errors.New("event buffer full")

// Async queues events for a background worker so that Publish never waits
// on the wrapped publisher. When the queue is full the event is dropped.
type Async struct {
	next    Publisher
	queue   chan Event
	timeout time.Duration
	logger  *slog.Logger
	dropped atomic.Uint64
}

type AsyncOption func(*Async)

// WithDeliveryTimeout bounds each call to the wrapped publisher.
func WithDeliveryTimeout(d time.Duration) AsyncOption {
	return func(a *Async) {
		a.timeout = d
	}
}

func WithAsyncLogger(logger *slog.Logger) AsyncOption {
	return func(a *Async) {
		a.logger = logger
	}
}

// NewAsync wraps next with a queue of the given size. Run must be started
// for events to be delivered.
func NewAsync(next Publisher, size int, opts ...AsyncOption) *Async {
	if size < 1 {
		size = 1
	}
	a := &Async{
		next:    next,
		queue:   make(chan Event, size),
		timeout: 5 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Async) Publish(ctx context.Context, e Event) error {
	select {
	case a.queue <- e:
		return nil
	default:
		a.dropped.Add(1)
		a.logger.WarnContext(ctx, "dropping ledger event", "kind", e.Kind, "block", uint64(e.Block))
		return ErrBufferFull
	}
}

// Dropped is the number of events discarded because the queue was full.
func (a *Async) Dropped() uint64 {
	return a.dropped.Load()
}

// Run delivers queued events until ctx is done, then drains what is left
// with the delivery timeout applied to each event.
func (a *Async) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			a.drain()
			return nil
		case e := <-a.queue:
			a.deliver(ctx, e)
		}
	}
}

func (a *Async) drain() {
	for {
		select {
		case e := <-a.queue:
			a.deliver(context.Background(), e)
		default:
			return
		}
	}
}

func (a *Async) deliver(ctx context.Context, e Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	defer cancel()
	if err := a.next.Publish(ctx, e); err != nil {
		a.logger.ErrorContext(ctx, "ledger event delivery failed", "kind", e.Kind, "error", err)
	}
}
