package events

import (
	"context"
	stderrors "errors"
	"sync"

	"points-ledger/internal/metrics"

	"github.com/rs/zerolog"
)

// DefaultQueueSize is the number of events a Dispatcher buffers before it
// starts dropping them.
const DefaultQueueSize = 1024

var (
	ErrQueueFull        = stderrors.New("event queue is full")
	ErrDispatcherClosed = stderrors.New("event dispatcher is closed")
)

// Dispatcher hands events to a single worker that forwards them to the
// wrapped Publisher. Publish only enqueues, so callers never wait on the
// broker. Events leave in the order they were enqueued.
type Dispatcher struct {
	next   Publisher
	queue  chan EntryCommitted
	logger zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

var _ Publisher = (*Dispatcher)(nil)

func NewDispatcher(next Publisher, size int, logger zerolog.Logger) *Dispatcher {
	if size <= 0 {
		size = DefaultQueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		next:   next,
		queue:  make(chan EntryCommitted, size),
		logger: logger.With().Str("component", "dispatcher").Logger(),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

// Publish enqueues event without blocking.
func (d *Dispatcher) Publish(_ context.Context, event EntryCommitted) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for event := range d.queue {
		if err := d.next.Publish(d.ctx, event); err != nil {
			metrics.EventPublishFailures.Inc()
			d.logger.Warn().Err(err).
				Int64("entry_id", event.ID).
				Str("username", event.Username).
				Msg("Failed to publish entry event")
		}
	}
}

// Shutdown stops accepting events and waits for the queue to drain. If ctx
// ends first, events still queued are abandoned and ctx's error is returned.
// The wrapped Publisher is closed either way.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()

		select {
		case <-d.done:
		case <-ctx.Done():
			d.cancel()
			<-d.done
			d.closeErr = ctx.Err()
		}
		d.cancel()

		if err := d.next.Close(); err != nil && d.closeErr == nil {
			d.closeErr = err
		}
	})
	return d.closeErr
}

func (d *Dispatcher) Close() error {
	return d.Shutdown(context.Background())
}
