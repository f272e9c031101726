// Package queue implements the bounded SPSC queues the runtime uses to
// cross the thread boundary between the I/O goroutine and the runtime
// goroutine (spec §5): one queue of inbound ChannelUpdates, one of outbound
// Frames. Unlike the teacher's `graph.Frontier`, which orders work items by
// an OrderKey priority heap, these queues preserve plain arrival order — the
// spec requires frames be "applied in arrival order", not reordered.
//
// Grounded on the teacher's `graph/scheduler.go` Frontier: a buffered
// channel for bounded capacity plus atomic counters for depth/backpressure
// metrics, adapted to a non-blocking Push (the spec requires Push on a full
// queue to return an error, not block) and a context-aware Pop.
package queue

import (
	"context"
	"sync/atomic"

	"github.com/synnaxlabs/arc/runtime/errs"
)

// Queue is a single-producer/single-consumer bounded FIFO. Push is called
// only from the producer goroutine, Pop only from the consumer goroutine;
// neither side needs external locking beyond what the channel provides.
type Queue[T any] struct {
	items  chan T
	signal chan struct{}
	closed atomic.Bool

	depth     atomic.Int32
	peakDepth atomic.Int32
	pushed    atomic.Int64
	popped    atomic.Int64
	dropped   atomic.Int64
}

// New builds a Queue with the given bounded capacity.
func New[T any](capacity int) *Queue[T] {
	return &Queue[T]{items: make(chan T, capacity), signal: make(chan struct{}, 1)}
}

// Push enqueues v without blocking. It returns errs.ErrQueueClosed if Close
// has been called, or errs.ErrQueueFull if the queue is at capacity — the
// producer observes this as back-pressure (spec §5) and must decide whether
// to retry, drop, or propagate the error to its own caller.
func (q *Queue[T]) Push(v T) error {
	if q.closed.Load() {
		return errs.ErrQueueClosed
	}
	select {
	case q.items <- v:
		q.pushed.Add(1)
		depth := q.depth.Add(1)
		for {
			peak := q.peakDepth.Load()
			if depth <= peak || q.peakDepth.CompareAndSwap(peak, depth) {
				break
			}
		}
		select {
		case q.signal <- struct{}{}:
		default:
		}
		return nil
	default:
		q.dropped.Add(1)
		return errs.ErrQueueFull
	}
}

// Pop blocks until an item is available, ctx is cancelled, or the queue is
// closed and drained. ok is false in the latter two cases.
func (q *Queue[T]) Pop(ctx context.Context) (v T, ok bool) {
	select {
	case item, open := <-q.items:
		if !open {
			return v, false
		}
		q.popped.Add(1)
		q.depth.Add(-1)
		return item, true
	case <-ctx.Done():
		return v, false
	}
}

// C returns the queue's receive channel, for the Loop to select on
// alongside its timer case (spec §4.6: "the inbound queue's non-empty
// state acts as the data trigger"). Receiving from it via select is itself
// the Pop operation; callers that receive through C directly (rather than
// through Pop) must call Received afterward to keep depth metrics accurate.
func (q *Queue[T]) C() <-chan T { return q.items }

// Received updates depth/popped bookkeeping after a caller has consumed one
// item directly from C (e.g. from within a multi-way select the Loop runs
// against both this channel and its timer).
func (q *Queue[T]) Received() {
	q.popped.Add(1)
	q.depth.Add(-1)
}

// Signal returns the queue's non-empty notifier: a 1-buffered channel
// pulsed on every successful Push. The Loop selects on it alongside its
// timer (spec §4.6: "the inbound queue's non-empty state acts as the data
// trigger") without needing to know the queue's item type.
func (q *Queue[T]) Signal() <-chan struct{} { return q.signal }

// Close stops accepting new items and closes the underlying channel,
// unblocking any pending Pop. Safe to call once from the producer side
// after it has stopped calling Push.
func (q *Queue[T]) Close() {
	if q.closed.CompareAndSwap(false, true) {
		close(q.items)
	}
}

// Metrics snapshots the queue's counters for export via runtime/metrics.
type Metrics struct {
	Depth     int32
	PeakDepth int32
	Pushed    int64
	Popped    int64
	Dropped   int64
}

// Stats returns a point-in-time snapshot of the queue's counters.
func (q *Queue[T]) Stats() Metrics {
	return Metrics{
		Depth:     q.depth.Load(),
		PeakDepth: q.peakDepth.Load(),
		Pushed:    q.pushed.Load(),
		Popped:    q.popped.Load(),
		Dropped:   q.dropped.Load(),
	}
}
