package pool

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrDequeueTimeout reports that no item arrived within the Get timeout.
// Workers treat it as the idle-exit signal rather than a failure.
var ErrDequeueTimeout = errors.New("pool: dequeue timed out")

// ErrDoneMismatch reports more Done calls than items put.
var ErrDoneMismatch = errors.New("pool: done called with no outstanding items")

// Queue is an unbounded FIFO work queue with join tracking. Put never blocks;
// Get blocks until an item arrives, the timeout elapses, or the context is
// canceled. Every item handed out by Get must be acknowledged with Done so
// that Join can observe batch completion. All methods are safe for concurrent
// use.
type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	pending  int
	wake     chan struct{}
	finished chan struct{}
}

// NewQueue returns an empty queue. Join on a queue that has never seen a Put
// returns immediately.
func NewQueue[T any]() *Queue[T] {
	q := &Queue[T]{
		wake:     make(chan struct{}, 1),
		finished: make(chan struct{}),
	}
	close(q.finished)
	return q
}

// Put enqueues an item and increments the unfinished count. A Put after full
// drainage re-arms Join.
func (q *Queue[T]) Put(item T) {
	q.mu.Lock()
	if q.pending == 0 {
		q.finished = make(chan struct{})
	}
	q.pending++
	q.items = append(q.items, item)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Get removes and returns the oldest item. The timeout bounds the total wait
// across wakeups; a non-positive timeout makes Get a non-blocking attempt.
// Returns ErrDequeueTimeout when the window elapses and ctx.Err() when the
// context is canceled first.
func (q *Queue[T]) Get(ctx context.Context, timeout time.Duration) (T, error) {
	var zero T
	if ctx == nil {
		ctx = context.Background()
	}

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items[0] = zero
			q.items = q.items[1:]
			remaining := len(q.items)
			q.mu.Unlock()
			if remaining > 0 {
				// Pass the wakeup on so other waiters see the leftovers.
				select {
				case q.wake <- struct{}{}:
				default:
				}
			}
			return item, nil
		}
		q.mu.Unlock()

		if timeout <= 0 {
			return zero, ErrDequeueTimeout
		}

		select {
		case <-q.wake:
		case <-deadline:
			return zero, ErrDequeueTimeout
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Done acknowledges one previously dequeued item. When the unfinished count
// reaches zero all pending Join calls unblock.
func (q *Queue[T]) Done() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending == 0 {
		return ErrDoneMismatch
	}
	q.pending--
	if q.pending == 0 {
		close(q.finished)
	}
	return nil
}

// Join blocks until every item put on the queue has been acknowledged with
// Done, or the context is canceled.
func (q *Queue[T]) Join(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	q.mu.Lock()
	finished := q.finished
	q.mu.Unlock()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len reports the number of items waiting to be dequeued.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Unfinished reports the number of items put but not yet acknowledged.
func (q *Queue[T]) Unfinished() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}
