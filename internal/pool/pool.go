package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ProcessFunc handles one item. A nil return marks the item processed; an
// error or panic marks it failed. The context carries the worker index and is
// canceled once the batch has been joined, so long-running functions should
// honor ctx.Done().
type ProcessFunc[T any] func(ctx context.Context, item T) error

// Pool coordinates batch processing with a fixed number of workers. A Pool is
// reusable and safe for concurrent ProcessBatch calls; each call drains its
// own queue.
type Pool[T any] struct {
	fn             ProcessFunc[T]
	dequeueTimeout time.Duration
	logger         *slog.Logger
}

// New constructs a pool around fn.
func New[T any](fn ProcessFunc[T], opts ...Option) *Pool[T] {
	s := newSettings(opts)
	return &Pool[T]{
		fn:             fn,
		dequeueTimeout: s.dequeueTimeout,
		logger:         s.logger,
	}
}

// ProcessBatch enqueues items in order, runs workerCount workers until the
// queue is fully acknowledged, and returns one Result per item. Result order
// follows completion, not input. workerCount below 1 is an error. An empty
// batch returns immediately. When ctx is canceled before the batch completes,
// the results collected so far are returned together with the context error.
func (p *Pool[T]) ProcessBatch(ctx context.Context, items []T, workerCount int) ([]Result[T], error) {
	if workerCount < 1 {
		return nil, fmt.Errorf("pool: worker count must be at least 1, got %d", workerCount)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if len(items) == 0 {
		return nil, nil
	}

	queue := NewQueue[T]()
	for _, item := range items {
		queue.Put(item)
	}

	// Buffered to item count so workers never block on the send.
	results := make(chan Result[T], len(items))

	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for id := 0; id < workerCount; id++ {
		w := worker[T]{id: id, pool: p, queue: queue, results: results}
		go func() {
			defer wg.Done()
			w.run(workCtx)
		}()
	}

	joinErr := queue.Join(ctx)
	cancel()
	wg.Wait()
	close(results)

	collected := make([]Result[T], 0, len(items))
	for res := range results {
		collected = append(collected, res)
	}
	return collected, joinErr
}

type worker[T any] struct {
	id      int
	pool    *Pool[T]
	queue   *Queue[T]
	results chan<- Result[T]
}

func (w worker[T]) run(ctx context.Context) {
	logger := w.pool.logger.With("worker_id", w.id)
	logger.Debug("worker started")
	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker stopped", "reason", "canceled")
			return
		default:
		}

		item, err := w.queue.Get(ctx, w.pool.dequeueTimeout)
		if err != nil {
			reason := "canceled"
			if err == ErrDequeueTimeout {
				reason = "idle"
			}
			logger.Debug("worker stopped", "reason", reason)
			return
		}

		res := w.process(ctx, item)
		if res.Failed() {
			logger.Warn("item processing failed", "error", res.Err)
		}

		// Record the result before acknowledging so a completed join always
		// finds every result buffered.
		w.results <- res
		_ = w.queue.Done()
	}
}

func (w worker[T]) process(ctx context.Context, item T) Result[T] {
	start := time.Now()
	err := w.invoke(ctx, item)
	res := Result[T]{
		Item:     item,
		Worker:   w.id,
		Duration: time.Since(start),
	}
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
	} else {
		res.Status = StatusProcessed
	}
	return res
}

// invoke runs the ProcessFunc with panic isolation: a panicking item fails
// that item only, never the worker.
func (w worker[T]) invoke(ctx context.Context, item T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker panic: %v", r)
		}
	}()
	return w.pool.fn(WithWorker(ctx, w.id), item)
}
