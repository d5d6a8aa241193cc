package pool

import "context"

type contextKey string

const workerKey contextKey = "pool_worker"

// WithWorker attaches a worker index to the context. ProcessBatch applies it
// before invoking the ProcessFunc so downstream logging can tag log lines.
func WithWorker(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, workerKey, id)
}

// WorkerFromContext extracts the worker index when present.
func WorkerFromContext(ctx context.Context) (int, bool) {
	if ctx == nil {
		return 0, false
	}
	id, ok := ctx.Value(workerKey).(int)
	return id, ok
}
