package pool

import "time"

// Status describes the outcome of processing a single item.
type Status string

const (
	// StatusProcessed marks an item whose ProcessFunc returned nil.
	StatusProcessed Status = "processed"
	// StatusFailed marks an item whose ProcessFunc returned an error or panicked.
	StatusFailed Status = "failed"
)

// Result records the outcome for one input item. ProcessBatch returns exactly
// one Result per item; failures are tagged rather than dropped so callers can
// always reconcile output against input.
type Result[T any] struct {
	Item     T
	Worker   int
	Status   Status
	Err      error
	Duration time.Duration
}

// Failed reports whether the item ended in StatusFailed.
func (r Result[T]) Failed() bool {
	return r.Status == StatusFailed
}
