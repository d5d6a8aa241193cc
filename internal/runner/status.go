package runner

import (
	"context"
	"time"

	"capstan/internal/logging"
	"capstan/internal/queue"
	"capstan/internal/work"
)

// BatchSummary captures the outcome of one drained batch.
type BatchSummary struct {
	BatchID   string
	Claimed   int
	Processed int
	Failed    int
	Workers   int
	StartedAt time.Time
	Duration  time.Duration
}

// StatusSummary represents lightweight runner state for status displays.
type StatusSummary struct {
	Running         bool
	LastError       string
	LastBatch       *BatchSummary
	QueueStats      map[queue.Status]int
	ProcessorHealth []work.Health
}

// Status reports the runner state together with queue stats and processor
// health checks.
func (r *Runner) Status(ctx context.Context) StatusSummary {
	r.mu.RLock()
	summary := StatusSummary{Running: r.running}
	if r.lastErr != nil {
		summary.LastError = r.lastErr.Error()
	}
	if r.lastBatch != nil {
		batch := *r.lastBatch
		summary.LastBatch = &batch
	}
	r.mu.RUnlock()

	stats, err := r.store.Stats(ctx)
	if err != nil {
		r.logger.Warn("failed to read queue stats", logging.Error(err))
	} else {
		summary.QueueStats = stats
	}

	summary.ProcessorHealth = r.registry.Health(ctx)
	return summary
}

func (r *Runner) setLastError(err error) {
	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()
}

func (r *Runner) setLastBatch(summary *BatchSummary) {
	r.mu.Lock()
	if summary == nil {
		r.lastBatch = nil
	} else {
		batch := *summary
		r.lastBatch = &batch
	}
	r.mu.Unlock()
}
