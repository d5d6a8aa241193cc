package runner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"capstan/internal/config"
	"capstan/internal/logging"
	"capstan/internal/queue"
	"capstan/internal/work"
)

// Runner coordinates batch processing of queued work items.
type Runner struct {
	cfg      *config.Config
	store    *queue.Store
	registry *work.Registry
	logger   *slog.Logger

	pollInterval  time.Duration
	retryInterval time.Duration

	mu        sync.RWMutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	lastErr   error
	lastBatch *BatchSummary
}

// New constructs a runner over the given store and processor registry.
func New(cfg *config.Config, store *queue.Store, registry *work.Registry, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:           cfg,
		store:         store,
		registry:      registry,
		logger:        logging.NewComponentLogger(logger, "runner"),
		pollInterval:  time.Duration(cfg.Runner.PollInterval) * time.Second,
		retryInterval: time.Duration(cfg.Runner.ErrorRetryInterval) * time.Second,
	}
}

// Start launches the drain loop in a background goroutine. It fails when the
// runner is already running or no processors have been registered.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return errors.New("runner already running")
	}
	if len(r.registry.Kinds()) == 0 {
		return errors.New("no processors registered")
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.wg.Add(1)
	go r.run(runCtx)

	r.logger.Info("runner started",
		logging.Int("workers", r.cfg.Pool.Workers),
		logging.Int("batch_size", r.cfg.Runner.BatchSize),
		logging.Any("processors", r.registry.Kinds()),
	)
	return nil
}

// Stop cancels the drain loop and waits for the in-flight batch to persist.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
	r.logger.Info("runner stopped")
}

// Running reports whether the drain loop is active.
func (r *Runner) Running() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}
