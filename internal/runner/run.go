package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"capstan/internal/logging"
	"capstan/internal/pool"
	"capstan/internal/queue"
	"capstan/internal/work"
)

func (r *Runner) run(ctx context.Context) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		summary, err := r.DrainOnce(ctx)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return
		case err != nil:
			r.handleClaimError(ctx, err)
		case summary == nil:
			r.waitForItemsOrShutdown(ctx)
		}
	}
}

// DrainOnce claims and processes a single batch. It returns nil when no
// pending items were available. Finished results are persisted even when ctx
// is canceled mid-batch; unfinished items are released back to pending.
func (r *Runner) DrainOnce(ctx context.Context) (*BatchSummary, error) {
	batchID := uuid.NewString()
	items, err := r.store.ClaimBatch(ctx, batchID, r.cfg.Runner.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("claim batch: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}

	batchCtx := work.WithBatchID(ctx, batchID)
	logger := logging.WithContext(batchCtx, r.logger)
	start := time.Now()
	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.Int("items", len(items)),
		logging.Int("workers", r.cfg.Pool.Workers),
	)

	p := pool.New(r.processItem,
		pool.WithDequeueTimeout(time.Duration(r.cfg.Pool.DequeueTimeoutMS)*time.Millisecond),
		pool.WithLogger(r.logger),
	)
	results, joinErr := p.ProcessBatch(batchCtx, items, r.cfg.Pool.Workers)

	// Persistence runs on a fresh context so a shutdown mid-batch still
	// records the work that finished. Stop waits for this before returning.
	persistCtx := work.WithBatchID(context.Background(), batchID)

	summary := &BatchSummary{
		BatchID:   batchID,
		Claimed:   len(items),
		Workers:   r.cfg.Pool.Workers,
		StartedAt: start.UTC(),
	}
	for _, result := range results {
		if result.Failed() {
			summary.Failed++
		} else {
			summary.Processed++
		}
		if err := r.persistResult(persistCtx, result); err != nil {
			r.setLastError(err)
			logger.Error("failed to persist item outcome",
				logging.Error(err),
				logging.Int64(logging.FieldItemID, result.Item.ID),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}
	}

	released, err := r.store.ReleaseBatch(persistCtx, batchID)
	if err != nil {
		r.setLastError(err)
		logger.Error("failed to release unfinished batch items", logging.Error(err))
	} else if released > 0 {
		logger.Info("released unfinished items to pending", logging.Int64("count", released))
	}

	summary.Duration = time.Since(start)
	r.setLastBatch(summary)
	logger.Info("batch complete",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("processed", summary.Processed),
		logging.Int("failed", summary.Failed),
		logging.Int64("released", released),
		logging.Duration("batch_duration", summary.Duration),
	)
	return summary, joinErr
}

// processItem is the pool dispatch function: resolve the processor for the
// item's kind and hand it the item. Errors returned here mark the item failed.
func (r *Runner) processItem(ctx context.Context, item *queue.Item) error {
	proc, err := r.registry.Resolve(item.Kind)
	if err != nil {
		return err
	}
	procCtx := work.WithProcessor(work.WithItemID(ctx, item.ID), proc.Kind())
	return proc.Process(procCtx, item)
}

func (r *Runner) persistResult(ctx context.Context, result pool.Result[*queue.Item]) error {
	item := result.Item
	if result.Failed() {
		message := "processing failed"
		if result.Err != nil {
			message = result.Err.Error()
		}
		item.MarkFailed(result.Worker, message)
	} else {
		item.MarkProcessed(result.Worker)
	}
	if err := r.store.Update(ctx, item); err != nil {
		return fmt.Errorf("persist item %d: %w", item.ID, err)
	}
	return nil
}

func (r *Runner) handleClaimError(ctx context.Context, err error) {
	r.setLastError(err)
	r.logger.Error("failed to claim work batch",
		logging.Error(err),
		logging.String(logging.FieldEventType, "batch_claim_failed"),
		logging.String(logging.FieldErrorHint, "check queue database access"),
	)
	select {
	case <-ctx.Done():
	case <-time.After(r.retryInterval):
	}
}

func (r *Runner) waitForItemsOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(r.pollInterval):
	}
}
