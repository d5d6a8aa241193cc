package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ClaimBatch atomically moves up to limit pending items into processing under
// the given batch identifier, oldest first. Claimed items get a bumped attempt
// count and a fresh start timestamp. A nil slice means no pending work.
func (s *Store) ClaimBatch(ctx context.Context, batchID string, limit int) ([]*Item, error) {
	batchID = strings.TrimSpace(batchID)
	if batchID == "" {
		return nil, errors.New("batch id is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("claim limit must be positive, got %d", limit)
	}
	ctx = ensureContext(ctx)

	var ids []int64
	claim := func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin claim tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		rows, err := tx.QueryContext(
			ctx,
			`SELECT id FROM work_items WHERE status = ? ORDER BY created_at, id LIMIT ?`,
			StatusPending,
			limit,
		)
		if err != nil {
			return fmt.Errorf("select pending: %w", err)
		}
		ids = ids[:0]
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scan pending id: %w", err)
			}
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("iterate pending ids: %w", err)
		}
		rows.Close()

		if len(ids) == 0 {
			return tx.Commit()
		}

		now := time.Now().UTC().Format(time.RFC3339Nano)
		placeholders := makePlaceholders(len(ids))
		args := make([]any, 0, len(ids)+4)
		args = append(args, StatusProcessing, batchID, now, now)
		for _, id := range ids {
			args = append(args, id)
		}
		query := `UPDATE work_items
            SET status = ?, batch_id = ?, attempts = attempts + 1,
                worker_id = NULL, error_message = NULL, started_at = ?, updated_at = ?
            WHERE id IN (` + placeholders + `)`
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("mark processing: %w", err)
		}
		return tx.Commit()
	}
	if err := retryOnBusy(ctx, claim); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return s.itemsByIDs(ctx, ids)
}

// ReleaseBatch returns still-processing items of a batch to pending so a later
// run can claim them again. Finished items are left untouched.
func (s *Store) ReleaseBatch(ctx context.Context, batchID string) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE work_items
        SET status = ?, batch_id = NULL, worker_id = NULL, started_at = NULL, updated_at = ?
        WHERE batch_id = ? AND status = ?`,
		StatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
		batchID,
		StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("release batch: %w", err)
	}
	return res.RowsAffected()
}

// ResetStuckProcessing returns every processing item to pending. The daemon
// runs this at startup so items orphaned by a crash become claimable again.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE work_items
        SET status = ?, batch_id = NULL, worker_id = NULL, started_at = NULL, updated_at = ?
        WHERE status = ?`,
		StatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck items: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed items back to pending for reprocessing.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE work_items
            SET status = ?, batch_id = NULL, worker_id = NULL, error_message = NULL,
                result_json = NULL, started_at = NULL, finished_at = NULL, updated_at = ?
            WHERE status = ?`,
			StatusPending,
			now,
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed items: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, StatusPending, now)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE work_items
        SET status = ?, batch_id = NULL, worker_id = NULL, error_message = NULL,
            result_json = NULL, started_at = NULL, finished_at = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status = '` + string(StatusFailed) + `'`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected items: %w", err)
	}
	return res.RowsAffected()
}
