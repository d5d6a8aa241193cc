package pool_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"capstan/internal/pool"
)

func demoItems(n int) []string {
	items := make([]string, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, fmt.Sprintf("task_%d", i))
	}
	return items
}

func TestProcessBatchOneResultPerItem(t *testing.T) {
	p := pool.New(func(ctx context.Context, item string) error {
		return nil
	}, pool.WithDequeueTimeout(100*time.Millisecond))

	items := demoItems(10)
	results, err := p.ProcessBatch(context.Background(), items, 2)
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if len(results) != len(items) {
		t.Fatalf("got %d results, want %d", len(results), len(items))
	}

	seen := make(map[string]bool, len(items))
	for _, res := range results {
		if res.Status != pool.StatusProcessed {
			t.Errorf("item %q status = %q, want processed", res.Item, res.Status)
		}
		if res.Err != nil {
			t.Errorf("item %q carries error: %v", res.Item, res.Err)
		}
		if res.Worker < 0 || res.Worker > 1 {
			t.Errorf("item %q worker = %d, want 0 or 1", res.Item, res.Worker)
		}
		if seen[res.Item] {
			t.Errorf("item %q appears in more than one result", res.Item)
		}
		seen[res.Item] = true
	}
	for _, item := range items {
		if !seen[item] {
			t.Errorf("item %q missing from results", item)
		}
	}
}

func TestProcessBatchEmpty(t *testing.T) {
	var calls atomic.Int64
	p := pool.New(func(ctx context.Context, item string) error {
		calls.Add(1)
		return nil
	})

	for _, workers := range []int{1, 3, 16} {
		start := time.Now()
		results, err := p.ProcessBatch(context.Background(), nil, workers)
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		if len(results) != 0 {
			t.Fatalf("workers=%d: got %d results for empty batch", workers, len(results))
		}
		if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
			t.Fatalf("workers=%d: empty batch took %v", workers, elapsed)
		}
	}
	if calls.Load() != 0 {
		t.Fatalf("process func invoked %d times for empty batches", calls.Load())
	}
}

func TestProcessBatchSingleItemExtraWorkersIdle(t *testing.T) {
	p := pool.New(func(ctx context.Context, item string) error {
		return nil
	}, pool.WithDequeueTimeout(50*time.Millisecond))

	results, err := p.ProcessBatch(context.Background(), []string{"task_0"}, 3)
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Item != "task_0" || results[0].Status != pool.StatusProcessed {
		t.Fatalf("unexpected result: %+v", results[0])
	}
}

func TestProcessBatchMoreWorkersThanItems(t *testing.T) {
	p := pool.New(func(ctx context.Context, item string) error {
		time.Sleep(5 * time.Millisecond)
		return nil
	}, pool.WithDequeueTimeout(50*time.Millisecond))

	done := make(chan struct{})
	var results []pool.Result[string]
	var err error
	go func() {
		results, err = p.ProcessBatch(context.Background(), demoItems(3), 8)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ProcessBatch deadlocked with more workers than items")
	}
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
}

func TestProcessBatchFailureTagged(t *testing.T) {
	boom := errors.New("simulated failure")
	p := pool.New(func(ctx context.Context, item string) error {
		if item == "task_3" {
			return boom
		}
		return nil
	}, pool.WithDequeueTimeout(100*time.Millisecond))

	results, err := p.ProcessBatch(context.Background(), demoItems(10), 2)
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if len(results) != 10 {
		t.Fatalf("got %d results, want 10", len(results))
	}

	var failed, processed int
	for _, res := range results {
		switch res.Status {
		case pool.StatusFailed:
			failed++
			if res.Item != "task_3" {
				t.Errorf("unexpected failed item %q", res.Item)
			}
			if !errors.Is(res.Err, boom) {
				t.Errorf("failed result error = %v, want wrapped cause", res.Err)
			}
		case pool.StatusProcessed:
			processed++
		default:
			t.Errorf("item %q has unknown status %q", res.Item, res.Status)
		}
	}
	if failed != 1 || processed != 9 {
		t.Fatalf("failed=%d processed=%d, want 1/9", failed, processed)
	}
}

func TestProcessBatchPanicIsolated(t *testing.T) {
	p := pool.New(func(ctx context.Context, item string) error {
		if item == "task_1" {
			panic("exploding item")
		}
		return nil
	}, pool.WithDequeueTimeout(100*time.Millisecond))

	results, err := p.ProcessBatch(context.Background(), demoItems(4), 2)
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}
	for _, res := range results {
		if res.Item == "task_1" {
			if res.Status != pool.StatusFailed {
				t.Fatalf("panicking item status = %q", res.Status)
			}
			if res.Err == nil || !strings.Contains(res.Err.Error(), "panic") {
				t.Fatalf("panicking item error = %v", res.Err)
			}
			continue
		}
		if res.Status != pool.StatusProcessed {
			t.Errorf("item %q status = %q after sibling panic", res.Item, res.Status)
		}
	}
}

func TestProcessBatchRejectsInvalidWorkerCount(t *testing.T) {
	p := pool.New(func(ctx context.Context, item string) error {
		t.Error("process func should not run")
		return nil
	})

	for _, workers := range []int{0, -1} {
		results, err := p.ProcessBatch(context.Background(), demoItems(2), workers)
		if err == nil {
			t.Fatalf("workers=%d: expected error", workers)
		}
		if results != nil {
			t.Fatalf("workers=%d: expected nil results, got %d", workers, len(results))
		}
	}
}

func TestProcessBatchContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	p := pool.New(func(ctx context.Context, item string) error {
		if item == "task_1" {
			cancel()
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}, pool.WithDequeueTimeout(time.Second))

	results, err := p.ProcessBatch(ctx, demoItems(4), 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(results) == 0 || len(results) >= 4 {
		t.Fatalf("expected partial results, got %d", len(results))
	}
}

func TestProcessBatchRunsWorkersConcurrently(t *testing.T) {
	const delay = 50 * time.Millisecond
	p := pool.New(func(ctx context.Context, item string) error {
		time.Sleep(delay)
		return nil
	}, pool.WithDequeueTimeout(time.Second))

	start := time.Now()
	results, err := p.ProcessBatch(context.Background(), demoItems(4), 4)
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}
	// Serial execution would take 4x the delay.
	if elapsed := time.Since(start); elapsed > 3*delay {
		t.Fatalf("batch took %v, expected concurrent execution", elapsed)
	}
}

func TestProcessBatchPoolReusable(t *testing.T) {
	var calls atomic.Int64
	p := pool.New(func(ctx context.Context, item string) error {
		calls.Add(1)
		return nil
	}, pool.WithDequeueTimeout(50*time.Millisecond))

	for round := 0; round < 2; round++ {
		results, err := p.ProcessBatch(context.Background(), demoItems(5), 2)
		if err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
		if len(results) != 5 {
			t.Fatalf("round %d: got %d results", round, len(results))
		}
	}
	if calls.Load() != 10 {
		t.Fatalf("process func ran %d times, want 10", calls.Load())
	}
}
