package runner_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"capstan/internal/config"
	"capstan/internal/logging"
	"capstan/internal/queue"
	"capstan/internal/runner"
	"capstan/internal/testsupport"
	"capstan/internal/work"
)

type recordingProcessor struct {
	kind string

	mu   sync.Mutex
	seen []string
	fail map[string]bool
}

func newRecordingProcessor(kind string) *recordingProcessor {
	return &recordingProcessor{kind: kind, fail: make(map[string]bool)}
}

func (p *recordingProcessor) Kind() string { return p.kind }

func (p *recordingProcessor) Process(ctx context.Context, item *queue.Item) error {
	p.mu.Lock()
	p.seen = append(p.seen, item.Payload)
	p.mu.Unlock()
	if p.fail[item.Payload] {
		return work.Wrap(work.ErrTransient, p.kind, "process", "simulated failure", nil)
	}
	item.ResultJSON = `{"ok":true}`
	return nil
}

func (p *recordingProcessor) HealthCheck(ctx context.Context) work.Health {
	return work.Healthy(p.kind)
}

func (p *recordingProcessor) payloads() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.seen...)
}

func newTestRunner(t *testing.T, processors ...work.Processor) (*runner.Runner, *queue.Store, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	registry := work.NewRegistry()
	for _, proc := range processors {
		if err := registry.Register(proc); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}
	return runner.New(cfg, store, registry, logging.NewNop()), store, cfg
}

func TestDrainOnceProcessesBatch(t *testing.T) {
	proc := newRecordingProcessor("echo")
	r, store, _ := newTestRunner(t, proc)
	ctx := context.Background()

	items := testsupport.SeedItems(t, store, "echo", "alpha", "beta", "gamma")

	summary, err := r.DrainOnce(ctx)
	if err != nil {
		t.Fatalf("DrainOnce failed: %v", err)
	}
	if summary == nil {
		t.Fatal("expected batch summary")
	}
	if summary.Claimed != 3 || summary.Processed != 3 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.BatchID == "" {
		t.Fatal("expected batch ID")
	}
	if len(proc.payloads()) != 3 {
		t.Fatalf("expected 3 processed payloads, got %v", proc.payloads())
	}

	for _, seeded := range items {
		updated, err := store.GetByID(ctx, seeded.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if updated.Status != queue.StatusProcessed {
			t.Fatalf("expected processed status for %q, got %s", updated.Payload, updated.Status)
		}
		if updated.WorkerID == queue.UnassignedWorker {
			t.Fatalf("expected worker assignment for %q", updated.Payload)
		}
		if updated.ResultJSON == "" {
			t.Fatalf("expected result JSON for %q", updated.Payload)
		}
		if updated.FinishedAt == nil {
			t.Fatalf("expected finished timestamp for %q", updated.Payload)
		}
	}
}

func TestDrainOnceEmptyQueue(t *testing.T) {
	r, _, _ := newTestRunner(t, newRecordingProcessor("echo"))

	summary, err := r.DrainOnce(context.Background())
	if err != nil {
		t.Fatalf("DrainOnce failed: %v", err)
	}
	if summary != nil {
		t.Fatalf("expected nil summary for empty queue, got %+v", summary)
	}
}

func TestDrainOnceTagsFailures(t *testing.T) {
	proc := newRecordingProcessor("echo")
	proc.fail["bad"] = true
	r, store, _ := newTestRunner(t, proc)
	ctx := context.Background()

	testsupport.SeedItems(t, store, "echo", "good", "bad")

	summary, err := r.DrainOnce(ctx)
	if err != nil {
		t.Fatalf("DrainOnce failed: %v", err)
	}
	if summary.Processed != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	failed, err := store.List(ctx, queue.StatusFailed)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("expected 1 failed item, got %d", len(failed))
	}
	if failed[0].Payload != "bad" {
		t.Fatalf("expected payload bad, got %q", failed[0].Payload)
	}
	if !strings.Contains(failed[0].ErrorMessage, "simulated failure") {
		t.Fatalf("expected error message to mention the failure, got %q", failed[0].ErrorMessage)
	}
}

func TestDrainOnceUnknownKindFailsItem(t *testing.T) {
	r, store, _ := newTestRunner(t, newRecordingProcessor("echo"))
	ctx := context.Background()

	testsupport.SeedItems(t, store, "mystery", "payload")

	summary, err := r.DrainOnce(ctx)
	if err != nil {
		t.Fatalf("DrainOnce failed: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("expected 1 failure, got %+v", summary)
	}

	failed, err := store.List(ctx, queue.StatusFailed)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("expected 1 failed item, got %d", len(failed))
	}
	if !strings.Contains(failed[0].ErrorMessage, "mystery") {
		t.Fatalf("expected error message to name the kind, got %q", failed[0].ErrorMessage)
	}
}

func TestStartProcessesSeededItems(t *testing.T) {
	proc := newRecordingProcessor("echo")
	r, store, _ := newTestRunner(t, proc)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	testsupport.SeedItems(t, store, "echo", "one", "two", "three", "four")

	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { r.Stop() })

	if err := r.Start(ctx); err == nil {
		t.Fatal("expected error starting twice")
	}

	deadline := time.After(10 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for batch completion")
		default:
		}
		stats, err := store.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats failed: %v", err)
		}
		if stats[queue.StatusProcessed] == 4 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	r.Stop()
	if r.Running() {
		t.Fatal("expected runner stopped")
	}
}

func TestStartRequiresProcessors(t *testing.T) {
	r, _, _ := newTestRunner(t)
	if err := r.Start(context.Background()); err == nil {
		t.Fatal("expected error without registered processors")
	}
}

func TestStatusReportsQueueAndHealth(t *testing.T) {
	proc := newRecordingProcessor("echo")
	proc.fail["bad"] = true
	r, store, _ := newTestRunner(t, proc)
	ctx := context.Background()

	testsupport.SeedItems(t, store, "echo", "good", "bad")
	if _, err := r.DrainOnce(ctx); err != nil {
		t.Fatalf("DrainOnce failed: %v", err)
	}

	status := r.Status(ctx)
	if status.Running {
		t.Fatal("expected runner not running")
	}
	if status.LastBatch == nil {
		t.Fatal("expected last batch summary")
	}
	if status.LastBatch.Processed != 1 || status.LastBatch.Failed != 1 {
		t.Fatalf("unexpected last batch: %+v", status.LastBatch)
	}
	if status.QueueStats[queue.StatusProcessed] != 1 || status.QueueStats[queue.StatusFailed] != 1 {
		t.Fatalf("unexpected queue stats: %+v", status.QueueStats)
	}
	if len(status.ProcessorHealth) != 1 {
		t.Fatalf("expected 1 health entry, got %d", len(status.ProcessorHealth))
	}
	if !status.ProcessorHealth[0].Ready {
		t.Fatalf("expected ready processor, got %+v", status.ProcessorHealth[0])
	}
}

func TestRunnerHonorsWorkerLimit(t *testing.T) {
	var (
		mu      sync.Mutex
		active  int
		peak    int
		started = make(chan struct{}, 16)
	)
	proc := &gateProcessor{
		kind: "gate",
		process: func(ctx context.Context, item *queue.Item) error {
			mu.Lock()
			active++
			if active > peak {
				peak = active
			}
			mu.Unlock()
			started <- struct{}{}
			time.Sleep(30 * time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
			return nil
		},
	}

	r, store, cfg := newTestRunner(t, proc)
	testsupport.SeedItems(t, store, "gate", "a", "b", "c", "d", "e", "f")

	if _, err := r.DrainOnce(context.Background()); err != nil {
		t.Fatalf("DrainOnce failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if peak > cfg.Pool.Workers {
		t.Fatalf("expected at most %d concurrent items, saw %d", cfg.Pool.Workers, peak)
	}
	if len(started) != 6 {
		t.Fatalf("expected 6 processed items, got %d", len(started))
	}
}

type gateProcessor struct {
	kind    string
	process func(ctx context.Context, item *queue.Item) error
}

func (p *gateProcessor) Kind() string { return p.kind }

func (p *gateProcessor) Process(ctx context.Context, item *queue.Item) error {
	return p.process(ctx, item)
}

func (p *gateProcessor) HealthCheck(ctx context.Context) work.Health {
	return work.Healthy(p.kind)
}
