package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"capstan/internal/queue"
	"capstan/internal/testsupport"
)

func TestQueueStatusAndList(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	testsupport.NewItem(t, env.store, "sleep", "alpha_payload")

	beta := testsupport.NewItem(t, env.store, "sleep", "beta_payload")
	beta.Status = queue.StatusFailed
	if err := env.store.Update(ctx, beta); err != nil {
		t.Fatalf("beta failed: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	requireContains(t, out, "Pending")
	requireContains(t, out, "Failed")

	out, _, err = runCLI(t, []string{"queue", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "alpha_payload")
	requireContains(t, out, "beta_payload")

	out, _, err = runCLI(t, []string{"queue", "list", "--status", "failed"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue list --status failed: %v", err)
	}
	requireContains(t, out, "beta_payload")
	if strings.Contains(out, "alpha_payload") {
		t.Fatalf("status filter leaked pending item: %q", out)
	}
}

func TestQueueAddCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	out, _, err := runCLI(t, []string{"queue", "add", "sleep", "alpha", "beta"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue add: %v", err)
	}
	requireContains(t, out, "Enqueued 2 sleep items")

	items, err := env.store.List(ctx)
	if err != nil {
		t.Fatalf("list after add: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	for _, item := range items {
		if item.Kind != "sleep" {
			t.Fatalf("expected kind sleep, got %q", item.Kind)
		}
		if item.Status != queue.StatusPending {
			t.Fatalf("expected pending, got %s", item.Status)
		}
	}
}

func TestQueueAddRequiresPayload(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"queue", "add", "sleep"}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected error for missing payload")
	}
}

func TestQueueRetryAndClear(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	alpha := testsupport.NewItem(t, env.store, "sleep", "alpha_payload")
	alpha.Status = queue.StatusFailed
	if err := env.store.Update(ctx, alpha); err != nil {
		t.Fatalf("alpha failed: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "retry"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue retry: %v", err)
	}
	requireContains(t, out, "Retried 1 failed items")

	updated, err := env.store.GetByID(ctx, alpha.ID)
	if err != nil {
		t.Fatalf("lookup alpha: %v", err)
	}
	if updated.Status != queue.StatusPending {
		t.Fatalf("expected pending, got %s", updated.Status)
	}

	updated.Status = queue.StatusFailed
	if err := env.store.Update(ctx, updated); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	out, _, err = runCLI(t, []string{"queue", "clear", "--failed"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue clear failed: %v", err)
	}
	requireContains(t, out, "Cleared 1 failed items")

	out, _, err = runCLI(t, []string{"queue", "clear"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	requireContains(t, out, "Cleared")

	out, _, err = runCLI(t, []string{"queue", "status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue status after clear: %v", err)
	}
	requireContains(t, out, "Queue is empty")
}

func TestQueueClearProcessed(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	done := testsupport.NewItem(t, env.store, "sleep", "done_payload")
	done.Status = queue.StatusProcessed
	if err := env.store.Update(ctx, done); err != nil {
		t.Fatalf("mark processed: %v", err)
	}
	testsupport.NewItem(t, env.store, "sleep", "pending_payload")

	out, _, err := runCLI(t, []string{"queue", "clear", "--processed"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue clear --processed: %v", err)
	}
	requireContains(t, out, "Cleared 1 processed items")

	items, err := env.store.List(ctx)
	if err != nil {
		t.Fatalf("list after clear: %v", err)
	}
	if len(items) != 1 || items[0].Payload != "pending_payload" {
		t.Fatalf("expected only pending item to remain, got %v", items)
	}
}

func TestQueueClearFlagConflict(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"queue", "clear", "--processed", "--failed"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "specify only one of") {
		t.Fatalf("expected flag conflict error, got %v", err)
	}
}

func TestQueueRetrySpecificID(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	alpha := testsupport.NewItem(t, env.store, "sleep", "alpha_payload")
	alpha.Status = queue.StatusFailed
	if err := env.store.Update(ctx, alpha); err != nil {
		t.Fatalf("alpha failed: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "retry", fmt.Sprintf("%d", alpha.ID)}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue retry specific: %v", err)
	}
	requireContains(t, out, fmt.Sprintf("Item %d reset for retry", alpha.ID))
}

func TestQueueRetryNotFailed(t *testing.T) {
	env := setupCLITestEnv(t)

	alpha := testsupport.NewItem(t, env.store, "sleep", "alpha_payload")

	out, _, err := runCLI(t, []string{"queue", "retry", fmt.Sprintf("%d", alpha.ID)}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue retry pending: %v", err)
	}
	requireContains(t, out, fmt.Sprintf("Item %d is not in failed state", alpha.ID))

	out, _, err = runCLI(t, []string{"queue", "retry", "9999"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue retry missing: %v", err)
	}
	requireContains(t, out, "Item 9999 not found")
}

func TestQueueRetryInvalidID(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"queue", "retry", "abc"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "invalid item id") {
		t.Fatalf("expected invalid id error, got %v", err)
	}
}

func TestQueueResetStuck(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	item := testsupport.NewItem(t, env.store, "sleep", "stuck_payload")
	item.Status = queue.StatusProcessing
	if err := env.store.Update(ctx, item); err != nil {
		t.Fatalf("mark processing: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "reset-stuck"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue reset-stuck: %v", err)
	}
	requireContains(t, out, "Reset 1 items")

	updated, err := env.store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("lookup item: %v", err)
	}
	if updated.Status != queue.StatusPending {
		t.Fatalf("expected pending, got %s", updated.Status)
	}
}

func TestQueueListJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	testsupport.NewItem(t, env.store, "sleep", "alpha_payload")
	testsupport.NewItem(t, env.store, "sleep", "beta_payload")

	out, _, err := runCLI(t, []string{"queue", "list", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue list --json: %v", err)
	}

	var items []map[string]any
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	for _, item := range items {
		if _, ok := item["id"]; !ok {
			t.Fatal("missing 'id' key in JSON item")
		}
		if _, ok := item["status"]; !ok {
			t.Fatal("missing 'status' key in JSON item")
		}
	}
}

func TestQueueListJSONEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"queue", "list", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue list --json empty: %v", err)
	}

	var items []any
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty array, got %d items", len(items))
	}
}

func TestQueueStatusJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	testsupport.NewItem(t, env.store, "sleep", "alpha_payload")
	beta := testsupport.NewItem(t, env.store, "sleep", "beta_payload")
	beta.Status = queue.StatusFailed
	if err := env.store.Update(ctx, beta); err != nil {
		t.Fatalf("beta failed: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "status", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue status --json: %v", err)
	}

	var stats map[string]any
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if _, ok := stats["pending"]; !ok {
		t.Fatalf("expected 'pending' key in status JSON, got: %v", stats)
	}
	if _, ok := stats["failed"]; !ok {
		t.Fatalf("expected 'failed' key in status JSON, got: %v", stats)
	}
}

func TestQueueHealthCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	testsupport.NewItem(t, env.store, "sleep", "alpha_payload")

	out, _, err := runCLI(t, []string{"queue", "health"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue health: %v", err)
	}
	requireContains(t, out, "Total: 1")
	requireContains(t, out, "Pending: 1")
	requireContains(t, out, "Database path:")
	requireContains(t, out, "work_items table present: yes")
	requireContains(t, out, "Integrity check: yes")
}

func TestQueueHealthJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	testsupport.NewItem(t, env.store, "sleep", "alpha_payload")

	out, _, err := runCLI(t, []string{"queue", "health", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue health --json: %v", err)
	}

	var health struct {
		Summary  map[string]any `json:"summary"`
		Database map[string]any `json:"database"`
	}
	if err := json.Unmarshal([]byte(out), &health); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	for _, key := range []string{"total", "pending", "processing", "processed", "failed"} {
		if _, ok := health.Summary[key]; !ok {
			t.Fatalf("missing %q key in health summary", key)
		}
	}
	if health.Summary["total"] != float64(1) {
		t.Fatalf("expected total=1, got %v", health.Summary["total"])
	}
	if health.Database["table_exists"] != true {
		t.Fatalf("expected table_exists=true, got %v", health.Database["table_exists"])
	}
}
