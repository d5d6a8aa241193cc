package main

import (
	"context"
	"strings"
	"testing"

	"capstan/internal/queue"
)

func TestSeedCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	out, _, err := runCLI(t, []string{"seed", "--count", "5"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	requireContains(t, out, "Seeded 5 sleep items")

	items, err := env.store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("expected 5 items, got %d", len(items))
	}
	for _, item := range items {
		if item.Kind != "sleep" {
			t.Fatalf("expected kind sleep, got %q", item.Kind)
		}
		if !strings.HasPrefix(item.Payload, "task_") {
			t.Fatalf("expected task_ payload, got %q", item.Payload)
		}
		if item.Status != queue.StatusPending {
			t.Fatalf("expected pending, got %s", item.Status)
		}
	}
}

func TestSeedCommandCustomKindAndPrefix(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	out, _, err := runCLI(t, []string{"seed", "--count", "2", "--kind", "fetch", "--prefix", "url"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("seed custom: %v", err)
	}
	requireContains(t, out, "Seeded 2 fetch items")

	items, err := env.store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	for _, item := range items {
		if item.Kind != "fetch" {
			t.Fatalf("expected kind fetch, got %q", item.Kind)
		}
		if !strings.HasPrefix(item.Payload, "url_") {
			t.Fatalf("expected url_ payload, got %q", item.Payload)
		}
	}
}

func TestSeedCommandRejectsZeroCount(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"seed", "--count", "0"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "count must be at least 1") {
		t.Fatalf("expected count error, got %v", err)
	}
}
