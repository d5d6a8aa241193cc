package testsupport

import (
	"context"
	"testing"

	"capstan/internal/config"
	"capstan/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewItem enqueues one work item for tests using the provided store.
func NewItem(t testing.TB, store *queue.Store, kind, payload string) *queue.Item {
	t.Helper()

	item, err := store.NewItem(context.Background(), kind, payload)
	if err != nil {
		t.Fatalf("store.NewItem: %v", err)
	}
	return item
}

// SeedItems enqueues one pending item per payload and returns them in insert
// order.
func SeedItems(t testing.TB, store *queue.Store, kind string, payloads ...string) []*queue.Item {
	t.Helper()

	items, err := store.NewItems(context.Background(), kind, payloads)
	if err != nil {
		t.Fatalf("store.NewItems: %v", err)
	}
	if len(items) != len(payloads) {
		t.Fatalf("expected %d seeded items, got %d", len(payloads), len(items))
	}
	return items
}
