package work

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Registry resolves processor implementations by work item kind.
type Registry struct {
	mu         sync.RWMutex
	processors map[string]Processor
}

// NewRegistry constructs an empty processor registry.
func NewRegistry() *Registry {
	return &Registry{processors: make(map[string]Processor)}
}

// Register adds a processor keyed by its kind. Registering a second processor
// under an already claimed kind is a configuration error.
func (r *Registry) Register(p Processor) error {
	if p == nil {
		return Wrap(ErrConfiguration, "", "register", "nil processor", nil)
	}
	kind := strings.TrimSpace(p.Kind())
	if kind == "" {
		return Wrap(ErrConfiguration, "", "register", "processor kind is empty", nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.processors[kind]; exists {
		return Wrap(ErrConfiguration, kind, "register", "processor already registered", nil)
	}
	r.processors[kind] = p
	return nil
}

// Resolve returns the processor registered for the given kind.
func (r *Registry) Resolve(kind string) (Processor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.processors[strings.TrimSpace(kind)]
	if !ok {
		return nil, Wrap(ErrNotFound, kind, "resolve", "no processor registered", nil)
	}
	return p, nil
}

// Kinds lists the registered processor kinds in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.processors))
	for kind := range r.processors {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Health reports the readiness of every registered processor ordered by kind.
// Checks run outside the registry lock so a slow processor cannot block
// registration.
func (r *Registry) Health(ctx context.Context) []Health {
	r.mu.RLock()
	procs := make([]Processor, 0, len(r.processors))
	for _, p := range r.processors {
		procs = append(procs, p)
	}
	r.mu.RUnlock()

	sort.Slice(procs, func(i, j int) bool { return procs[i].Kind() < procs[j].Kind() })
	checks := make([]Health, 0, len(procs))
	for _, p := range procs {
		checks = append(checks, p.HealthCheck(ctx))
	}
	return checks
}
