package testsupport

import (
	"path/filepath"
	"testing"

	"capstan/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields to values that keep tests fast and applies any
// provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Pool.Workers = 2
	cfg.Pool.DequeueTimeoutMS = 100
	cfg.Runner.PollInterval = 1
	cfg.Runner.ErrorRetryInterval = 1
	cfg.Sleep.DelayMS = 5

	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithWorkers overrides the pool worker count on the test config.
func WithWorkers(count int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Pool.Workers = count
	}
}

// WithBatchSize overrides the runner batch size on the test config.
func WithBatchSize(size int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Runner.BatchSize = size
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
