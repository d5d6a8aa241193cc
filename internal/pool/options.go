package pool

import (
	"log/slog"
	"time"
)

const defaultDequeueTimeout = time.Second

type settings struct {
	dequeueTimeout time.Duration
	logger         *slog.Logger
}

// Option adjusts pool construction.
type Option func(*settings)

// WithDequeueTimeout sets how long an idle worker waits for the next item
// before exiting. Values <= 0 fall back to the one second default.
func WithDequeueTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.dequeueTimeout = d
		}
	}
}

// WithLogger sets the logger used for worker lifecycle and failure logs.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		dequeueTimeout: defaultDequeueTimeout,
		logger:         slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
