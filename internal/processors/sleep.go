package processors

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"capstan/internal/config"
	"capstan/internal/logging"
	"capstan/internal/queue"
	"capstan/internal/work"
)

const sleepKind = "sleep"

// Sleep simulates work by pausing for a configured delay before recording a
// result. A payload that parses as a non-negative integer overrides the delay
// in milliseconds.
type Sleep struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewSleep constructs the sleep processor.
func NewSleep(cfg *config.Config, logger *slog.Logger) *Sleep {
	return &Sleep{cfg: cfg, logger: logging.NewComponentLogger(logger, sleepKind)}
}

func (s *Sleep) Kind() string { return sleepKind }

func (s *Sleep) Process(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, s.logger)

	delay := s.delayFor(item)
	logger.Debug("sleeping", logging.Duration("delay", delay))

	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return work.Wrap(work.ErrTransient, sleepKind, "delay", "sleep interrupted", ctx.Err())
	}

	result, err := json.Marshal(sleepResult{Payload: item.Payload, SleptMS: delay.Milliseconds()})
	if err != nil {
		return work.Wrap(work.ErrTransient, sleepKind, "encode result", "marshal result", err)
	}
	item.ResultJSON = string(result)
	return nil
}

// HealthCheck verifies the configured delay is usable.
func (s *Sleep) HealthCheck(context.Context) work.Health {
	if s.cfg == nil || s.cfg.Sleep.DelayMS < 0 {
		return work.Unhealthy(sleepKind, "delay must be zero or positive")
	}
	return work.Healthy(sleepKind)
}

func (s *Sleep) delayFor(item *queue.Item) time.Duration {
	base := time.Duration(s.cfg.Sleep.DelayMS) * time.Millisecond
	payload := strings.TrimSpace(item.Payload)
	if payload == "" {
		return base
	}
	if ms, err := strconv.Atoi(payload); err == nil && ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return base
}

type sleepResult struct {
	Payload string `json:"payload"`
	SleptMS int64  `json:"slept_ms"`
}
