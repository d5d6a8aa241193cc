package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePool(); err != nil {
		return err
	}
	if err := c.validateRunner(); err != nil {
		return err
	}
	if err := c.validateSleep(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePool() error {
	if c.Pool.Workers < 1 {
		return errors.New("pool.workers must be at least 1")
	}
	if c.Pool.DequeueTimeoutMS <= 0 {
		return errors.New("pool.dequeue_timeout_ms must be positive")
	}
	return nil
}

func (c *Config) validateRunner() error {
	return ensurePositiveMap(map[string]int{
		"runner.poll_interval":        c.Runner.PollInterval,
		"runner.error_retry_interval": c.Runner.ErrorRetryInterval,
		"runner.batch_size":           c.Runner.BatchSize,
	})
}

func (c *Config) validateSleep() error {
	if c.Sleep.DelayMS < 0 {
		return errors.New("sleep.delay_ms must be >= 0")
	}
	return nil
}

func (c *Config) validateFetch() error {
	if err := ensurePositiveMap(map[string]int{
		"fetch.timeout":        c.Fetch.Timeout,
		"fetch.max_concurrent": c.Fetch.MaxConcurrent,
	}); err != nil {
		return err
	}
	if c.Fetch.UserAgent == "" {
		return errors.New("fetch.user_agent must be set")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
