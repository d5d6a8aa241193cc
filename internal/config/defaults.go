package config

const (
	defaultDataDir            = "~/.local/share/capstan"
	defaultLogDir             = "~/.local/share/capstan/logs"
	defaultMinFreeMB          = 128
	defaultPoolWorkers        = 3
	defaultDequeueTimeoutMS   = 1000
	defaultPollInterval       = 5
	defaultErrorRetryInterval = 10
	defaultBatchSize          = 16
	defaultSleepDelayMS       = 200
	defaultFetchTimeout       = 10
	defaultFetchMaxConcurrent = 4
	defaultFetchUserAgent     = "capstan/dev"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogRetentionDays   = 60
)

// Default returns a Config populated with repository defaults.
func Default() *Config {
	return &Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			MinFreeMB: defaultMinFreeMB,
		},
		Pool: Pool{
			Workers:          defaultPoolWorkers,
			DequeueTimeoutMS: defaultDequeueTimeoutMS,
		},
		Runner: Runner{
			PollInterval:       defaultPollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			BatchSize:          defaultBatchSize,
		},
		Sleep: Sleep{
			DelayMS: defaultSleepDelayMS,
		},
		Fetch: Fetch{
			Timeout:       defaultFetchTimeout,
			MaxConcurrent: defaultFetchMaxConcurrent,
			UserAgent:     defaultFetchUserAgent,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
