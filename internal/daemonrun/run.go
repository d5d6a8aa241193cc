// Package daemonrun assembles and runs the capstan daemon process: it
// wires the logger, queue store, processor registry, runner, daemon, and
// IPC server together and blocks until a shutdown signal arrives.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"capstan/internal/config"
	"capstan/internal/daemon"
	"capstan/internal/ipc"
	"capstan/internal/logging"
	"capstan/internal/preflight"
	"capstan/internal/processors"
	"capstan/internal/queue"
	"capstan/internal/runner"
	"capstan/internal/work"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	SocketPath  string
	Development bool
}

// Run starts the capstan daemon runtime loop.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("capstan-%s.log", runID))

	logger, err := buildLogger(cfg, opts, logPath)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logPreflightSnapshot(signalCtx, logger, cfg)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update capstan.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "capstan-*.log", Exclude: []string{logPath}},
	)
	pidPath := cfg.PIDFilePath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	// Items left in processing by a crashed run go back to pending before
	// the runner claims its first batch.
	if reset, err := store.ResetStuckProcessing(signalCtx); err != nil {
		logger.Warn("failed to reset stuck processing items", logging.Error(err))
	} else if reset > 0 {
		logger.Info("reset stuck processing items",
			logging.String(logging.FieldEventType, "stuck_items_reset"),
			logging.Int64("count", reset),
		)
	}

	registry := work.NewRegistry()
	if err := registerProcessors(registry, cfg, logger); err != nil {
		return fmt.Errorf("register processors: %w", err)
	}

	d, err := daemon.New(cfg, store, logger, runner.New(cfg, store, registry, logger))
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	socketPath := strings.TrimSpace(opts.SocketPath)
	if socketPath == "" {
		socketPath = cfg.SocketPath()
	}
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and queue database access"),
			logging.String(logging.FieldImpact, "daemon may not process queue items"),
		)
	}

	<-signalCtx.Done()
	logger.Info("capstan daemon shutting down")
	return nil
}

// buildLogger constructs the daemon logger. Console output keeps the
// configured format while the per-run log file always receives JSON, so
// the two are paired through a tee when the formats differ.
func buildLogger(cfg *config.Config, opts Options, logPath string) (*slog.Logger, error) {
	level := strings.TrimSpace(opts.LogLevel)
	if level == "" {
		level = cfg.Logging.Level
	}

	if strings.EqualFold(strings.TrimSpace(cfg.Logging.Format), "json") {
		return logging.New(logging.Options{
			Level:            level,
			Format:           "json",
			OutputPaths:      []string{"stdout", logPath},
			ErrorOutputPaths: []string{"stderr", logPath},
			Development:      opts.Development,
		})
	}

	console, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		Development:      opts.Development,
	})
	if err != nil {
		return nil, err
	}
	fileLogger, err := logging.New(logging.Options{
		Level:            level,
		Format:           "json",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return nil, err
	}
	return logging.TeeLogger(console, fileLogger.Handler()), nil
}

func registerProcessors(registry *work.Registry, cfg *config.Config, logger *slog.Logger) error {
	for _, proc := range []work.Processor{
		processors.NewSleep(cfg, logger),
		processors.NewFetch(cfg, logger),
	} {
		if err := registry.Register(proc); err != nil {
			return err
		}
	}
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "capstan.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logPreflightSnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	attrs := []any{
		logging.String(logging.FieldEventType, "preflight_snapshot"),
		logging.String("queue_db", cfg.QueueDatabasePath()),
		logging.Int("workers", cfg.Pool.Workers),
		logging.Int("batch_size", cfg.Runner.BatchSize),
	}
	for _, result := range preflight.RunAll(ctx, cfg) {
		key := strings.ToLower(strings.ReplaceAll(result.Name, " ", "_"))
		attrs = append(attrs, logging.Bool(key+"_ok", result.Passed))
		if !result.Passed {
			attrs = append(attrs, logging.String(key+"_detail", result.Detail))
		}
	}
	logger.Info("preflight snapshot", attrs...)
}
