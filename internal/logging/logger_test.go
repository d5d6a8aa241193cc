package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"capstan/internal/config"
)

func TestNewConsoleFormat(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "out.log")
	logger, err := New(Options{
		Level:       "info",
		Format:      "console",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("queue drained",
		String(FieldComponent, "runner"),
		Int("processed", 7),
		String("batch", "demo batch"),
	)

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := strings.TrimSpace(string(data))
	if !strings.Contains(line, " INFO runner: queue drained") {
		t.Fatalf("unexpected line shape: %q", line)
	}
	if !strings.Contains(line, "processed=7") {
		t.Fatalf("missing int attr: %q", line)
	}
	if !strings.Contains(line, `batch="demo batch"`) {
		t.Fatalf("expected quoted value with spaces: %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("info level should omit source info: %q", line)
	}
}

func TestNewConsoleDebugAddsSource(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "out.log")
	logger, err := New(Options{Level: "debug", Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Debug("claim attempt")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), ".go:") {
		t.Fatalf("debug level should include source info: %q", string(data))
	}
}

func TestNewJSONFormat(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "out.log")
	logger, err := New(Options{Level: "info", Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Warn("slow batch", Duration("elapsed", 1500*time.Millisecond))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &payload); err != nil {
		t.Fatalf("unmarshal json log: %v", err)
	}
	if payload["msg"] != "slow batch" {
		t.Fatalf("msg = %v", payload["msg"])
	}
	if payload["level"] != "warn" {
		t.Fatalf("level = %v", payload["level"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatal("expected ts key")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Format = "console"

	logger, err := NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	logger.Info("daemon ready", String(FieldComponent, "daemon"))

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "capstan.log"))
	if err != nil {
		t.Fatalf("read capstan.log: %v", err)
	}
	if !strings.Contains(string(data), "daemon: daemon ready") {
		t.Fatalf("unexpected file content: %q", string(data))
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"fatal", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.input); got != tc.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestFormatValueQuoting(t *testing.T) {
	if got := formatValue(slog.StringValue("plain")); got != "plain" {
		t.Errorf("plain value quoted: %q", got)
	}
	if got := formatValue(slog.StringValue("has space")); got != `"has space"` {
		t.Errorf("spaced value not quoted: %q", got)
	}
	if got := formatValue(slog.StringValue("")); got != `""` {
		t.Errorf("empty value not quoted: %q", got)
	}
	if got := formatValue(slog.DurationValue(2 * time.Second)); got != "2s" {
		t.Errorf("duration = %q", got)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, levelVar, false))

	WarnWithContext(logger, "retention sweep skipped", "log_retention_failed")

	out := buf.String()
	for _, key := range []string{FieldEventType, FieldErrorHint, FieldImpact} {
		if !strings.Contains(out, key) {
			t.Errorf("missing %s in %q", key, out)
		}
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "capstan-old.log")
	keepPath := filepath.Join(dir, "capstan-current.log")
	for _, path := range []string{oldPath, keepPath} {
		if err := os.WriteFile(path, []byte("line\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	stale := time.Now().AddDate(0, 0, -90)
	if err := os.Chtimes(oldPath, stale, stale); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	CleanupOldLogs(NewNop(), 30, RetentionTarget{
		Dir:     dir,
		Pattern: "capstan-*.log",
		Exclude: []string{keepPath},
	})

	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Fatalf("stale log should be pruned, stat err = %v", err)
	}
	if _, err := os.Stat(keepPath); err != nil {
		t.Fatalf("excluded log should remain: %v", err)
	}
}
