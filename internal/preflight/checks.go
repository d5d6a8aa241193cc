package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"capstan/internal/config"
	"capstan/internal/queue"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies that the filesystem holding path has at least
// minMB megabytes available. A zero or negative minimum disables the check.
func CheckFreeSpace(name, path string, minMB int) Result {
	if minMB <= 0 {
		return Result{Name: name, Passed: true, Detail: "no minimum configured"}
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	freeMB := uint64(stat.Bavail) * uint64(stat.Bsize) / (1 << 20)
	if freeMB < uint64(minMB) {
		return Result{Name: name, Detail: fmt.Sprintf("%d MB free on %s, need %d MB", freeMB, path, minMB)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d MB free on %s", freeMB, path)}
}

// CheckQueueDatabase opens the queue store and runs its schema and
// integrity diagnostics. Opening creates the database when it does not
// exist yet, so a fresh install passes this check.
func CheckQueueDatabase(ctx context.Context, cfg *config.Config) Result {
	const name = "Queue database"
	if cfg == nil {
		return Result{Name: name, Detail: "missing config"}
	}

	store, err := queue.Open(cfg)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: open: %v)", cfg.QueueDatabasePath(), err)}
	}
	defer store.Close()

	health, err := store.CheckHealth(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", health.DBPath, err)}
	}
	if len(health.MissingColumns) > 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: missing columns: %s)", health.DBPath, strings.Join(health.MissingColumns, ", "))}
	}
	if !health.IntegrityCheck {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: integrity check failed)", health.DBPath)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d items)", health.DBPath, health.TotalItems)}
}
