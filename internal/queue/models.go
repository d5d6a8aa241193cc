package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a work item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusFailed     Status = "failed"
)

// UnassignedWorker marks items that no pool worker has picked up yet.
const UnassignedWorker = -1

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusProcessed,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}

// HealthSummary describes aggregated queue counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Processed  int
	Failed     int
}

// Item represents a work item persisted in SQLite.
type Item struct {
	ID           int64
	Kind         string
	Payload      string
	Status       Status
	BatchID      string
	WorkerID     int
	Attempts     int
	ErrorMessage string
	ResultJSON   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	StartedAt    *time.Time
	FinishedAt   *time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when a pool worker currently owns the item.
func (i Item) IsProcessing() bool {
	return i.Status == StatusProcessing
}

// IsTerminal reports whether the item reached a final state.
func (i Item) IsTerminal() bool {
	return i.Status == StatusProcessed || i.Status == StatusFailed
}

// Duration returns the wall-clock processing time when both claim and finish
// timestamps are present.
func (i Item) Duration() (time.Duration, bool) {
	if i.StartedAt == nil || i.FinishedAt == nil {
		return 0, false
	}
	return i.FinishedAt.Sub(*i.StartedAt), true
}

// MarkProcessed records a successful run by the given pool worker.
func (i *Item) MarkProcessed(workerID int) {
	now := time.Now().UTC()
	i.Status = StatusProcessed
	i.WorkerID = workerID
	i.ErrorMessage = ""
	i.FinishedAt = &now
}

// MarkFailed records a failed run with the given error message.
func (i *Item) MarkFailed(workerID int, message string) {
	now := time.Now().UTC()
	i.Status = StatusFailed
	i.WorkerID = workerID
	i.ErrorMessage = message
	i.FinishedAt = &now
}
