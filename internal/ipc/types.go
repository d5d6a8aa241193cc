package ipc

import (
	"time"

	"capstan/internal/queue"
	"capstan/internal/runner"
	"capstan/internal/work"
)

const dateTimeFormat = time.RFC3339

// QueueItem is the wire representation of a work item.
type QueueItem struct {
	ID           int64  `json:"id"`
	Kind         string `json:"kind"`
	Payload      string `json:"payload"`
	Status       string `json:"status"`
	BatchID      string `json:"batch_id,omitempty"`
	WorkerID     int    `json:"worker_id"`
	Attempts     int    `json:"attempts"`
	ErrorMessage string `json:"error_message,omitempty"`
	ResultJSON   string `json:"result_json,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
	StartedAt    string `json:"started_at,omitempty"`
	FinishedAt   string `json:"finished_at,omitempty"`
}

// FromItem converts a queue item to its wire representation.
func FromItem(item *queue.Item) QueueItem {
	if item == nil {
		return QueueItem{}
	}
	dto := QueueItem{
		ID:           item.ID,
		Kind:         item.Kind,
		Payload:      item.Payload,
		Status:       string(item.Status),
		BatchID:      item.BatchID,
		WorkerID:     item.WorkerID,
		Attempts:     item.Attempts,
		ErrorMessage: item.ErrorMessage,
		ResultJSON:   item.ResultJSON,
	}
	if !item.CreatedAt.IsZero() {
		dto.CreatedAt = item.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !item.UpdatedAt.IsZero() {
		dto.UpdatedAt = item.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	if item.StartedAt != nil {
		dto.StartedAt = item.StartedAt.UTC().Format(dateTimeFormat)
	}
	if item.FinishedAt != nil {
		dto.FinishedAt = item.FinishedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromItems converts queue items to wire representations.
func FromItems(items []*queue.Item) []QueueItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]QueueItem, 0, len(items))
	for _, item := range items {
		out = append(out, FromItem(item))
	}
	return out
}

// ProcessorHealth describes readiness of a registered processor.
type ProcessorHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// FromHealth converts processor health checks to wire representations.
func FromHealth(checks []work.Health) []ProcessorHealth {
	if len(checks) == 0 {
		return nil
	}
	out := make([]ProcessorHealth, 0, len(checks))
	for _, check := range checks {
		out = append(out, ProcessorHealth{
			Name:   check.Name,
			Ready:  check.Ready,
			Detail: check.Detail,
		})
	}
	return out
}

// BatchSummary describes the most recently drained batch.
type BatchSummary struct {
	BatchID    string `json:"batch_id"`
	Claimed    int    `json:"claimed"`
	Processed  int    `json:"processed"`
	Failed     int    `json:"failed"`
	Workers    int    `json:"workers"`
	StartedAt  string `json:"started_at,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// FromBatchSummary converts a runner batch summary to its wire representation.
func FromBatchSummary(summary *runner.BatchSummary) *BatchSummary {
	if summary == nil {
		return nil
	}
	dto := &BatchSummary{
		BatchID:    summary.BatchID,
		Claimed:    summary.Claimed,
		Processed:  summary.Processed,
		Failed:     summary.Failed,
		Workers:    summary.Workers,
		DurationMS: summary.Duration.Milliseconds(),
	}
	if !summary.StartedAt.IsZero() {
		dto.StartedAt = summary.StartedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// StartRequest triggers daemon runner startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops daemon processing.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon/runner status information.
type StatusResponse struct {
	Running         bool              `json:"running"`
	QueueStats      map[string]int    `json:"queue_stats"`
	LastError       string            `json:"last_error"`
	LastBatch       *BatchSummary     `json:"last_batch,omitempty"`
	LockPath        string            `json:"lock_path"`
	QueueDBPath     string            `json:"queue_db_path"`
	ProcessorHealth []ProcessorHealth `json:"processor_health"`
	PID             int               `json:"pid"`
}

// QueueAddRequest enqueues work items, one per payload.
type QueueAddRequest struct {
	Kind     string   `json:"kind"`
	Payloads []string `json:"payloads"`
}

// QueueAddResponse contains the enqueued items.
type QueueAddResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueListRequest filters queue listing by status.
type QueueListRequest struct {
	Statuses []string `json:"statuses"`
}

// QueueListResponse contains queue entries.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueClearRequest removes all items.
type QueueClearRequest struct{}

// QueueClearResponse reports number of removed entries.
type QueueClearResponse struct {
	Removed int64 `json:"removed"`
}

// QueueClearFailedRequest removes failed items.
type QueueClearFailedRequest struct{}

// QueueClearFailedResponse reports number of removed entries.
type QueueClearFailedResponse struct {
	Removed int64 `json:"removed"`
}

// QueueClearProcessedRequest removes processed items.
type QueueClearProcessedRequest struct{}

// QueueClearProcessedResponse reports number of removed entries.
type QueueClearProcessedResponse struct {
	Removed int64 `json:"removed"`
}

// QueueResetRequest resets in-flight items.
type QueueResetRequest struct{}

// QueueResetResponse reports number of items reset.
type QueueResetResponse struct {
	Updated int64 `json:"updated"`
}

// QueueRetryRequest retries failed items. Empty list means all failed items.
type QueueRetryRequest struct {
	IDs []int64 `json:"ids"`
}

// QueueRetryResponse reports number of retried items.
type QueueRetryResponse struct {
	Updated int64 `json:"updated"`
}

// QueueHealthRequest fetches aggregate diagnostics.
type QueueHealthRequest struct{}

// QueueHealthResponse reports queue health information.
type QueueHealthResponse struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Processed  int `json:"processed"`
	Failed     int `json:"failed"`
}

// DatabaseHealthRequest fetches detailed database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse reports database health information.
type DatabaseHealthResponse struct {
	DBPath           string   `json:"db_path"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	SchemaVersion    string   `json:"schema_version"`
	TableExists      bool     `json:"table_exists"`
	ColumnsPresent   []string `json:"columns_present"`
	MissingColumns   []string `json:"missing_columns"`
	IntegrityCheck   bool     `json:"integrity_check"`
	TotalItems       int      `json:"total_items"`
	Error            string   `json:"error"`
}
