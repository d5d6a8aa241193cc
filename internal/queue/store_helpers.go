package queue

import (
	"database/sql"
	"errors"
	"time"
)

const itemColumns = "id, kind, payload, status, batch_id, worker_id, attempts, error_message, result_json, created_at, updated_at, started_at, finished_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id          int64
		kind        string
		payload     sql.NullString
		statusStr   string
		batchID     sql.NullString
		workerID    sql.NullInt64
		attempts    sql.NullInt64
		errMessage  sql.NullString
		resultJSON  sql.NullString
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
		startedRaw  sql.NullString
		finishedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&kind,
		&payload,
		&statusStr,
		&batchID,
		&workerID,
		&attempts,
		&errMessage,
		&resultJSON,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:           id,
		Kind:         kind,
		Payload:      payload.String,
		Status:       Status(statusStr),
		BatchID:      batchID.String,
		WorkerID:     UnassignedWorker,
		Attempts:     int(attempts.Int64),
		ErrorMessage: errMessage.String,
		ResultJSON:   resultJSON.String,
	}
	if workerID.Valid {
		item.WorkerID = int(workerID.Int64)
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			item.StartedAt = &started
		}
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			item.FinishedAt = &finished
		}
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	v := value.UTC().Format(time.RFC3339Nano)
	return v
}

func nullableWorker(value int) any {
	if value == UnassignedWorker {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
