// Package queue persists work items in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema initialization, batch
// claiming, stats queries, stuck-item recovery, and the status transitions
// the runner records while pool workers drain a batch. Work items capture
// payloads, processor results, worker attribution, and failure detail so the
// CLI can report on a run without additional state.
//
// The database is treated as transient storage for in-flight jobs rather than
// a long-term archive. Schema changes bump the version in schema.go; users
// clear the database to adopt the new schema.
//
// Treat this package as the single source of truth for queue semantics; when
// you add new statuses or item fields, update schema.sql and bump
// schemaVersion.
package queue
