// Package runner drains the persistent work queue through the bounded
// worker pool.
//
// The Runner claims batches of pending items, resolves a processor for each
// item by kind, dispatches the batch to the pool with the configured worker
// count, and persists every tagged outcome back to the store. Items claimed
// but left unfinished by a shutdown are released to pending so the next run
// picks them up. It also aggregates queue stats and processor health for
// status reporting.
package runner
