// Package processors hosts the built-in work item processors the daemon
// registers at startup.
//
// sleep pauses for a configured (or payload-provided) delay and serves as the
// smoke-test processor for pool behaviour. fetch performs bounded-parallel
// HTTP GETs for one or more URLs and records per-URL outcomes. Both publish
// their results as JSON on the item so queue inspection tools can display
// them without extra plumbing.
package processors
