// Package preflight provides readiness checks for the filesystem paths
// and the queue database that Capstan depends on.
//
// These checks run in two contexts:
//   - The daemon logs a snapshot of them at startup so a misconfigured
//     environment is visible before the first batch is claimed.
//   - The CLI "capstan status" command renders them so an operator can
//     see at a glance why the daemon may be refusing work.
//
// Each check returns a Result rather than an error so callers can render
// the full set even when some fail.
package preflight
