// Package work defines the processor contract consumed by the batch runner
// plus the shared helpers that keep failure handling and tracing uniform
// across processors.
//
// Key responsibilities:
//   - The Processor interface and the Registry that resolves implementations
//     by work item kind.
//   - Context helpers that stamp queue item IDs, batch IDs, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that tag failures for
//     consistent classification in logs and status output.
//
// Use these helpers when wiring new processors so operational behaviour
// (error handling, observability) stays uniform across kinds.
package work
