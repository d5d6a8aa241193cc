// Package daemon coordinates the long-running capstan process.
//
// It wires configuration, queue storage, and the batch runner into a single
// lifecycle with flock-based locking to prevent multiple instances per data
// directory. The daemon also exposes the queue maintenance operations the IPC
// layer serves.
//
// Keep orchestration logic here: batch processing lives in the runner and this
// package focuses on startup, shutdown, and high level coordination.
package daemon
