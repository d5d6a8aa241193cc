// Package pool implements a bounded worker pool draining a joinable FIFO
// queue.
//
// A Pool runs a fixed number of workers against a per-batch queue. Workers
// pull items until the queue stays empty for the dequeue timeout, then exit on
// their own; the pool joins the queue, cancels any remaining workers, and
// collects one Result per input item. Item failures and panics are isolated:
// they produce failed results instead of aborting the batch, and every
// dequeued item is acknowledged so the join cannot hang.
//
// The Queue type is exported separately for callers that need joinable
// producer/consumer coordination without the batch wrapper.
package pool
