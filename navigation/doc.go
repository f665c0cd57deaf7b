// Package navigation drives one operation across a dynamically growing,
// closable queue of processing items, typically buckets.
//
// A Processor pairs a single operation with a FIFO queue. Steps are taken
// either inline (ProcessStep) or as deferred tasks executed on worker
// goroutines (ProcessStepAsync); in both forms the operation may be cloned
// per step so concurrent steps never share mutable answer state, and each
// clone's partial result is merged back into the original operation.
//
// A processor is finished once it is closed and its queue is drained.
// Abort force-closes the queue and discards unprocessed items.
package navigation
