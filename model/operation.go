package model

import "iter"

// Operation is the unit of work dispatched by algorithms and navigation
// processors.
//
// Implementations carry mutable answer state. When a processor is configured
// to clone the operation per step, each step receives its own clone and the
// partial answer is merged back via UpdateFrom; otherwise the caller must
// serialize access to the shared operation externally.
type Operation interface {
	// Clone returns a copy deep enough that concurrent mutation of the
	// clone's answer state cannot race with the original.
	Clone() Operation

	// UpdateFrom merges the partial answer of a processed clone back into
	// this operation. It is only invoked with clones of this operation.
	UpdateFrom(partial Operation) error

	// EndOperation marks the operation finished with the given status.
	// A nil error means success.
	EndOperation(err error)

	// Finished reports whether EndOperation has been called.
	Finished() bool

	// Err returns the status recorded by EndOperation, or nil.
	Err() error
}

// QueryOperation is an operation that evaluates itself against a sequence of
// stored objects, adding matches to its private answer.
type QueryOperation interface {
	Operation

	// Evaluate consumes the objects and returns the number of objects added
	// to the answer.
	Evaluate(objects iter.Seq[Object]) int
}
