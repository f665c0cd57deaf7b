package bucket

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a lookup or delete target is absent.
	ErrNotFound = errors.New("bucket: object not found")

	// ErrClosed is returned by operations on a closed or destroyed bucket.
	ErrClosed = errors.New("bucket: closed")

	// ErrDispatcherFull is returned when a dispatcher already holds its
	// maximum number of buckets.
	ErrDispatcherFull = errors.New("bucket: dispatcher capacity reached")

	// ErrUnknownBucket is returned when a dispatcher does not know the
	// given bucket ID.
	ErrUnknownBucket = errors.New("bucket: unknown bucket id")

	// ErrAlreadyHomed is returned when a bucket that belongs to one
	// dispatcher is added to a different one.
	ErrAlreadyHomed = errors.New("bucket: already owned by another dispatcher")

	// ErrDuplicate is the veto cause used by deduplicating filters when a
	// data-equal object is already stored.
	ErrDuplicate = errors.New("bucket: duplicate object")
)

// ErrCapacityFull indicates that an insert would exceed the hard capacity.
// The bucket is left unchanged.
type ErrCapacityFull struct {
	Capacity   int64
	Occupation int64
	Size       int64
}

func (e *ErrCapacityFull) Error() string {
	return fmt.Sprintf("bucket: capacity full: occupation %d + %d exceeds %d",
		e.Occupation, e.Size, e.Capacity)
}

// ErrOccupationLow indicates that a delete would breach the low-occupation
// floor. The bucket is left unchanged.
type ErrOccupationLow struct {
	LowOccupation int64
	Occupation    int64
	Size          int64
}

func (e *ErrOccupationLow) Error() string {
	return fmt.Sprintf("bucket: occupation low: occupation %d - %d breaches floor %d",
		e.Occupation, e.Size, e.LowOccupation)
}

// ErrFilterReject indicates that a before-hook vetoed the mutation. The
// bucket is left unchanged. The filter's reason is preserved; the vetoing
// filter's original error (if any) is available via errors.Unwrap.
type ErrFilterReject struct {
	Reason string
	cause  error
}

func (e *ErrFilterReject) Error() string {
	return fmt.Sprintf("bucket: rejected by filter: %s", e.Reason)
}

func (e *ErrFilterReject) Unwrap() error { return e.cause }

// NewFilterReject builds a reject error carrying the given reason.
func NewFilterReject(reason string) *ErrFilterReject {
	return &ErrFilterReject{Reason: reason}
}

// ErrSplitInterrupted indicates that a split aborted midway. The source
// bucket is consistent but partially split; callers must not continue the
// split without reinitializing it.
type ErrSplitInterrupted struct {
	Moved int
	cause error
}

func (e *ErrSplitInterrupted) Error() string {
	return fmt.Sprintf("bucket: split interrupted after moving %d objects: %v (do not reuse without reinitializing)",
		e.Moved, e.cause)
}

func (e *ErrSplitInterrupted) Unwrap() error { return e.cause }
