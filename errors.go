package bucketgo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/bucketgo/bucket"
	"github.com/hupe1980/bucketgo/navigation"
	"github.com/hupe1980/bucketgo/storage"
)

var (
	// ErrNotFound is returned when an object is not found.
	ErrNotFound = errors.New("not found")

	// ErrClosed is returned when an operation reaches a closed bucket,
	// storage or queue.
	ErrClosed = errors.New("closed")

	// ErrInvalidBucketCount is returned when a parallel scan is created
	// with a non-positive bucket count.
	ErrInvalidBucketCount = errors.New("bucket count must be positive")
)

// translateError unifies lower-layer errors into the facade contract.
//
// Typed errors (*bucket.ErrCapacityFull, *bucket.ErrFilterReject,
// *bucket.ErrOccupationLow, *bucket.ErrSplitInterrupted, *storage.Error)
// pass through unchanged; callers match them with errors.As.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Not found unification.
	if errors.Is(err, bucket.ErrNotFound) || errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	// Closed unification.
	if errors.Is(err, bucket.ErrClosed) || errors.Is(err, storage.ErrClosed) || errors.Is(err, navigation.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}

	return err
}
