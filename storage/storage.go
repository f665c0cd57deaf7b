package storage

import (
	"errors"
	"fmt"

	"github.com/hupe1980/bucketgo/model"
)

// Address locates a stored object within one Storage instance.
type Address int64

// InvalidAddress is the sentinel returned by failed stores.
const InvalidAddress Address = -1

var (
	// ErrNotFound is returned when no object lives at the given address.
	ErrNotFound = errors.New("storage: address not found")

	// ErrClosed is returned by operations on a closed or destroyed storage.
	ErrClosed = errors.New("storage: closed")
)

// Error wraps a failure of the underlying medium while reading, writing or
// removing. The causal error can be accessed via errors.Unwrap.
type Error struct {
	Op    string
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage: %s failed: %v", e.Op, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

// NewError wraps cause as a storage failure of the given operation.
func NewError(op string, cause error) *Error {
	return &Error{Op: op, cause: cause}
}

// Storage is an addressable container of objects.
//
// Implementations must be safe for concurrent use.
type Storage interface {
	// Store writes the object and returns its address.
	Store(obj model.Object) (Address, error)

	// Read returns the object at the address, or ErrNotFound.
	Read(addr Address) (model.Object, error)

	// Remove deletes the object at the address, or returns ErrNotFound.
	Remove(addr Address) error

	// Len returns the number of stored objects.
	Len() int

	// Close releases transient handles but keeps persisted data.
	Close() error

	// Destroy releases all resources including persisted data.
	Destroy() error
}

// FailedObject pairs an object that could not be stored with its cause.
type FailedObject struct {
	Object model.Object
	Err    error
}

// BulkError reports a partially successful StoreAll: Stored holds the
// addresses of the objects that made it in, Failed the rest with their
// causes.
type BulkError struct {
	Stored []Address
	Failed []FailedObject
}

func (e *BulkError) Error() string {
	return fmt.Sprintf("storage: bulk store: %d stored, %d failed (first: %v)",
		len(e.Stored), len(e.Failed), e.Failed[0].Err)
}

// StoreAll stores every object, collecting per-object failures instead of
// aborting on the first one. On full success it returns the addresses and a
// nil error; otherwise the error is a *BulkError carrying both the stored
// addresses and the failed objects, so callers can retry only the failed
// subset.
func StoreAll(s Storage, objects []model.Object) ([]Address, error) {
	stored := make([]Address, 0, len(objects))
	var failed []FailedObject
	for _, obj := range objects {
		addr, err := s.Store(obj)
		if err != nil {
			failed = append(failed, FailedObject{Object: obj, Err: err})
			continue
		}
		stored = append(stored, addr)
	}
	if len(failed) > 0 {
		return stored, &BulkError{Stored: stored, Failed: failed}
	}
	return stored, nil
}
