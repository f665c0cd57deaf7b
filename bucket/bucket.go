package bucket

import (
	"github.com/hupe1980/bucketgo/model"
)

// ID identifies a bucket within its dispatcher.
type ID uint32

// UnassignedID is carried by buckets that do not belong to any dispatcher.
const UnassignedID ID = 0

// Bucket is the capacity-bounded collection of stored objects.
//
// Implementations must be safe for concurrent use; every mutating operation
// is atomic with respect to occupation accounting and filter execution.
type Bucket interface {
	// ID returns the dispatcher-assigned bucket ID, or UnassignedID.
	ID() ID

	// Capacity returns the hard occupation ceiling.
	Capacity() int64

	// SoftCapacity returns the advisory occupation ceiling.
	SoftCapacity() int64

	// LowOccupation returns the occupation floor.
	LowOccupation() int64

	// Occupation returns the current occupation, in bytes or object count
	// per OccupationAsBytes.
	Occupation() int64

	// Count returns the number of stored objects.
	Count() int

	// OccupationAsBytes reports whether occupation is measured in bytes
	// rather than object count.
	OccupationAsBytes() bool

	// SoftCapacityExceeded reports whether occupation currently exceeds the
	// soft capacity.
	SoftCapacityExceeded() bool

	// AddObject inserts the object. It fails with *ErrCapacityFull when the
	// hard ceiling would be exceeded and with *ErrFilterReject when a
	// before-hook vetoes; in both cases the bucket is unchanged.
	AddObject(obj model.Object) error

	// AddObjectErrCode is the non-throwing insert form.
	AddObjectErrCode(obj model.Object) model.ErrorCode

	// AddObjects inserts every object, collecting per-object failures. On
	// partial failure the returned error is a *BulkAddError.
	AddObjects(objects []model.Object) error

	// DeleteObject removes and returns the object with the given ID. It
	// fails with ErrNotFound or, when the floor would be breached, with
	// *ErrOccupationLow.
	DeleteObject(id model.ObjectID) (model.Object, error)

	// DeleteMatching removes up to limit objects that are data-equal to
	// match (limit 0 = unlimited). It returns the number removed and
	// short-circuits on the first occupation-floor breach.
	DeleteMatching(match model.Object, limit int) (int, error)

	// GetObject returns the object with the given ID, or ErrNotFound.
	GetObject(id model.ObjectID) (model.Object, error)

	// GetObjectByLocator returns the first object with the given locator,
	// or ErrNotFound.
	GetObjectByLocator(locator string) (model.Object, error)

	// AllObjects returns a lazy iterator over all stored objects.
	// Removal through the iterator goes through the same filter and
	// occupation path as DeleteObject.
	AllObjects() *ObjectIterator

	// ProcessQuery evaluates the query against all stored objects and
	// returns the number of objects added to its answer. Concrete buckets
	// may override the linear scan with an indexed fast path.
	ProcessQuery(q model.QueryOperation) (int, error)

	// Split redistributes objects according to policy. See LocalBucket.Split.
	Split(policy SplitPolicy, targets []Bucket, factory Factory, stayPartition int) (int, error)

	// RegisterFilter adds a filter to the bucket's hook chain.
	RegisterFilter(f Filter)

	// DeregisterFilter removes a previously registered filter.
	DeregisterFilter(f Filter)

	// Close releases transient resources, keeping persisted storage data.
	Close() error

	// Destroy releases everything including persisted storage data.
	Destroy() error
}

// Factory creates a bucket for a split partition.
type Factory func(partition int) (Bucket, error)

// SplitPolicy partitions stored objects into numbered groups.
type SplitPolicy interface {
	// Match returns the partition of the object, in [0, Partitions()).
	Match(obj model.Object) (int, error)

	// Partitions returns the number of partitions.
	Partitions() int
}
