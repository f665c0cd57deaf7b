package bucket

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hupe1980/bucketgo/index"
	"github.com/hupe1980/bucketgo/model"
	"github.com/hupe1980/bucketgo/storage"
)

// Options configure a LocalBucket.
type Options struct {
	// Capacity is the hard occupation ceiling. Required, > 0.
	Capacity int64

	// SoftCapacity is the advisory ceiling; defaults to Capacity.
	SoftCapacity int64

	// LowOccupation is the occupation floor. Default 0.
	LowOccupation int64

	// OccupationAsBytes selects byte-based accounting; when false,
	// occupation measures the object count.
	OccupationAsBytes bool

	// Storage is the substrate for the bucket's index; defaults to a fresh
	// in-memory storage.
	Storage storage.Storage

	// Logger receives structured bucket events. Defaults to a discarding
	// logger.
	Logger *slog.Logger

	// Metrics receives bucket events. Defaults to NoopMetricsObserver.
	Metrics MetricsObserver
}

// LocalBucket stores objects in an ID-ordered index over a storage and
// enforces the occupation invariants. It carries a filter chain; a bucket
// with no registered filters behaves as a plain unfiltered bucket.
type LocalBucket struct {
	mu      sync.RWMutex
	id      ID
	owner   *Dispatcher
	opts    Options
	idx     *index.Ordered[model.ObjectID]
	occ     int64
	count   int
	closed  bool
	filters filterChain
	logger  *slog.Logger
	metrics MetricsObserver
}

var _ Bucket = (*LocalBucket)(nil)

// NewLocal creates a standalone bucket with the sentinel UnassignedID.
// Buckets created directly must be adopted by a dispatcher before they get a
// real ID.
func NewLocal(optFns ...func(o *Options)) (*LocalBucket, error) {
	opts := Options{
		Metrics: NoopMetricsObserver{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Capacity <= 0 {
		return nil, fmt.Errorf("bucket: capacity must be positive, got %d", opts.Capacity)
	}
	if opts.SoftCapacity == 0 {
		opts.SoftCapacity = opts.Capacity
	}
	if opts.SoftCapacity > opts.Capacity {
		return nil, fmt.Errorf("bucket: soft capacity %d exceeds capacity %d", opts.SoftCapacity, opts.Capacity)
	}
	if opts.LowOccupation < 0 || opts.LowOccupation > opts.Capacity {
		return nil, fmt.Errorf("bucket: low occupation %d out of range", opts.LowOccupation)
	}
	if opts.Storage == nil {
		opts.Storage = storage.NewMemoryStorage()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Metrics == nil {
		opts.Metrics = NoopMetricsObserver{}
	}

	return &LocalBucket{
		opts:    opts,
		idx:     index.NewOrdered(opts.Storage, index.ByID()),
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}, nil
}

// ID implements Bucket.
func (b *LocalBucket) ID() ID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.id
}

// Capacity implements Bucket.
func (b *LocalBucket) Capacity() int64 { return b.opts.Capacity }

// SoftCapacity implements Bucket.
func (b *LocalBucket) SoftCapacity() int64 { return b.opts.SoftCapacity }

// LowOccupation implements Bucket.
func (b *LocalBucket) LowOccupation() int64 { return b.opts.LowOccupation }

// OccupationAsBytes implements Bucket.
func (b *LocalBucket) OccupationAsBytes() bool { return b.opts.OccupationAsBytes }

// Occupation implements Bucket.
func (b *LocalBucket) Occupation() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.occ
}

// Count implements Bucket.
func (b *LocalBucket) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// SoftCapacityExceeded implements Bucket.
func (b *LocalBucket) SoftCapacityExceeded() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.occ > b.opts.SoftCapacity
}

// objectSize returns the occupation contribution of obj.
func (b *LocalBucket) objectSize(obj model.Object) int64 {
	if b.opts.OccupationAsBytes {
		return int64(obj.Size())
	}
	return 1
}

// AddObject implements Bucket.
func (b *LocalBucket) AddObject(obj model.Object) error {
	start := time.Now()
	_, err := b.addObject(obj)
	b.metrics.OnAdd(b.ID(), time.Since(start), err)
	return err
}

// addObject reports, alongside the error, whether occupation exceeded the
// soft capacity at commit time. The flag is computed under the bucket lock
// so concurrent mutations cannot skew the reported insert code.
func (b *LocalBucket) addObject(obj model.Object) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false, ErrClosed
	}

	size := b.objectSize(obj)
	if b.occ+size > b.opts.Capacity {
		return false, &ErrCapacityFull{Capacity: b.opts.Capacity, Occupation: b.occ, Size: size}
	}

	if err := b.filters.fireBeforeAdd(obj, b); err != nil {
		return false, err
	}

	if _, err := b.idx.Add(obj); err != nil {
		return false, storageFailure("add", err)
	}

	b.occ += size
	b.count++

	b.filters.fireAfterAdd(obj, b)

	soft := b.occ > b.opts.SoftCapacity
	if soft {
		b.logger.Warn("soft capacity exceeded",
			"bucket", b.id,
			"occupation", b.occ,
			"soft_capacity", b.opts.SoftCapacity,
		)
	}
	b.logger.Debug("object added", "bucket", b.id, "object", obj.ID(), "occupation", b.occ)

	return soft, nil
}

// AddObjectErrCode implements Bucket.
func (b *LocalBucket) AddObjectErrCode(obj model.Object) model.ErrorCode {
	start := time.Now()
	soft, err := b.addObject(obj)
	b.metrics.OnAdd(b.ID(), time.Since(start), err)
	switch {
	case err == nil:
		if soft {
			return model.ErrorCodeSoftCapacity
		}
		return model.ErrorCodeInserted
	case errors.Is(err, ErrDuplicate):
		return model.ErrorCodeDuplicate
	default:
		var cf *ErrCapacityFull
		var fr *ErrFilterReject
		switch {
		case errors.As(err, &cf):
			return model.ErrorCodeHardCapacity
		case errors.As(err, &fr):
			return model.ErrorCodeRefused
		default:
			return model.ErrorCodeUnknown
		}
	}
}

// BulkAddError reports a partially successful AddObjects.
type BulkAddError struct {
	Inserted int
	Failed   []storage.FailedObject
}

func (e *BulkAddError) Error() string {
	return fmt.Sprintf("bucket: bulk add: %d inserted, %d failed (first: %v)",
		e.Inserted, len(e.Failed), e.Failed[0].Err)
}

// AddObjects implements Bucket. Individual failures are deferred and
// collected so the batch partially succeeds; the returned *BulkAddError
// lists the failed objects with their causes.
func (b *LocalBucket) AddObjects(objects []model.Object) error {
	inserted := 0
	var failed []storage.FailedObject
	for _, obj := range objects {
		if err := b.AddObject(obj); err != nil {
			failed = append(failed, storage.FailedObject{Object: obj, Err: err})
			continue
		}
		inserted++
	}
	if len(failed) > 0 {
		return &BulkAddError{Inserted: inserted, Failed: failed}
	}
	return nil
}

// DeleteObject implements Bucket.
func (b *LocalBucket) DeleteObject(id model.ObjectID) (model.Object, error) {
	start := time.Now()
	obj, err := b.deleteObject(id)
	b.metrics.OnDelete(b.ID(), time.Since(start), err)
	return obj, err
}

func (b *LocalBucket) deleteObject(id model.ObjectID) (model.Object, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	it := b.idx.Search(id)
	if !it.Next() {
		if err := it.Err(); err != nil {
			return nil, storageFailure("delete", err)
		}
		return nil, ErrNotFound
	}

	return b.removeCurrent(it)
}

// removeCurrent deletes the iterator's current object through the full
// floor-check + filter + occupation path. Caller holds b.mu.
func (b *LocalBucket) removeCurrent(it *index.Iterator[model.ObjectID]) (model.Object, error) {
	obj := it.Object()
	size := b.objectSize(obj)

	if b.occ-size < b.opts.LowOccupation {
		return nil, &ErrOccupationLow{LowOccupation: b.opts.LowOccupation, Occupation: b.occ, Size: size}
	}

	if err := b.filters.fireBeforeRemove(obj, b); err != nil {
		return nil, err
	}

	removed, err := it.Remove()
	if err != nil {
		return nil, storageFailure("delete", err)
	}

	b.occ -= size
	b.count--

	b.filters.fireAfterRemove(removed, b)

	b.logger.Debug("object deleted", "bucket", b.id, "object", removed.ID(), "occupation", b.occ)

	return removed, nil
}

// DeleteMatching implements Bucket.
func (b *LocalBucket) DeleteMatching(match model.Object, limit int) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}

	deleted := 0
	it := b.idx.All()
	for it.Next() {
		if !match.DataEquals(it.Object()) {
			continue
		}
		if _, err := b.removeCurrent(it); err != nil {
			// The first floor breach (or any other failure) stops the
			// loop; deleted reports how many succeeded.
			return deleted, err
		}
		deleted++
		if limit > 0 && deleted >= limit {
			break
		}
	}
	if err := it.Err(); err != nil {
		return deleted, storageFailure("delete", err)
	}

	return deleted, nil
}

// GetObject implements Bucket.
func (b *LocalBucket) GetObject(id model.ObjectID) (model.Object, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, ErrClosed
	}

	it := b.idx.Search(id)
	if !it.Next() {
		if err := it.Err(); err != nil {
			return nil, storageFailure("get", err)
		}
		return nil, ErrNotFound
	}

	return it.Object(), nil
}

// GetObjectByLocator implements Bucket. The primary index is ID-ordered, so
// locator lookup is a linear scan.
func (b *LocalBucket) GetObjectByLocator(locator string) (model.Object, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, ErrClosed
	}

	it := b.idx.All()
	for it.Next() {
		if it.Object().Locator() == locator {
			return it.Object(), nil
		}
	}
	if err := it.Err(); err != nil {
		return nil, storageFailure("get", err)
	}

	return nil, ErrNotFound
}

// AllObjects implements Bucket.
func (b *LocalBucket) AllObjects() *ObjectIterator {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return &ObjectIterator{bucket: b, it: b.idx.All()}
}

// ProcessQuery implements Bucket. The default evaluation is a linear scan
// over a snapshot of the bucket's objects.
func (b *LocalBucket) ProcessQuery(q model.QueryOperation) (int, error) {
	start := time.Now()

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return 0, ErrClosed
	}
	it := b.idx.All()
	b.mu.RUnlock()

	n := q.Evaluate(it.Objects())
	err := it.Err()
	if err != nil {
		err = storageFailure("query", err)
	}

	b.metrics.OnQuery(b.ID(), n, time.Since(start), err)

	return n, err
}

// RegisterFilter implements Bucket.
func (b *LocalBucket) RegisterFilter(f Filter) { b.filters.register(f) }

// DeregisterFilter implements Bucket.
func (b *LocalBucket) DeregisterFilter(f Filter) { b.filters.deregister(f) }

// Close implements Bucket.
func (b *LocalBucket) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	return b.opts.Storage.Close()
}

// Destroy implements Bucket.
func (b *LocalBucket) Destroy() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.occ = 0
	b.count = 0

	return b.opts.Storage.Destroy()
}

// setOwner rebinds the bucket's dispatcher and ID. Caller is the dispatcher.
func (b *LocalBucket) setOwner(owner *Dispatcher, id ID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.owner = owner
	b.id = id
}

// claimOwner binds the bucket to owner only if it is still standalone.
// It reports whether the claim took effect; a bucket already bound to
// owner is left untouched, any other binding fails with ErrAlreadyHomed.
func (b *LocalBucket) claimOwner(owner *Dispatcher, id ID) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.owner {
	case nil:
		b.owner = owner
		b.id = id
		return true, nil
	case owner:
		return false, nil
	default:
		return false, ErrAlreadyHomed
	}
}

// getOwner returns the owning dispatcher, or nil.
func (b *LocalBucket) getOwner() *Dispatcher {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.owner
}

func storageFailure(op string, err error) error {
	if _, ok := err.(*storage.Error); ok {
		return err
	}
	return storage.NewError(op, err)
}
