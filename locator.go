package bucketgo

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/bucketgo/bucket"
	"github.com/hupe1980/bucketgo/model"
)

// LocatorStorage keys a bucket's objects by their locator, giving O(1)
// locator lookup and deletion instead of the bucket's linear
// GetObjectByLocator scan. The bucket remains the source of truth; the
// locator map is a secondary view maintained on every mutation that goes
// through this type.
type LocatorStorage struct {
	mu        sync.RWMutex
	byLocator map[string]model.ObjectID
	bucket    *bucket.LocalBucket
	logger    *Logger
	metrics   MetricsCollector
}

// NewLocatorStorage wraps the given bucket. The bucket must be empty or
// mutated exclusively through the returned LocatorStorage, otherwise the
// locator view goes stale.
func NewLocatorStorage(b *bucket.LocalBucket, optFns ...Option) *LocatorStorage {
	opts := applyOptions(optFns)

	return &LocatorStorage{
		byLocator: make(map[string]model.ObjectID),
		bucket:    b,
		logger:    opts.logger,
		metrics:   opts.metricsCollector,
	}
}

// Put stores the object and records its locator. Storing a second object
// under an already-known locator fails without touching the bucket.
func (ls *LocatorStorage) Put(ctx context.Context, obj model.Object) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	locator := obj.Locator()
	if _, ok := ls.byLocator[locator]; ok {
		err := fmt.Errorf("bucketgo: locator %q already stored: %w", locator, bucket.ErrDuplicate)
		ls.logger.WithLocator(locator).LogAdd(ctx, obj.ID(), obj.Size(), err)
		return err
	}

	if err := ls.bucket.AddObject(obj); err != nil {
		err = translateError(err)
		ls.logger.WithLocator(locator).LogAdd(ctx, obj.ID(), obj.Size(), err)
		return err
	}

	ls.byLocator[locator] = obj.ID()
	ls.logger.WithLocator(locator).LogAdd(ctx, obj.ID(), obj.Size(), nil)
	return nil
}

// Get retrieves the object stored under the locator.
func (ls *LocatorStorage) Get(locator string) (model.Object, error) {
	ls.mu.RLock()
	id, ok := ls.byLocator[locator]
	ls.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: locator %q", ErrNotFound, locator)
	}

	obj, err := ls.bucket.GetObject(id)
	return obj, translateError(err)
}

// Delete removes and returns the object stored under the locator.
func (ls *LocatorStorage) Delete(ctx context.Context, locator string) (model.Object, error) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	id, ok := ls.byLocator[locator]
	if !ok {
		return nil, fmt.Errorf("%w: locator %q", ErrNotFound, locator)
	}

	obj, err := ls.bucket.DeleteObject(id)
	if err != nil {
		err = translateError(err)
		ls.logger.WithLocator(locator).LogDelete(ctx, id, err)
		return nil, err
	}

	delete(ls.byLocator, locator)
	ls.logger.WithLocator(locator).LogDelete(ctx, id, nil)
	return obj, nil
}

// Len returns the number of tracked locators.
func (ls *LocatorStorage) Len() int {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return len(ls.byLocator)
}

// Bucket returns the underlying bucket.
func (ls *LocatorStorage) Bucket() *bucket.LocalBucket { return ls.bucket }

// Close closes the underlying bucket; the locator view is dropped.
func (ls *LocatorStorage) Close() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.byLocator = nil
	return translateError(ls.bucket.Close())
}

// Destroy tears down the underlying bucket including stored data.
func (ls *LocatorStorage) Destroy() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.byLocator = nil
	return translateError(ls.bucket.Destroy())
}
