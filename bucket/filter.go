package bucket

import (
	"errors"
	"sync"

	"github.com/hupe1980/bucketgo/model"
)

// Filter is the marker for insert/delete hooks. A filter implements any
// subset of the capability interfaces below; it is invoked only for the
// capabilities it implements, in registration order.
type Filter interface{}

// BeforeAddFilter observes an object about to be inserted and may veto the
// insert by returning an error. On veto the bucket is left unchanged.
type BeforeAddFilter interface {
	BeforeAdd(obj model.Object, b Bucket) error
}

// AfterAddFilter observes an object just inserted; occupation is already
// updated and the object is readable from the bucket.
type AfterAddFilter interface {
	AfterAdd(obj model.Object, b Bucket)
}

// BeforeRemoveFilter observes an object about to be removed and may veto the
// removal by returning an error.
type BeforeRemoveFilter interface {
	BeforeRemove(obj model.Object, b Bucket) error
}

// AfterRemoveFilter observes an object just removed; the object is already
// absent from the bucket.
type AfterRemoveFilter interface {
	AfterRemove(obj model.Object, b Bucket)
}

// filterChain keeps one ordered hook list per capability. Registration and
// invocation may happen from different goroutines, so the lists are guarded.
type filterChain struct {
	mu           sync.RWMutex
	beforeAdd    []BeforeAddFilter
	afterAdd     []AfterAddFilter
	beforeRemove []BeforeRemoveFilter
	afterRemove  []AfterRemoveFilter
}

// register appends f to every capability list it implements.
func (fc *filterChain) register(f Filter) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if h, ok := f.(BeforeAddFilter); ok {
		fc.beforeAdd = append(fc.beforeAdd, h)
	}
	if h, ok := f.(AfterAddFilter); ok {
		fc.afterAdd = append(fc.afterAdd, h)
	}
	if h, ok := f.(BeforeRemoveFilter); ok {
		fc.beforeRemove = append(fc.beforeRemove, h)
	}
	if h, ok := f.(AfterRemoveFilter); ok {
		fc.afterRemove = append(fc.afterRemove, h)
	}
}

// deregister removes f from every capability list.
func (fc *filterChain) deregister(f Filter) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if h, ok := f.(BeforeAddFilter); ok {
		fc.beforeAdd = removeFilter(fc.beforeAdd, h)
	}
	if h, ok := f.(AfterAddFilter); ok {
		fc.afterAdd = removeFilter(fc.afterAdd, h)
	}
	if h, ok := f.(BeforeRemoveFilter); ok {
		fc.beforeRemove = removeFilter(fc.beforeRemove, h)
	}
	if h, ok := f.(AfterRemoveFilter); ok {
		fc.afterRemove = removeFilter(fc.afterRemove, h)
	}
}

func removeFilter[T comparable](list []T, f T) []T {
	for i, h := range list {
		if h == f {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}

// fireBeforeAdd runs the BeforeAdd hooks; a non-nil return is the veto,
// normalized to *ErrFilterReject.
func (fc *filterChain) fireBeforeAdd(obj model.Object, b Bucket) error {
	fc.mu.RLock()
	hooks := fc.beforeAdd
	fc.mu.RUnlock()

	for _, h := range hooks {
		if err := h.BeforeAdd(obj, b); err != nil {
			return asFilterReject(err)
		}
	}
	return nil
}

func (fc *filterChain) fireAfterAdd(obj model.Object, b Bucket) {
	fc.mu.RLock()
	hooks := fc.afterAdd
	fc.mu.RUnlock()

	for _, h := range hooks {
		h.AfterAdd(obj, b)
	}
}

func (fc *filterChain) fireBeforeRemove(obj model.Object, b Bucket) error {
	fc.mu.RLock()
	hooks := fc.beforeRemove
	fc.mu.RUnlock()

	for _, h := range hooks {
		if err := h.BeforeRemove(obj, b); err != nil {
			return asFilterReject(err)
		}
	}
	return nil
}

func (fc *filterChain) fireAfterRemove(obj model.Object, b Bucket) {
	fc.mu.RLock()
	hooks := fc.afterRemove
	fc.mu.RUnlock()

	for _, h := range hooks {
		h.AfterRemove(obj, b)
	}
}

func asFilterReject(err error) error {
	var fr *ErrFilterReject
	if errors.As(err, &fr) {
		return err
	}
	return &ErrFilterReject{Reason: err.Error(), cause: err}
}
