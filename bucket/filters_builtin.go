package bucket

import (
	"sync"
	"sync/atomic"

	"github.com/hupe1980/bucketgo/model"
)

// Hook execution note: before/after hooks run inside the bucket's critical
// section. A hook must not call back into the bucket's own locked
// operations; built-in filters keep their own shadow state instead.

// hashable is satisfied by objects that precompute a data hash
// (model.GenericObject does). Objects without one all share the zero hash
// slot, degrading the dedup check to a full DataEquals sweep among them.
type hashable interface {
	DataHash() uint64
}

// DedupFilter vetoes inserts of objects that are data-equal to an object
// already stored in its bucket. The xxhash of the payload rules out most
// candidates before any byte comparison. One filter instance serves one
// bucket; dispatchers create a fresh instance per bucket via AutoFilters.
type DedupFilter struct {
	mu     sync.Mutex
	byHash map[uint64][]model.Object
	Vetoed atomic.Int64
}

var (
	_ BeforeAddFilter   = (*DedupFilter)(nil)
	_ AfterAddFilter    = (*DedupFilter)(nil)
	_ AfterRemoveFilter = (*DedupFilter)(nil)
)

// NewDedupFilter creates an empty dedup filter.
func NewDedupFilter() *DedupFilter {
	return &DedupFilter{byHash: make(map[uint64][]model.Object)}
}

func dataHash(obj model.Object) uint64 {
	if h, ok := obj.(hashable); ok {
		return h.DataHash()
	}
	return 0
}

// BeforeAdd implements BeforeAddFilter.
func (f *DedupFilter) BeforeAdd(obj model.Object, _ Bucket) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, stored := range f.byHash[dataHash(obj)] {
		if stored.DataEquals(obj) {
			f.Vetoed.Add(1)
			return ErrDuplicate
		}
	}
	return nil
}

// AfterAdd implements AfterAddFilter.
func (f *DedupFilter) AfterAdd(obj model.Object, _ Bucket) {
	f.mu.Lock()
	defer f.mu.Unlock()

	h := dataHash(obj)
	f.byHash[h] = append(f.byHash[h], obj)
}

// AfterRemove implements AfterRemoveFilter.
func (f *DedupFilter) AfterRemove(obj model.Object, _ Bucket) {
	f.mu.Lock()
	defer f.mu.Unlock()

	h := dataHash(obj)
	list := f.byHash[h]
	for i, stored := range list {
		if stored.ID() == obj.ID() {
			f.byHash[h] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(f.byHash[h]) == 0 {
		delete(f.byHash, h)
	}
}

// CounterFilter counts the mutations that pass through its bucket.
type CounterFilter struct {
	Added   atomic.Int64
	Removed atomic.Int64
}

var (
	_ AfterAddFilter    = (*CounterFilter)(nil)
	_ AfterRemoveFilter = (*CounterFilter)(nil)
)

// AfterAdd implements AfterAddFilter.
func (f *CounterFilter) AfterAdd(model.Object, Bucket) { f.Added.Add(1) }

// AfterRemove implements AfterRemoveFilter.
func (f *CounterFilter) AfterRemove(model.Object, Bucket) { f.Removed.Add(1) }
