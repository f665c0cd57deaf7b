// Package index provides ordered, searchable views over a storage.
//
// An Ordered index keeps the addresses of stored objects sorted by a
// pluggable comparator key and supports forward search with optional
// mutation: an iterator obtained from Search or All may remove the object it
// currently points at, and the removal reaches both the index and the
// underlying storage.
//
// The index itself is not synchronized; the owning bucket serializes access.
package index

import (
	"cmp"
	"sort"

	"github.com/hupe1980/bucketgo/model"
	"github.com/hupe1980/bucketgo/storage"
)

// Comparator extracts an orderable key from an object and compares two keys.
type Comparator[K any] struct {
	Extract func(obj model.Object) K
	Compare func(a, b K) int
}

// ByID orders objects by their process-scoped ID.
func ByID() Comparator[model.ObjectID] {
	return Comparator[model.ObjectID]{
		Extract: func(obj model.Object) model.ObjectID { return obj.ID() },
		Compare: func(a, b model.ObjectID) int { return cmp.Compare(a, b) },
	}
}

// ByLocator orders objects by their locator URI. Locators are not unique, so
// a locator search may yield several objects.
func ByLocator() Comparator[string] {
	return Comparator[string]{
		Extract: func(obj model.Object) string { return obj.Locator() },
		Compare: cmp.Compare[string],
	}
}

type entry[K any] struct {
	key  K
	addr storage.Address
}

// Ordered is a sorted index over a storage.
type Ordered[K any] struct {
	cmp     Comparator[K]
	storage storage.Storage
	entries []entry[K]
}

// NewOrdered creates an empty index over the given storage.
func NewOrdered[K any](st storage.Storage, cmp Comparator[K]) *Ordered[K] {
	return &Ordered[K]{
		cmp:     cmp,
		storage: st,
	}
}

// Storage returns the underlying storage.
func (ix *Ordered[K]) Storage() storage.Storage { return ix.storage }

// Len returns the number of indexed objects.
func (ix *Ordered[K]) Len() int { return len(ix.entries) }

// Add stores the object and inserts its address at the sorted position.
func (ix *Ordered[K]) Add(obj model.Object) (storage.Address, error) {
	addr, err := ix.storage.Store(obj)
	if err != nil {
		return storage.InvalidAddress, err
	}

	key := ix.cmp.Extract(obj)
	pos := sort.Search(len(ix.entries), func(i int) bool {
		return ix.cmp.Compare(ix.entries[i].key, key) > 0
	})

	ix.entries = append(ix.entries, entry[K]{})
	copy(ix.entries[pos+1:], ix.entries[pos:])
	ix.entries[pos] = entry[K]{key: key, addr: addr}

	return addr, nil
}

// lowerBound returns the first position whose key is >= key.
func (ix *Ordered[K]) lowerBound(key K) int {
	return sort.Search(len(ix.entries), func(i int) bool {
		return ix.cmp.Compare(ix.entries[i].key, key) >= 0
	})
}

// Search returns an iterator over the objects whose key equals key, in index
// order.
func (ix *Ordered[K]) Search(key K) *Iterator[K] {
	lo := ix.lowerBound(key)
	hi := lo
	for hi < len(ix.entries) && ix.cmp.Compare(ix.entries[hi].key, key) == 0 {
		hi++
	}
	return ix.iterator(lo, hi)
}

// All returns an iterator over every indexed object in key order.
func (ix *Ordered[K]) All() *Iterator[K] {
	return ix.iterator(0, len(ix.entries))
}

func (ix *Ordered[K]) iterator(lo, hi int) *Iterator[K] {
	snapshot := make([]entry[K], hi-lo)
	copy(snapshot, ix.entries[lo:hi])
	return &Iterator[K]{ix: ix, entries: snapshot, pos: -1}
}

// remove drops the entry for addr and removes the object from storage.
func (ix *Ordered[K]) remove(key K, addr storage.Address) error {
	pos := ix.lowerBound(key)
	for pos < len(ix.entries) && ix.cmp.Compare(ix.entries[pos].key, key) == 0 {
		if ix.entries[pos].addr == addr {
			ix.entries = append(ix.entries[:pos], ix.entries[pos+1:]...)
			return ix.storage.Remove(addr)
		}
		pos++
	}
	return storage.ErrNotFound
}
