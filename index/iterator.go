package index

import (
	"errors"
	"iter"

	"github.com/hupe1980/bucketgo/model"
	"github.com/hupe1980/bucketgo/storage"
)

// ErrNoCurrent is returned by Remove when the iterator does not point at an
// object.
var ErrNoCurrent = errors.New("index: iterator has no current object")

// Iterator walks a snapshot of index entries in key order.
//
// The snapshot makes iteration safe against concurrent index mutation:
// objects removed after the iterator was created are silently skipped.
type Iterator[K any] struct {
	ix      *Ordered[K]
	entries []entry[K]
	pos     int
	cur     model.Object
	err     error
}

// Next advances to the next live object. It returns false when the snapshot
// is exhausted or a storage failure occurred (see Err).
func (it *Iterator[K]) Next() bool {
	it.cur = nil
	for it.pos+1 < len(it.entries) {
		it.pos++
		obj, err := it.ix.storage.Read(it.entries[it.pos].addr)
		if errors.Is(err, storage.ErrNotFound) {
			continue // removed behind our back
		}
		if err != nil {
			it.err = err
			return false
		}
		it.cur = obj
		return true
	}
	return false
}

// Object returns the object the iterator currently points at.
func (it *Iterator[K]) Object() model.Object { return it.cur }

// Err returns the first storage failure encountered, if any.
func (it *Iterator[K]) Err() error { return it.err }

// Remove deletes the current object from the index and its storage and
// returns it. The iterator stays usable; Next moves past the removed entry.
func (it *Iterator[K]) Remove() (model.Object, error) {
	if it.cur == nil {
		return nil, ErrNoCurrent
	}
	e := it.entries[it.pos]
	if err := it.ix.remove(e.key, e.addr); err != nil {
		return nil, err
	}
	removed := it.cur
	it.cur = nil
	return removed, nil
}

// Objects exposes the remaining objects as a range-over sequence. Remove is
// not available through this form.
func (it *Iterator[K]) Objects() iter.Seq[model.Object] {
	return func(yield func(model.Object) bool) {
		for it.Next() {
			if !yield(it.cur) {
				return
			}
		}
	}
}
