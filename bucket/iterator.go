package bucket

import (
	"iter"

	"github.com/hupe1980/bucketgo/index"
	"github.com/hupe1980/bucketgo/model"
)

// ObjectIterator lazily walks a bucket's objects in ID order.
//
// Remove deletes the current object through the same filter and occupation
// path as Bucket.DeleteObject, so a veto or floor breach surfaces here the
// same way it would there.
type ObjectIterator struct {
	bucket *LocalBucket
	it     *index.Iterator[model.ObjectID]
}

// Next advances to the next object; false means the iteration is exhausted
// or a storage failure occurred (see Err).
func (oi *ObjectIterator) Next() bool { return oi.it.Next() }

// Object returns the current object.
func (oi *ObjectIterator) Object() model.Object { return oi.it.Object() }

// Err returns the first storage failure encountered, if any.
func (oi *ObjectIterator) Err() error {
	if err := oi.it.Err(); err != nil {
		return storageFailure("iterate", err)
	}
	return nil
}

// Remove deletes the current object and returns it.
func (oi *ObjectIterator) Remove() (model.Object, error) {
	oi.bucket.mu.Lock()
	defer oi.bucket.mu.Unlock()

	if oi.bucket.closed {
		return nil, ErrClosed
	}
	if oi.it.Object() == nil {
		return nil, index.ErrNoCurrent
	}

	return oi.bucket.removeCurrent(oi.it)
}

// Objects exposes the remaining objects as a range-over sequence.
func (oi *ObjectIterator) Objects() iter.Seq[model.Object] {
	return func(yield func(model.Object) bool) {
		for oi.Next() {
			if !yield(oi.Object()) {
				return
			}
		}
	}
}
