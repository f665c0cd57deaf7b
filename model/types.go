package model

import (
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// ObjectID is the process-scoped unique identifier of a stored object.
type ObjectID uint64

// InvalidObjectID is the zero sentinel; no allocated object ever carries it.
const InvalidObjectID ObjectID = 0

var idCounter atomic.Uint64

// NextObjectID allocates a fresh process-scoped object ID.
func NextObjectID() ObjectID {
	return ObjectID(idCounter.Add(1))
}

// Object is the opaque unit stored in a bucket.
//
// Implementations must be immutable once stored; a mutation is expressed as
// delete followed by insert of a new object.
type Object interface {
	// ID returns the process-scoped unique identifier.
	ID() ObjectID

	// Locator returns the locator URI. Locators are not necessarily unique
	// across objects.
	Locator() string

	// Size returns the object size in bytes, used for byte-based occupation
	// accounting.
	Size() int

	// DataEquals reports whether the other object carries equal data,
	// regardless of ID or locator.
	DataEquals(other Object) bool
}

// GenericObject is a payload-bytes Object implementation.
//
// It is the stored-item type used by the map-backed locator storage and by
// tests; metric-space object types from higher layers satisfy Object
// directly.
type GenericObject struct {
	id      ObjectID
	locator string
	data    []byte
	hash    uint64
}

// NewGenericObject creates an object with a freshly allocated ID and a
// generated UUID locator.
func NewGenericObject(data []byte) *GenericObject {
	return NewGenericObjectWithLocator(uuid.NewString(), data)
}

// NewGenericObjectWithLocator creates an object with a freshly allocated ID
// and the given locator.
func NewGenericObjectWithLocator(locator string, data []byte) *GenericObject {
	return &GenericObject{
		id:      NextObjectID(),
		locator: locator,
		data:    data,
		hash:    xxhash.Sum64(data),
	}
}

// RestoreGenericObject rebuilds an object from persisted fields, keeping its
// original ID instead of allocating a new one. Reading an object back from a
// storage must yield the identity it was stored under.
func RestoreGenericObject(id ObjectID, locator string, data []byte) *GenericObject {
	return &GenericObject{
		id:      id,
		locator: locator,
		data:    data,
		hash:    xxhash.Sum64(data),
	}
}

// ID implements Object.
func (o *GenericObject) ID() ObjectID { return o.id }

// Locator implements Object.
func (o *GenericObject) Locator() string { return o.locator }

// Size implements Object.
func (o *GenericObject) Size() int { return len(o.data) }

// Data returns the raw payload.
func (o *GenericObject) Data() []byte { return o.data }

// DataHash returns the xxhash of the payload, used as a cheap inequality
// check before the full byte comparison.
func (o *GenericObject) DataHash() uint64 { return o.hash }

// DataEquals implements Object. When the other object is also a
// GenericObject, the precomputed hash rules out inequality without touching
// the payload bytes.
func (o *GenericObject) DataEquals(other Object) bool {
	g, ok := other.(*GenericObject)
	if !ok {
		return false
	}
	if o.hash != g.hash || len(o.data) != len(g.data) {
		return false
	}
	for i := range o.data {
		if o.data[i] != g.data[i] {
			return false
		}
	}
	return true
}
