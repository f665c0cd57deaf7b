package storage

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/hupe1980/bucketgo/model"
)

// ObjectCodec converts objects to and from their on-disk representation.
type ObjectCodec interface {
	Marshal(obj model.Object) ([]byte, error)
	Unmarshal(data []byte) (model.Object, error)
}

// record is the msgpack-encoded disk representation of a generic object.
type record struct {
	ID      uint64 `msgpack:"id"`
	Locator string `msgpack:"locator"`
	Data    []byte `msgpack:"data"`
}

// GenericCodec encodes *model.GenericObject values with msgpack. It is the
// default codec of DiskStorage.
type GenericCodec struct{}

// Marshal implements ObjectCodec.
func (GenericCodec) Marshal(obj model.Object) ([]byte, error) {
	g, ok := obj.(*model.GenericObject)
	if !ok {
		return nil, fmt.Errorf("storage: generic codec cannot encode %T", obj)
	}
	return msgpack.Marshal(record{
		ID:      uint64(g.ID()),
		Locator: g.Locator(),
		Data:    g.Data(),
	})
}

// Unmarshal implements ObjectCodec.
func (GenericCodec) Unmarshal(data []byte) (model.Object, error) {
	var r record
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return model.RestoreGenericObject(model.ObjectID(r.ID), r.Locator, r.Data), nil
}
