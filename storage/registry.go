package storage

import (
	"fmt"
	"sync"

	"github.com/hupe1980/bucketgo/resource"
)

// Kind tags a registered storage backend.
type Kind string

const (
	// KindMemory is the in-memory storage backend.
	KindMemory Kind = "memory"
	// KindDisk is the file-backed storage backend.
	KindDisk Kind = "disk"
)

// Params carries the recognized construction options for registered
// backends. Fields irrelevant to a backend are ignored by its factory.
type Params struct {
	// Path is the backing file for disk-backed storages.
	Path string

	// Compression selects block compression for disk-backed storages.
	Compression CompressionType

	// Codec converts objects to bytes for disk-backed storages. Default:
	// GenericCodec.
	Codec ObjectCodec

	// Controller throttles IO when non-nil.
	Controller *resource.Controller
}

// Factory constructs a storage backend from params.
type Factory func(params Params) (Storage, error)

var (
	factoryMu sync.RWMutex
	factories = map[Kind]Factory{}
)

// RegisterFactory registers a factory for a storage kind.
//
// Backend implementations should typically call this from an init()
// function; registering an already-registered kind replaces the factory.
func RegisterFactory(kind Kind, factory Factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factories[kind] = factory
}

// New constructs a storage of the given kind.
func New(kind Kind, params Params) (Storage, error) {
	factoryMu.RLock()
	factory, ok := factories[kind]
	factoryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unknown kind %q", kind)
	}
	return factory(params)
}

func init() {
	RegisterFactory(KindMemory, func(Params) (Storage, error) {
		return NewMemoryStorage(), nil
	})
	RegisterFactory(KindDisk, func(params Params) (Storage, error) {
		return NewDiskStorage(func(o *DiskOptions) {
			o.Path = params.Path
			o.Compression = params.Compression
			if params.Codec != nil {
				o.Codec = params.Codec
			}
			o.Controller = params.Controller
		})
	})
}
