// Package storage provides the addressed containers that bucket indexes sit
// on.
//
// A Storage hands out an opaque Address for every stored object and supports
// read and remove by that address. Two implementations are provided: an
// in-memory storage with roaring-bitmap address reuse, and a disk storage
// that appends msgpack-encoded records to a block file with optional
// zstd/lz4 compression.
//
// Storages distinguish Close (release transient handles, keep persisted
// data) from Destroy (release everything including persisted data). Neither
// relies on garbage collection; callers own the lifecycle explicitly.
package storage
