package storage

import (
	"context"
	"encoding/binary"
	"io"
	"os"
	"sync"

	"github.com/hupe1980/bucketgo/model"
	"github.com/hupe1980/bucketgo/resource"
)

// DiskOptions configure a DiskStorage.
type DiskOptions struct {
	// Path is the backing file. Required.
	Path string

	// Compression selects the block compression. Default: none.
	Compression CompressionType

	// Codec converts objects to bytes. Default: GenericCodec.
	Codec ObjectCodec

	// Controller throttles IO when non-nil. Throttle waits are not
	// interruptible; timeouts must be layered outside the storage.
	Controller *resource.Controller
}

// DiskStorage appends framed records to a file. The address of a record is
// its file offset. Removals are tracked in memory; removed record space is
// not reclaimed until the storage is destroyed.
type DiskStorage struct {
	mu     sync.Mutex
	opts   DiskOptions
	file   *os.File
	end    Address
	live   map[Address]struct{}
	closed bool
}

var _ Storage = (*DiskStorage)(nil)

// NewDiskStorage creates or truncates the backing file at opts.Path.
func NewDiskStorage(optFns ...func(o *DiskOptions)) (*DiskStorage, error) {
	opts := DiskOptions{
		Codec: GenericCodec{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	file, err := os.OpenFile(opts.Path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, NewError("open", err)
	}

	return &DiskStorage{
		opts: opts,
		file: file,
		live: make(map[Address]struct{}),
	}, nil
}

// Store implements Storage.
func (d *DiskStorage) Store(obj model.Object) (Address, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return InvalidAddress, ErrClosed
	}

	encoded, err := d.opts.Codec.Marshal(obj)
	if err != nil {
		return InvalidAddress, NewError("encode", err)
	}

	block, err := compressBlock(encoded, d.opts.Compression)
	if err != nil {
		return InvalidAddress, NewError("compress", err)
	}

	addr := d.end
	w := resource.NewRateLimitedWriter(context.Background(), io.NewOffsetWriter(d.file, int64(addr)), d.opts.Controller)
	if _, err := w.Write(block); err != nil {
		return InvalidAddress, NewError("write", err)
	}

	d.end += Address(len(block))
	d.live[addr] = struct{}{}

	return addr, nil
}

// Read implements Storage.
func (d *DiskStorage) Read(addr Address) (model.Object, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}
	if _, ok := d.live[addr]; !ok {
		return nil, ErrNotFound
	}

	var header [blockHeaderSize]byte
	if _, err := d.file.ReadAt(header[:], int64(addr)); err != nil {
		return nil, NewError("read", err)
	}

	uncompressedSize := binary.LittleEndian.Uint32(header[0:])
	compressedSize := binary.LittleEndian.Uint32(header[4:])

	payloadLen := compressedSize
	if payloadLen == 0 {
		payloadLen = uncompressedSize
	}

	payload := make([]byte, payloadLen)
	r := resource.NewRateLimitedReader(context.Background(),
		io.NewSectionReader(d.file, int64(addr)+blockHeaderSize, int64(payloadLen)), d.opts.Controller)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, NewError("read", err)
	}

	decoded, err := decompressBlock(payload, uncompressedSize, compressedSize, d.opts.Compression)
	if err != nil {
		return nil, NewError("decompress", err)
	}

	obj, err := d.opts.Codec.Unmarshal(decoded)
	if err != nil {
		return nil, NewError("decode", err)
	}

	return obj, nil
}

// Remove implements Storage.
func (d *DiskStorage) Remove(addr Address) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if _, ok := d.live[addr]; !ok {
		return ErrNotFound
	}

	delete(d.live, addr)

	return nil
}

// Len implements Storage.
func (d *DiskStorage) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.live)
}

// Close implements Storage. The backing file is kept.
func (d *DiskStorage) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	if err := d.file.Close(); err != nil {
		return NewError("close", err)
	}

	return nil
}

// Destroy implements Storage. The backing file is removed.
func (d *DiskStorage) Destroy() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.closed {
		d.closed = true
		if err := d.file.Close(); err != nil {
			return NewError("close", err)
		}
	}

	if err := os.Remove(d.opts.Path); err != nil && !os.IsNotExist(err) {
		return NewError("destroy", err)
	}

	d.live = nil

	return nil
}
