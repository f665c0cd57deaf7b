package storage

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/bucketgo/model"
)

// MemoryStorage keeps objects in a slice and reuses removed slots via a
// roaring bitmap free-list, so long-lived buckets with churn do not grow
// without bound.
type MemoryStorage struct {
	mu      sync.RWMutex
	slots   []model.Object
	free    *roaring.Bitmap
	count   int
	closed  bool
	destroy bool
}

var _ Storage = (*MemoryStorage)(nil)

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		free: roaring.New(),
	}
}

// Store implements Storage.
func (m *MemoryStorage) Store(obj model.Object) (Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return InvalidAddress, ErrClosed
	}

	var addr Address
	if !m.free.IsEmpty() {
		slot := m.free.Minimum()
		m.free.Remove(slot)
		m.slots[slot] = obj
		addr = Address(slot)
	} else {
		m.slots = append(m.slots, obj)
		addr = Address(len(m.slots) - 1)
	}
	m.count++

	return addr, nil
}

// Read implements Storage.
func (m *MemoryStorage) Read(addr Address) (model.Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	if addr < 0 || int(addr) >= len(m.slots) || m.slots[addr] == nil {
		return nil, ErrNotFound
	}

	return m.slots[addr], nil
}

// Remove implements Storage.
func (m *MemoryStorage) Remove(addr Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if addr < 0 || int(addr) >= len(m.slots) || m.slots[addr] == nil {
		return ErrNotFound
	}

	m.slots[addr] = nil
	m.free.Add(uint32(addr))
	m.count--

	return nil
}

// Len implements Storage.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.count
}

// Close implements Storage. Memory holds no persisted data, so Close only
// marks the storage unusable.
func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true

	return nil
}

// Destroy implements Storage.
func (m *MemoryStorage) Destroy() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.destroy = true
	m.slots = nil
	m.free = roaring.New()
	m.count = 0

	return nil
}
