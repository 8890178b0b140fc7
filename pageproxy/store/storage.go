// Package store provides the key/value storage and serialization used by the
// exchange log.
package store

import (
	"errors"
	"sync"

	"github.com/go-analyze/bulk"
)

// ErrClosed is returned by operations on a closed Storage.
var ErrClosed = errors.New("storage closed")

// Storage is a byte-oriented key/value store. Implementations are safe for
// concurrent use.
type Storage interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
	DeleteAll() error
	KeySet() []string
	Close() error
}

// MemStorage is a Storage held in process memory.
type MemStorage struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemStorage returns an empty MemStorage.
func NewMemStorage() *MemStorage {
	return &MemStorage{data: make(map[string][]byte)}
}

func (m *MemStorage) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, false, ErrClosed
	}
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemStorage) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	delete(m.data, key)
	return nil
}

func (m *MemStorage) DeleteAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	clear(m.data)
	return nil
}

// KeySet returns the stored keys in no particular order.
func (m *MemStorage) KeySet() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return bulk.MapKeysSlice(m.data)
}

func (m *MemStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}
