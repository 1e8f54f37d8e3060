package storage

import (
	"sort"

	"github.com/algorand/go-deadlock"
)

// Memory is an in-process Storage. It is the default for every store the
// log owns.
type Memory struct {
	mu     deadlock.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Put implements Storage.Put.
func (m *Memory) Put(hash string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.data[hash] = append([]byte(nil), data...)
	return nil
}

// Get implements Storage.Get.
func (m *Memory) Get(hash string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	data, ok := m.data[hash]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Del implements Storage.Del.
func (m *Memory) Del(hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.data, hash)
	return nil
}

// Iterate implements Storage.Iterate. Items are visited in hash order over a
// snapshot taken when the call starts.
func (m *Memory) Iterate(fn func(hash string, data []byte) error) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrClosed
	}
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	snapshot := make(map[string][]byte, len(m.data))
	for k, v := range m.data {
		snapshot[k] = v
	}
	m.mu.RUnlock()

	sort.Strings(keys)
	for _, k := range keys {
		if err := fn(k, append([]byte(nil), snapshot[k]...)); err != nil {
			return err
		}
	}
	return nil
}

// Merge implements Storage.Merge.
func (m *Memory) Merge(other Storage) error { return mergeInto(m, other) }

// Clear implements Storage.Clear.
func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.data = make(map[string][]byte)
	return nil
}

// Close implements Storage.Close.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Usage implements Usage.
func (m *Memory) Usage() (count int64, bytes int64, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, v := range m.data {
		count++
		bytes += int64(len(v))
	}
	return count, bytes, nil
}

var (
	_ Storage = (*Memory)(nil)
	_ Usage   = (*Memory)(nil)
)
