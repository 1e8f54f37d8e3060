// Package storage provides the content-addressed block stores used by the
// log for entries, heads and its membership index.
//
// Every store maps a hash string to opaque bytes. The log never retries a
// failed storage call; backends that can see transient failures (SQLite
// under WAL contention) retry internally, see retry.go.
package storage

import (
	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned by Get when the hash is not stored.
	ErrNotFound = errors.New("not found")
	// ErrClosed is returned by any operation on a closed store.
	ErrClosed = errors.New("storage closed")
)

// Storage is a hash -> bytes store.
type Storage interface {
	// Put stores data under hash, replacing any previous value.
	Put(hash string, data []byte) error

	// Get returns the data stored under hash, or ErrNotFound.
	Get(hash string) ([]byte, error)

	// Del removes hash. Deleting an absent hash is not an error.
	Del(hash string) error

	// Iterate calls fn for every stored item. Iteration stops at the first
	// error returned by fn, which is returned to the caller. fn may write to
	// the store being iterated.
	Iterate(fn func(hash string, data []byte) error) error

	// Merge copies every item of other into this store.
	Merge(other Storage) error

	// Clear removes every item.
	Clear() error

	// Close releases the store.
	Close() error
}

// Usage is implemented by stores that can report their size cheaply.
type Usage interface {
	Usage() (count int64, bytes int64, err error)
}

// mergeInto copies all of src into dst.
func mergeInto(dst, src Storage) error {
	if src == nil {
		return nil
	}
	return src.Iterate(func(hash string, data []byte) error {
		return dst.Put(hash, data)
	})
}

// Count returns the number of items in s by iterating it.
func Count(s Storage) (int, error) {
	n := 0
	err := s.Iterate(func(string, []byte) error {
		n++
		return nil
	})
	return n, err
}
