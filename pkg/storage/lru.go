package storage

import (
	"sort"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

// DefaultLRUSize is the capacity used when NewLRU is given a non-positive size.
const DefaultLRUSize = 1000000

// LRU is a bounded in-memory Storage that evicts the least recently used
// item once full. It is meant as the fast half of a Composed store.
type LRU struct {
	cache *lru.Cache
}

// NewLRU returns an LRU store holding at most size items.
func NewLRU(size int) (*LRU, error) {
	if size <= 0 {
		size = DefaultLRUSize
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "create lru cache failed")
	}
	return &LRU{cache: c}, nil
}

// Put implements Storage.Put.
func (l *LRU) Put(hash string, data []byte) error {
	l.cache.Add(hash, append([]byte(nil), data...))
	return nil
}

// Get implements Storage.Get.
func (l *LRU) Get(hash string) ([]byte, error) {
	v, ok := l.cache.Get(hash)
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v.([]byte)...), nil
}

// Del implements Storage.Del.
func (l *LRU) Del(hash string) error {
	l.cache.Remove(hash)
	return nil
}

// Iterate implements Storage.Iterate without touching recency.
func (l *LRU) Iterate(fn func(hash string, data []byte) error) error {
	keys := make([]string, 0, l.cache.Len())
	for _, k := range l.cache.Keys() {
		keys = append(keys, k.(string))
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, ok := l.cache.Peek(k)
		if !ok {
			continue
		}
		if err := fn(k, append([]byte(nil), v.([]byte)...)); err != nil {
			return err
		}
	}
	return nil
}

// Merge implements Storage.Merge.
func (l *LRU) Merge(other Storage) error { return mergeInto(l, other) }

// Clear implements Storage.Clear.
func (l *LRU) Clear() error {
	l.cache.Purge()
	return nil
}

// Close implements Storage.Close.
func (l *LRU) Close() error { return nil }

var _ Storage = (*LRU)(nil)
