// Package heads keeps the set of entries that no other known entry lists as
// a predecessor. The set is persisted in a storage.Storage keyed by entry
// hash; storage order carries no meaning and All sorts on the way out.
package heads

import (
	"github.com/pkg/errors"

	"github.com/daviddao/merklelog/pkg/entry"
	"github.com/daviddao/merklelog/pkg/frontier"
	"github.com/daviddao/merklelog/pkg/sorting"
	"github.com/daviddao/merklelog/pkg/storage"
)

// Heads is not safe for concurrent use; the owning log serializes access.
type Heads struct {
	storage storage.Storage
	sortFn  sorting.SortFn
}

// New returns the head set backed by s. A nil s uses memory storage and a
// nil sortFn uses sorting.Default; any other policy is wrapped in
// sorting.NoZeroes. When initial entries are given they replace whatever s
// already holds.
func New(s storage.Storage, sortFn sorting.SortFn, initial ...*entry.Entry) (*Heads, error) {
	if s == nil {
		s = storage.NewMemory()
	}
	if sortFn == nil {
		sortFn = sorting.Default
	} else {
		sortFn = sorting.NoZeroes(sortFn)
	}
	h := &Heads{storage: s, sortFn: sortFn}
	if len(initial) > 0 {
		if err := h.Set(initial); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// All returns the heads, most recent first.
func (h *Heads) All() ([]*entry.Entry, error) {
	var out []*entry.Entry
	err := h.storage.Iterate(func(hash string, data []byte) error {
		e, err := entry.Decode(data)
		if err != nil {
			return errors.Wrapf(err, "head %s", hash)
		}
		out = append(out, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sorting.Sort(out, h.sortFn)
	sorting.Reverse(out)
	return out, nil
}

// Hashes returns the head hashes, most recent first.
func (h *Heads) Hashes() ([]string, error) {
	all, err := h.All()
	if err != nil {
		return nil, err
	}
	return entry.Hashes(all), nil
}

// Set replaces the stored heads with the frontier of entries.
func (h *Heads) Set(entries []*entry.Entry) error {
	for _, e := range entries {
		if !entry.IsEntry(e) {
			return errors.New("heads: not an entry")
		}
	}
	if err := h.storage.Clear(); err != nil {
		return err
	}
	for _, e := range frontier.Compute(entries) {
		if err := h.storage.Put(e.Hash, e.Bytes); err != nil {
			return err
		}
	}
	return nil
}

// Add inserts e and drops every head e supersedes.
func (h *Heads) Add(e *entry.Entry) error {
	if err := h.Remove(e.Next...); err != nil {
		return err
	}
	return h.storage.Put(e.Hash, e.Bytes)
}

// Remove drops the given hashes from the head set.
func (h *Heads) Remove(hashes ...string) error {
	for _, hash := range hashes {
		if err := h.storage.Del(hash); err != nil {
			return err
		}
	}
	return nil
}

// Has reports whether hash is a current head.
func (h *Heads) Has(hash string) (bool, error) {
	_, err := h.storage.Get(hash)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Len returns the number of heads.
func (h *Heads) Len() (int, error) { return storage.Count(h.storage) }

// Clear removes every head.
func (h *Heads) Clear() error { return h.storage.Clear() }

// Close closes the backing storage.
func (h *Heads) Close() error { return h.storage.Close() }
