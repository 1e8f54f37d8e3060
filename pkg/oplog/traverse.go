package oplog

import (
	"container/heap"

	"github.com/pkg/errors"

	"github.com/daviddao/merklelog/pkg/entry"
	"github.com/daviddao/merklelog/pkg/sorting"
	"github.com/daviddao/merklelog/pkg/storage"
)

// StopFunc ends a traversal. It is called before each step with the entry
// yielded last (nil before the first step).
type StopFunc func(last *entry.Entry) bool

// Traversal walks the DAG depth-first, always expanding the most recent
// entry it has discovered. Use it like a bufio.Scanner:
//
//	t, err := l.Traverse(nil, nil)
//	for t.Next() {
//		e := t.Entry()
//	}
//	err = t.Err()
//
// A Traversal is single use. Each call to Traverse starts a new one.
type Traversal struct {
	get    func(string) (*entry.Entry, error)
	stop   StopFunc
	queue  entryHeap
	queued map[string]bool

	cur      *entry.Entry
	expanded bool
	err      error
	done     bool
}

// Traverse walks from roots, or from the current heads when roots is empty.
// Entries missing from storage are skipped.
func (l *Log) Traverse(roots []*entry.Entry, stop StopFunc) (*Traversal, error) {
	if len(roots) == 0 {
		hs, err := l.Heads()
		if err != nil {
			return nil, err
		}
		roots = hs
	}
	return l.traverse(roots, stop), nil
}

// traverse does not take the lock; callers holding it use it directly.
func (l *Log) traverse(roots []*entry.Entry, stop StopFunc) *Traversal {
	t := &Traversal{
		get:    l.get,
		stop:   stop,
		queue:  entryHeap{less: l.sortFn},
		queued: make(map[string]bool),
	}
	for _, r := range roots {
		if r == nil || t.queued[r.Hash] {
			continue
		}
		t.queued[r.Hash] = true
		t.queue.items = append(t.queue.items, r)
	}
	heap.Init(&t.queue)
	return t
}

// Next advances to the next entry. It returns false when the traversal is
// exhausted, stopped or failed.
func (t *Traversal) Next() bool {
	if t.done {
		return false
	}
	if t.stop != nil && t.stop(t.cur) {
		t.done = true
		return false
	}
	if t.cur != nil && !t.expanded {
		t.expanded = true
		if err := t.expand(t.cur); err != nil {
			t.err, t.done = err, true
			return false
		}
	}
	if t.queue.Len() == 0 {
		t.done = true
		return false
	}
	t.cur = heap.Pop(&t.queue).(*entry.Entry)
	t.expanded = false
	return true
}

func (t *Traversal) expand(e *entry.Entry) error {
	for _, hashes := range [][]string{e.Next, e.Refs} {
		for _, h := range hashes {
			if t.queued[h] {
				continue
			}
			t.queued[h] = true
			next, err := t.get(h)
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			heap.Push(&t.queue, next)
		}
	}
	return nil
}

// Entry returns the entry Next advanced to.
func (t *Traversal) Entry() *entry.Entry { return t.cur }

// Err returns the storage or decoding error that ended the traversal.
func (t *Traversal) Err() error { return t.err }

// entryHeap is a max-heap under the log's ordering: Pop returns the most
// recent entry.
type entryHeap struct {
	items []*entry.Entry
	less  sorting.SortFn
}

func (h entryHeap) Len() int           { return len(h.items) }
func (h entryHeap) Less(i, j int) bool { return h.less(h.items[i], h.items[j]) > 0 }
func (h entryHeap) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *entryHeap) Push(x interface{}) { h.items = append(h.items, x.(*entry.Entry)) }

func (h *entryHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	return x
}
