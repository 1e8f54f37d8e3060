package oplog

import (
	"github.com/pkg/errors"

	"github.com/daviddao/merklelog/pkg/entry"
	"github.com/daviddao/merklelog/pkg/storage"
)

// Unbounded as IteratorOptions.Amount yields every entry in range.
const Unbounded = -1

// IteratorOptions selects a range of the log in traversal order (most
// recent first). LT/LTE pick where iteration starts, GT/GTE where it ends.
// All bounds are entry hashes.
type IteratorOptions struct {
	// Amount caps the number of entries. Zero yields nothing; use Unbounded
	// for no cap.
	Amount int

	// GT ends iteration before the given entry.
	GT string
	// GTE ends iteration at the given entry.
	GTE string
	// LT starts iteration at the direct predecessors of the given entry.
	LT string
	// LTE starts iteration at the given entry.
	LTE string
}

// Iterator yields the entries selected by IteratorOptions. Its methods
// follow Traversal.
type Iterator struct {
	t        *Traversal
	amount   int
	count    int
	end      *entry.Entry
	skipEnd  bool
	buffered []*entry.Entry
	useBuf   bool
	cur      *entry.Entry
	err      error
	done     bool
}

// Iterator returns an iterator over a range of the log. Unknown bound
// hashes are reported as errors matching storage.ErrNotFound; predecessors
// of an LT bound that are missing locally are skipped.
//
// When an end bound and a finite Amount are given without a start bound,
// the iterator walks from the heads down to the end bound and yields the
// last Amount entries before it, still most recent first.
func (l *Log) Iterator(opts IteratorOptions) (*Iterator, error) {
	if opts.Amount < Unbounded {
		return nil, errors.Wrapf(ErrInvalidArgument, "amount %d", opts.Amount)
	}
	if opts.LT != "" && opts.LTE != "" {
		return nil, errors.Wrap(ErrInvalidArgument, "lt and lte are exclusive")
	}
	if opts.GT != "" && opts.GTE != "" {
		return nil, errors.Wrap(ErrInvalidArgument, "gt and gte are exclusive")
	}
	it := &Iterator{amount: opts.Amount}
	if opts.Amount == 0 {
		it.done = true
		return it, nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return nil, ErrClosed
	}

	var start []*entry.Entry
	switch {
	case opts.LTE != "":
		e, err := l.get(opts.LTE)
		if err != nil {
			return nil, err
		}
		start = []*entry.Entry{e}
	case opts.LT != "":
		e, err := l.get(opts.LT)
		if err != nil {
			return nil, err
		}
		for _, h := range e.Next {
			n, err := l.get(h)
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			start = append(start, n)
		}
		if len(start) == 0 {
			it.done = true
			return it, nil
		}
	default:
		hs, err := l.heads.All()
		if err != nil {
			return nil, err
		}
		start = hs
	}

	if bound := opts.GT + opts.GTE; bound != "" {
		e, err := l.get(bound)
		if err != nil {
			return nil, err
		}
		it.end = e
		it.skipEnd = opts.GT != ""
	}
	it.useBuf = it.end != nil && it.amount != Unbounded && opts.LT == "" && opts.LTE == ""

	stop := func(last *entry.Entry) bool {
		return last != nil && it.end != nil && last.Hash == it.end.Hash
	}
	it.t = l.traverse(start, stop)
	return it, nil
}

// Next advances to the next entry in range.
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}
	if it.useBuf {
		return it.nextBuffered()
	}
	if it.amount != Unbounded && it.count >= it.amount {
		it.done = true
		return false
	}
	e, ok := it.step()
	if !ok {
		it.done = true
		return false
	}
	it.cur = e
	it.count++
	return true
}

// step returns the next traversed entry that is not an excluded bound.
func (it *Iterator) step() (*entry.Entry, bool) {
	for it.t.Next() {
		e := it.t.Entry()
		if it.skipEnd && e.Hash == it.end.Hash {
			continue
		}
		return e, true
	}
	it.err = it.t.Err()
	return nil, false
}

func (it *Iterator) nextBuffered() bool {
	if it.buffered == nil {
		r := newRing(it.amount)
		for {
			e, ok := it.step()
			if !ok {
				break
			}
			r.push(e)
		}
		if it.err != nil {
			it.done = true
			return false
		}
		it.buffered = r.items()
	}
	if len(it.buffered) == 0 {
		it.done = true
		return false
	}
	it.cur, it.buffered = it.buffered[0], it.buffered[1:]
	return true
}

// Entry returns the current entry.
func (it *Iterator) Entry() *entry.Entry { return it.cur }

// Err returns the error that ended iteration, if any.
func (it *Iterator) Err() error { return it.err }

// All drains the iterator.
func (it *Iterator) All() ([]*entry.Entry, error) {
	var out []*entry.Entry
	for it.Next() {
		out = append(out, it.Entry())
	}
	return out, it.Err()
}

// ring keeps the last cap entries pushed, in push order.
type ring struct {
	buf   []*entry.Entry
	start int
	n     int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]*entry.Entry, capacity)}
}

func (r *ring) push(e *entry.Entry) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = e
		r.n++
		return
	}
	r.buf[r.start] = e
	r.start = (r.start + 1) % len(r.buf)
}

func (r *ring) items() []*entry.Entry {
	out := make([]*entry.Entry, 0, r.n)
	for i := 0; i < r.n; i++ {
		out = append(out, r.buf[(r.start+i)%len(r.buf)])
	}
	return out
}
