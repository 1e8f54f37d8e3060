// Package oplog implements an append-only operation log built as a Merkle
// DAG of signed entries.
//
// Every replica of a log holds a set of entries and the subset of them that
// no other known entry supersedes (the heads). Local writes append one entry
// whose next pointers are the current heads. Remote entries are merged with
// JoinEntry or Join. Merging is a pure function of entry content, so two
// replicas that have seen the same entries agree on Values in any order of
// arrival.
//
// A Log serializes its writers with one mutex. Reads take a consistent
// snapshot of the heads and then walk immutable entries without holding it.
package oplog

import (
	"github.com/algorand/go-deadlock"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/daviddao/merklelog/pkg/access"
	"github.com/daviddao/merklelog/pkg/clock"
	"github.com/daviddao/merklelog/pkg/entry"
	"github.com/daviddao/merklelog/pkg/heads"
	"github.com/daviddao/merklelog/pkg/identity"
	"github.com/daviddao/merklelog/pkg/metrics"
	"github.com/daviddao/merklelog/pkg/sorting"
	"github.com/daviddao/merklelog/pkg/storage"
)

// Log is one replica of an operation log.
type Log struct {
	mu     deadlock.RWMutex
	closed bool

	id       string
	identity *identity.Identity
	access   access.Controller
	verifier entry.Verifier
	sortFn   sorting.SortFn

	entries storage.Storage
	index   storage.Storage
	heads   *heads.Heads
	cache   *lru.Cache

	log       *log.Entry
	metrics   *metrics.Metrics
	observers []Observer
}

// New opens a log written by id. Storage defaults to memory.
func New(id *identity.Identity, opts ...Option) (*Log, error) {
	if id == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "identity is required")
	}
	o := options{cacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.err != nil {
		return nil, o.err
	}

	if o.logID == "" {
		o.logID = uuid.NewString()
	}
	if o.access == nil {
		o.access = access.AllowAll
	}
	if o.sortFn == nil {
		o.sortFn = sorting.Default
	} else {
		o.sortFn = sorting.NoZeroes(o.sortFn)
	}
	if o.verifier == nil {
		if p := id.Provider(); p != nil {
			o.verifier = p
		} else {
			return nil, errors.Wrap(ErrInvalidArgument, "identity has no provider, a verifier is required")
		}
	}
	if o.entries == nil {
		o.entries = storage.NewMemory()
	}
	if o.headsStorage == nil {
		o.headsStorage = storage.NewMemory()
	}
	if o.index == nil {
		o.index = storage.NewMemory()
	}
	if o.logger == nil {
		o.logger = log.WithField("pkg", "oplog")
	}
	if o.cacheSize <= 0 {
		o.cacheSize = DefaultCacheSize
	}
	cache, err := lru.New(o.cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "create entry cache failed")
	}

	for _, h := range o.heads {
		if err := o.entries.Put(h.Hash, h.Bytes); err != nil {
			return nil, errors.Wrap(err, "store initial heads failed")
		}
	}
	hs, err := heads.New(o.headsStorage, o.sortFn, o.heads...)
	if err != nil {
		return nil, err
	}

	l := &Log{
		id:        o.logID,
		identity:  id,
		access:    o.access,
		verifier:  o.verifier,
		sortFn:    o.sortFn,
		entries:   o.entries,
		index:     o.index,
		heads:     hs,
		cache:     cache,
		log:       o.logger.WithField("log", o.logID),
		metrics:   o.metrics,
		observers: o.observers,
	}
	if err := l.reindexIfEmpty(); err != nil {
		return nil, err
	}
	if n, err := hs.Len(); err == nil {
		l.metrics.SetHeads(n)
	}
	return l, nil
}

// ID returns the log id.
func (l *Log) ID() string { return l.id }

// Identity returns the local writer identity.
func (l *Log) Identity() *identity.Identity { return l.identity }

// AccessController returns the write policy.
func (l *Log) AccessController() access.Controller { return l.access }

// Storage returns the entry storage.
func (l *Log) Storage() storage.Storage { return l.entries }

// Metrics returns the attached instruments, possibly nil.
func (l *Log) Metrics() *metrics.Metrics { return l.metrics }

// Heads returns the current heads, most recent first.
func (l *Log) Heads() ([]*entry.Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return nil, ErrClosed
	}
	return l.heads.All()
}

// Clock returns the latest clock among the heads, attributed to the local
// writer. The next appended entry gets Clock().Tick().
func (l *Log) Clock() (clock.Clock, error) {
	hs, err := l.Heads()
	if err != nil {
		return clock.Clock{}, err
	}
	return l.clockOf(hs), nil
}

func (l *Log) clockOf(hs []*entry.Entry) clock.Clock {
	c := clock.New(l.identity.PublicKey)
	for _, h := range hs {
		c = c.Merge(h.Clock)
	}
	return c
}

// Get returns the entry stored under hash. An absent entry yields an error
// matching storage.ErrNotFound.
func (l *Log) Get(hash string) (*entry.Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return nil, ErrClosed
	}
	return l.get(hash)
}

func (l *Log) get(hash string) (*entry.Entry, error) {
	if v, ok := l.cache.Get(hash); ok {
		return v.(*entry.Entry), nil
	}
	b, err := l.entries.Get(hash)
	if err != nil {
		return nil, errors.Wrapf(err, "get entry %s", hash)
	}
	e, err := entry.Decode(b)
	if err != nil {
		return nil, errors.Wrapf(err, "get entry %s", hash)
	}
	if e.Hash != hash {
		return nil, errors.Wrapf(entry.ErrInvalidEntry, "stored under %s but hashes to %s", hash, e.Hash)
	}
	l.cache.Add(hash, e)
	return e, nil
}

// Has reports whether hash is part of the log.
func (l *Log) Has(hash string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return false, ErrClosed
	}
	f, err := l.flags(hash)
	return f&flagPresent != 0, err
}

// Len counts the entries reachable from the heads.
func (l *Log) Len() (int, error) {
	t, err := l.Traverse(nil, nil)
	if err != nil {
		return 0, err
	}
	n := 0
	for t.Next() {
		n++
	}
	return n, t.Err()
}

// AppendOptions tunes Append.
type AppendOptions struct {
	// PointerCount is how far back, in entries, refs reach. Refs are taken
	// at every power-of-two distance up to it. Values below 2 add no refs.
	PointerCount int
}

// Append signs payload into a new entry whose predecessors are the
// current heads, stores it and makes it the only head.
func (l *Log) Append(payload []byte, opts AppendOptions) (*entry.Entry, error) {
	l.mu.Lock()
	e, err := l.appendLocked(payload, opts)
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	l.metrics.Appended()
	l.metrics.SetHeads(1)
	l.log.WithFields(log.Fields{"hash": e.Hash, "time": e.Clock.Time}).Debug("appended entry")
	l.notify(EventAppend, e)
	return e, nil
}

func (l *Log) appendLocked(payload []byte, opts AppendOptions) (*entry.Entry, error) {
	if l.closed {
		return nil, ErrClosed
	}
	hs, err := l.heads.All()
	if err != nil {
		return nil, err
	}
	refs, err := l.references(hs, opts.PointerCount)
	if err != nil {
		return nil, err
	}
	e, err := entry.Create(l.identity, l.id, payload,
		entry.WithClock(l.clockOf(hs).Tick()),
		entry.WithNextEntries(hs...),
		entry.WithRefs(refs...),
	)
	if err != nil {
		return nil, err
	}
	if !l.access.CanAppend(e) {
		l.log.WithField("identity", l.identity.Hash).Warn("append refused by access controller")
		return nil, errors.Wrapf(ErrUnauthorized, "key %q", l.identity.Hash)
	}

	if err := l.entries.Put(e.Hash, e.Bytes); err != nil {
		return nil, err
	}
	if err := l.markSuperseded(e.Next); err != nil {
		return nil, err
	}
	if err := l.setFlags(e.Hash, flagPresent); err != nil {
		return nil, err
	}
	if err := l.heads.Set([]*entry.Entry{e}); err != nil {
		return nil, err
	}
	l.cache.Add(e.Hash, e)
	return e, nil
}

// references returns the hashes at distance 2, 4, 8, ... from the heads,
// up to pointerCount entries away.
func (l *Log) references(hs []*entry.Entry, pointerCount int) ([]string, error) {
	if pointerCount < 2 || len(hs) == 0 {
		return []string{}, nil
	}
	distance := 0
	stop := func(*entry.Entry) bool { return distance >= pointerCount }
	t := l.traverse(hs, stop)

	refs := []string{}
	nextPointer := 2
	for t.Next() {
		distance++
		if distance == nextPointer {
			refs = append(refs, t.Entry().Hash)
			nextPointer *= 2
		}
	}
	return refs, t.Err()
}

// Values returns every reachable entry, oldest first.
func (l *Log) Values() ([]*entry.Entry, error) {
	t, err := l.Traverse(nil, nil)
	if err != nil {
		return nil, err
	}
	var out []*entry.Entry
	for t.Next() {
		out = append(out, t.Entry())
	}
	if err := t.Err(); err != nil {
		return nil, err
	}
	sorting.Reverse(out)
	return out, nil
}

// Clear removes every entry, head and index record. It is a teardown
// operation.
func (l *Log) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	l.cache.Purge()
	if err := l.index.Clear(); err != nil {
		return err
	}
	if err := l.heads.Clear(); err != nil {
		return err
	}
	l.metrics.SetHeads(0)
	return l.entries.Clear()
}

// Close closes the log's storages. Later calls return ErrClosed.
func (l *Log) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.closed = true
	var firstErr error
	for _, c := range []func() error{l.index.Close, l.heads.Close, l.entries.Close} {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.mu.Unlock()
	l.notify(EventClose)
	return firstErr
}
