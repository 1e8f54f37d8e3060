package oplog

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/daviddao/merklelog/pkg/entry"
	"github.com/daviddao/merklelog/pkg/metrics"
	"github.com/daviddao/merklelog/pkg/sorting"
	"github.com/daviddao/merklelog/pkg/storage"
)

// JoinEntry merges a remote entry into the log. It returns false when the
// entry is already known.
//
// Ancestors of e that are not yet part of the log but are present in the
// entry storage are merged along with it. Every merged entry must belong to
// this log, pass the access controller and carry a valid signature; if any
// fails, nothing is written.
func (l *Log) JoinEntry(e *entry.Entry) (bool, error) {
	if !entry.IsEntry(e) {
		return false, errors.Wrap(ErrInvalidArgument, "not an entry")
	}
	added, err := l.join([]*entry.Entry{e}, nil)
	if err != nil {
		return false, err
	}
	return len(added) > 0, nil
}

// Join merges every entry reachable from the heads of other into the log.
// It reads the whole reachable graph of other, including the part this log
// already holds, and fills any gaps from other's storage.
func (l *Log) Join(other *Log) error {
	if other == nil {
		return errors.Wrap(ErrInvalidArgument, "log instance not defined")
	}
	if other == l {
		return nil
	}
	hs, err := other.Heads()
	if err != nil {
		return err
	}
	_, err = l.join(hs, other.entries)
	return err
}

func (l *Log) join(roots []*entry.Entry, source storage.Storage) ([]*entry.Entry, error) {
	l.mu.Lock()
	added, err := l.joinLocked(roots, source)
	var n int
	if err == nil && len(added) > 0 {
		n, _ = l.heads.Len()
	}
	l.mu.Unlock()

	switch {
	case err != nil:
		l.metrics.Joined(metrics.JoinRejected)
		entryLog := l.log.WithError(err)
		if errors.Is(err, ErrInvalidSignature) {
			entryLog.Error("rejected entry")
		} else {
			entryLog.Warn("rejected entry")
		}
		return nil, err
	case len(added) == 0:
		l.metrics.Joined(metrics.JoinIgnored)
		return nil, nil
	}

	l.metrics.Joined(metrics.JoinAccepted)
	l.metrics.SetHeads(n)
	l.log.WithFields(log.Fields{"entries": len(added), "heads": n}).Debug("joined entries")
	l.notify(EventJoin, added...)
	return added, nil
}

// joinLocked collects the unknown part of the graph below roots, checks
// all of it, then commits it. It returns the committed entries, oldest
// first.
//
// With a source (Join), the walk also descends through entries already in
// the log, so gaps left by out-of-order delivery are filled from source.
// Without one (JoinEntry), it stops at known entries.
func (l *Log) joinLocked(roots []*entry.Entry, source storage.Storage) ([]*entry.Entry, error) {
	if l.closed {
		return nil, ErrClosed
	}
	deep := source != nil

	var queue, pending []*entry.Entry
	fresh := make(map[string]bool)
	seen := make(map[string]bool)
	for _, r := range roots {
		if seen[r.Hash] {
			continue
		}
		seen[r.Hash] = true
		known, err := l.known(r.Hash)
		if err != nil {
			return nil, err
		}
		if !known {
			fresh[r.Hash] = true
			pending = append(pending, r)
		} else if !deep {
			continue
		}
		queue = append(queue, r)
	}

	for i := 0; i < len(queue); i++ {
		e := queue[i]
		if fresh[e.Hash] {
			if err := l.check(e); err != nil {
				return nil, err
			}
		}
		for _, hashes := range [][]string{e.Next, e.Refs} {
			for _, h := range hashes {
				if seen[h] {
					continue
				}
				seen[h] = true
				known, err := l.known(h)
				if err != nil {
					return nil, err
				}
				var anc *entry.Entry
				if known {
					if !deep {
						continue
					}
					anc, err = l.get(h)
				} else {
					anc, err = l.fetch(h, source)
				}
				if errors.Is(err, storage.ErrNotFound) {
					continue
				}
				if err != nil {
					return nil, err
				}
				if !known {
					fresh[h] = true
					pending = append(pending, anc)
				}
				queue = append(queue, anc)
			}
		}
	}
	if len(pending) == 0 {
		return nil, nil
	}

	superseded := make(map[string]bool)
	for _, e := range pending {
		for _, h := range e.Next {
			superseded[h] = true
		}
	}
	for _, e := range pending {
		if err := l.entries.Put(e.Hash, e.Bytes); err != nil {
			return nil, err
		}
		if err := l.setFlags(e.Hash, flagPresent); err != nil {
			return nil, err
		}
	}
	for h := range superseded {
		if err := l.setFlags(h, flagSuperseded); err != nil {
			return nil, err
		}
		if err := l.heads.Remove(h); err != nil {
			return nil, err
		}
	}
	for _, e := range pending {
		f, err := l.flags(e.Hash)
		if err != nil {
			return nil, err
		}
		if f&flagSuperseded == 0 {
			if err := l.heads.Add(e); err != nil {
				return nil, err
			}
		}
		l.cache.Add(e.Hash, e)
	}

	sorting.Sort(pending, l.sortFn)
	return pending, nil
}

func (l *Log) known(hash string) (bool, error) {
	f, err := l.flags(hash)
	return f&flagPresent != 0, err
}

// check applies the merge rules to a single entry.
func (l *Log) check(e *entry.Entry) error {
	if e.ID != l.id {
		return errors.Wrapf(ErrMismatchedLog, "entry's id (%s) doesn't match the log's id (%s)", e.ID, l.id)
	}
	if !l.access.CanAppend(e) {
		return errors.Wrapf(ErrUnauthorized, "key %q", e.Identity)
	}
	if !entry.Verify(l.verifier, e) {
		return errors.Wrapf(ErrInvalidSignature, "entry %s", e.Hash)
	}
	return nil
}

// fetch reads an entry that is not yet part of the log from local storage
// or from source.
func (l *Log) fetch(hash string, source storage.Storage) (*entry.Entry, error) {
	b, err := l.entries.Get(hash)
	if errors.Is(err, storage.ErrNotFound) && source != nil {
		b, err = source.Get(hash)
	}
	if err != nil {
		return nil, err
	}
	e, err := entry.Decode(b)
	if err != nil {
		return nil, errors.Wrapf(err, "ancestor %s", hash)
	}
	if e.Hash != hash {
		return nil, errors.Wrapf(entry.ErrInvalidEntry, "ancestor stored under %s hashes to %s", hash, e.Hash)
	}
	return e, nil
}
