package oplog

import (
	"github.com/pkg/errors"

	"github.com/daviddao/merklelog/pkg/storage"
)

// The membership index maps a hash to one flag byte. A hash can be known
// as a successor's predecessor before the entry itself arrives; such a
// record has flagSuperseded without flagPresent.
const (
	flagPresent byte = 1 << iota
	flagSuperseded
)

func (l *Log) flags(hash string) (byte, error) {
	b, err := l.index.Get(hash)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(b) != 1 {
		return 0, errors.Errorf("corrupt index record for %s", hash)
	}
	return b[0], nil
}

// setFlags ORs f into the record for hash.
func (l *Log) setFlags(hash string, f byte) error {
	cur, err := l.flags(hash)
	if err != nil {
		return err
	}
	if cur&f == f {
		return nil
	}
	return l.index.Put(hash, []byte{cur | f})
}

func (l *Log) markSuperseded(hashes []string) error {
	for _, h := range hashes {
		if err := l.setFlags(h, flagSuperseded); err != nil {
			return err
		}
	}
	return nil
}

var errNotEmpty = errors.New("not empty")

func isEmpty(s storage.Storage) (bool, error) {
	err := s.Iterate(func(string, []byte) error { return errNotEmpty })
	if errors.Is(err, errNotEmpty) {
		return false, nil
	}
	return err == nil, err
}

// reindexIfEmpty rebuilds the index from the heads when the log is opened
// over existing heads with an empty index.
func (l *Log) reindexIfEmpty() error {
	empty, err := isEmpty(l.index)
	if err != nil || !empty {
		return err
	}
	hs, err := l.heads.All()
	if err != nil || len(hs) == 0 {
		return err
	}

	t := l.traverse(hs, nil)
	n := 0
	for t.Next() {
		e := t.Entry()
		if err := l.setFlags(e.Hash, flagPresent); err != nil {
			return err
		}
		if err := l.markSuperseded(e.Next); err != nil {
			return err
		}
		n++
	}
	if err := t.Err(); err != nil {
		return errors.Wrap(err, "reindex failed")
	}
	l.log.WithField("entries", n).Info("rebuilt index")
	return nil
}
