package storage

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	lvlstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Level is a Storage backed by LevelDB.
type Level struct {
	db *leveldb.DB
	// prefix is prepended to every key; all keys under it belong to this store.
	prefix []byte
}

// NewLevel opens (or creates) a LevelDB database at path. An empty path
// opens a memory-backed database, which is what tests use.
func NewLevel(path string) (*Level, error) {
	var (
		db  *leveldb.DB
		err error
	)
	if path == "" {
		db, err = leveldb.Open(lvlstorage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, errors.Wrap(err, "open leveldb failed")
	}
	return &Level{db: db, prefix: []byte("b/")}, nil
}

func (l *Level) key(hash string) []byte {
	return append(append([]byte(nil), l.prefix...), hash...)
}

// Put implements Storage.Put.
func (l *Level) Put(hash string, data []byte) error {
	if err := l.db.Put(l.key(hash), data, nil); err != nil {
		return errors.Wrap(err, "write leveldb failed")
	}
	return nil
}

// Get implements Storage.Get.
func (l *Level) Get(hash string) ([]byte, error) {
	data, err := l.db.Get(l.key(hash), nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	} else if err == leveldb.ErrClosed {
		return nil, ErrClosed
	} else if err != nil {
		return nil, errors.Wrap(err, "read leveldb failed")
	}
	return data, nil
}

// Del implements Storage.Del.
func (l *Level) Del(hash string) error {
	if err := l.db.Delete(l.key(hash), nil); err != nil {
		return errors.Wrap(err, "delete from leveldb failed")
	}
	return nil
}

// Iterate implements Storage.Iterate. Keys are collected before fn runs so
// fn may write to the same database.
func (l *Level) Iterate(fn func(hash string, data []byte) error) error {
	type item struct {
		hash string
		data []byte
	}
	var items []item

	it := l.db.NewIterator(util.BytesPrefix(l.prefix), nil)
	for it.Next() {
		items = append(items, item{
			hash: string(it.Key()[len(l.prefix):]),
			data: append([]byte(nil), it.Value()...),
		})
	}
	it.Release()
	if err := it.Error(); err != nil {
		return errors.Wrap(err, "iterate leveldb failed")
	}

	for _, i := range items {
		if err := fn(i.hash, i.data); err != nil {
			return err
		}
	}
	return nil
}

// Merge implements Storage.Merge.
func (l *Level) Merge(other Storage) error { return mergeInto(l, other) }

// Clear implements Storage.Clear.
func (l *Level) Clear() error {
	batch := new(leveldb.Batch)
	it := l.db.NewIterator(util.BytesPrefix(l.prefix), nil)
	for it.Next() {
		batch.Delete(append([]byte(nil), it.Key()...))
	}
	it.Release()
	if err := it.Error(); err != nil {
		return errors.Wrap(err, "iterate leveldb failed")
	}
	if err := l.db.Write(batch, nil); err != nil {
		return errors.Wrap(err, "clear leveldb failed")
	}
	return nil
}

// Close implements Storage.Close.
func (l *Level) Close() error { return l.db.Close() }

// Usage implements Usage by scanning the store's keys.
func (l *Level) Usage() (count int64, bytes int64, err error) {
	it := l.db.NewIterator(util.BytesPrefix(l.prefix), nil)
	for it.Next() {
		count++
		bytes += int64(len(it.Value()))
	}
	it.Release()
	return count, bytes, errors.Wrap(it.Error(), "iterate leveldb failed")
}

var (
	_ Storage = (*Level)(nil)
	_ Usage   = (*Level)(nil)
)
