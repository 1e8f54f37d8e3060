package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pkg/errors"

	_ "modernc.org/sqlite"
)

// SQLiteBusyTimeout is how long one SQLite statement waits for a lock held
// by another connection.
const SQLiteBusyTimeout = 60 * time.Second

// SQLiteDB is one SQLite database holding any number of named buckets. Each
// bucket is an independent Storage; the log keeps entries, heads and its
// index in three buckets of the same file.
type SQLiteDB struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the SQLite database at path and initializes
// the schema. WAL mode lets readers proceed while a writer holds the lock.
func OpenSQLite(path string) (*SQLiteDB, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		path, SQLiteBusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open db")
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &SQLiteDB{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate")
	}
	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS blocks (
		bucket TEXT NOT NULL,
		hash   TEXT NOT NULL,
		data   BLOB NOT NULL,
		PRIMARY KEY (bucket, hash)
	) WITHOUT ROWID;
	`
	_, err := s.db.Exec(schema)
	return err
}

// Bucket returns the Storage for bucket name. Closing a bucket does not
// close the database; call SQLiteDB.Close for that.
func (s *SQLiteDB) Bucket(name string) *SQLite {
	return &SQLite{db: s.db, bucket: name}
}

// Close closes the database connection.
func (s *SQLiteDB) Close() error { return s.db.Close() }

// SQLite is a Storage bucket inside a SQLiteDB.
type SQLite struct {
	db     *sql.DB
	bucket string
	// owner is set when the bucket was opened standalone and owns the db.
	owner *SQLiteDB
}

// NewSQLite opens the database at path and returns a bucket that closes the
// database when it is closed.
func NewSQLite(path, bucket string) (*SQLite, error) {
	db, err := OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	b := db.Bucket(bucket)
	b.owner = db
	return b, nil
}

// Put implements Storage.Put.
func (s *SQLite) Put(hash string, data []byte) error {
	return contention.do("put "+hash, func() error {
		_, err := s.db.Exec(
			`INSERT INTO blocks (bucket, hash, data) VALUES (?, ?, ?)
			 ON CONFLICT(bucket, hash) DO UPDATE SET data = excluded.data`,
			s.bucket, hash, data,
		)
		return err
	})
}

// Get implements Storage.Get.
func (s *SQLite) Get(hash string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow(
		`SELECT data FROM blocks WHERE bucket = ? AND hash = ?`, s.bucket, hash,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, errors.Wrapf(err, "get %s from bucket %s", hash, s.bucket)
	}
	return data, nil
}

// Del implements Storage.Del.
func (s *SQLite) Del(hash string) error {
	return contention.do("del "+hash, func() error {
		_, err := s.db.Exec(`DELETE FROM blocks WHERE bucket = ? AND hash = ?`, s.bucket, hash)
		return err
	})
}

// Iterate implements Storage.Iterate. Rows are read fully before fn runs so
// fn may write to the same bucket without holding a connection open.
func (s *SQLite) Iterate(fn func(hash string, data []byte) error) error {
	rows, err := s.db.Query(
		`SELECT hash, data FROM blocks WHERE bucket = ? ORDER BY hash ASC`, s.bucket,
	)
	if err != nil {
		return errors.Wrapf(err, "list bucket %s", s.bucket)
	}

	type item struct {
		hash string
		data []byte
	}
	var items []item
	for rows.Next() {
		var i item
		if err := rows.Scan(&i.hash, &i.data); err != nil {
			rows.Close()
			return err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, i := range items {
		if err := fn(i.hash, i.data); err != nil {
			return err
		}
	}
	return nil
}

// Merge implements Storage.Merge.
func (s *SQLite) Merge(other Storage) error { return mergeInto(s, other) }

// Clear implements Storage.Clear.
func (s *SQLite) Clear() error {
	return contention.do("clear "+s.bucket, func() error {
		_, err := s.db.Exec(`DELETE FROM blocks WHERE bucket = ?`, s.bucket)
		return err
	})
}

// Close implements Storage.Close.
func (s *SQLite) Close() error {
	if s.owner != nil {
		return s.owner.Close()
	}
	return nil
}

// Usage implements Usage.
func (s *SQLite) Usage() (count int64, bytes int64, err error) {
	err = s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(LENGTH(data)), 0) FROM blocks WHERE bucket = ?`, s.bucket,
	).Scan(&count, &bytes)
	return count, bytes, err
}

var (
	_ Storage = (*SQLite)(nil)
	_ Usage   = (*SQLite)(nil)
)
