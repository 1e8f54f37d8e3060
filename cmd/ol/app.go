package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/daviddao/merklelog/pkg/access"
	"github.com/daviddao/merklelog/pkg/clock"
	"github.com/daviddao/merklelog/pkg/config"
	"github.com/daviddao/merklelog/pkg/entry"
	"github.com/daviddao/merklelog/pkg/hash"
	"github.com/daviddao/merklelog/pkg/identity"
	"github.com/daviddao/merklelog/pkg/metrics"
	"github.com/daviddao/merklelog/pkg/oplog"
	"github.com/daviddao/merklelog/pkg/storage"
)

const sqliteFile = "merklelog.db"

// app holds shared state for all CLI subcommands.
type app struct {
	cfg      config.Config
	ids      *identity.Identities
	identity *identity.Identity
	log      *oplog.Log
	metrics  *metrics.Metrics
	closers  []func() error
}

type stores struct {
	entries, heads, index, identities storage.Storage
	close                             func() error
}

// openStores opens the four stores of a replica on the configured backend.
func openStores(cfg config.Config) (*stores, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return &stores{
			entries:    storage.NewMemory(),
			heads:      storage.NewMemory(),
			index:      storage.NewMemory(),
			identities: storage.NewMemory(),
			close:      func() error { return nil },
		}, nil

	case config.StorageLevelDB:
		s := &stores{close: func() error { return nil }}
		for _, p := range []struct {
			dst  *storage.Storage
			name string
		}{
			{&s.entries, "entries"}, {&s.heads, "heads"},
			{&s.index, "index"}, {&s.identities, "identities"},
		} {
			l, err := storage.NewLevel(filepath.Join(cfg.DataDir, p.name))
			if err != nil {
				s.closeOpened()
				return nil, errors.Wrapf(err, "open %s", p.name)
			}
			*p.dst = l
		}
		return s, nil

	default:
		db, err := storage.OpenSQLite(filepath.Join(cfg.DataDir, sqliteFile))
		if err != nil {
			return nil, errors.Wrapf(err, "cannot open database in %s", cfg.DataDir)
		}
		return &stores{
			entries:    db.Bucket("entries"),
			heads:      db.Bucket("heads"),
			index:      db.Bucket("index"),
			identities: db.Bucket("identities"),
			close:      db.Close,
		}, nil
	}
}

func (s *stores) closeOpened() {
	for _, st := range []storage.Storage{s.entries, s.heads, s.index, s.identities} {
		if st != nil {
			st.Close()
		}
	}
}

// newApp opens the keystore, identity, storage and log of the replica in
// cfg.DataDir. The data directory is created if missing.
func newApp(cfg config.Config) (*app, error) {
	log.SetLevel(cfg.Level())
	oplog.SetDeadlockDetection(cfg.DeadlockDetection, cfg.LockTimeout(), log.WithField("cmd", "ol"))
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "cannot create %s", cfg.DataDir)
	}
	if cfg.LogID == "" {
		return nil, errors.New("no log id: run 'ol init' or set MERKLELOG_LOG_ID")
	}

	st, err := openStores(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}
	// Until the log owns them, every store is closed here on failure.
	fail := func(err error) (*app, error) {
		a.Close()
		st.closeOpened()
		st.close()
		return nil, err
	}

	ksPath := filepath.Join(cfg.DataDir, "keystore")
	if cfg.Storage == config.StorageMemory {
		ksPath = ""
	}
	ks, err := identity.NewKeyStore(ksPath)
	if err != nil {
		return fail(err)
	}
	if a.ids, err = identity.New(identity.WithKeyStore(ks), identity.WithStorage(st.identities)); err != nil {
		ks.Close()
		return fail(err)
	}
	a.closers = append(a.closers, a.ids.Close)
	if a.identity, err = a.ids.CreateIdentity(cfg.Identity); err != nil {
		return fail(err)
	}

	cache, err := storage.NewLRU(cfg.CacheSize)
	if err != nil {
		return fail(err)
	}
	a.metrics = metrics.New(prometheus.Labels{"log": cfg.LogID})

	opts := []oplog.Option{
		oplog.WithLogID(cfg.LogID),
		oplog.WithEntryStorage(storage.NewComposed(cache, st.entries)),
		oplog.WithHeadsStorage(st.heads),
		oplog.WithIndexStorage(st.index),
		oplog.WithCacheSize(cfg.CacheSize),
		oplog.WithMetrics(a.metrics),
		oplog.WithLogger(log.WithField("cmd", "ol")),
	}
	if len(cfg.WriteAccess) > 0 {
		opts = append(opts, oplog.WithAccessController(access.NewWriteList(a.ids, cfg.WriteAccess)))
	}
	if a.log, err = oplog.New(a.identity, opts...); err != nil {
		return fail(err)
	}
	a.closers = append([]func() error{a.log.Close}, a.closers...)
	a.closers = append(a.closers, st.close)
	return a, nil
}

// Close releases the log, identities and database, in that order.
func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil && !errors.Is(err, oplog.ErrClosed) {
			log.WithError(err).Debug("close")
		}
	}
	a.closers = nil
}

// entryView is the printable form of an entry.
type entryView struct {
	Hash     string      `json:"hash"`
	ID       string      `json:"id"`
	Payload  string      `json:"payload"`
	Clock    clock.Clock `json:"clock"`
	Next     []string    `json:"next"`
	Refs     []string    `json:"refs"`
	Identity string      `json:"identity"`
	Key      string      `json:"key"`
}

func viewOf(e *entry.Entry) entryView {
	return entryView{
		Hash:     e.Hash,
		ID:       e.ID,
		Payload:  string(e.Payload),
		Clock:    e.Clock,
		Next:     e.Next,
		Refs:     e.Refs,
		Identity: e.Identity,
		Key:      e.Key,
	}
}

func viewsOf(es []*entry.Entry) []entryView {
	out := make([]entryView, len(es))
	for i, e := range es {
		out[i] = viewOf(e)
	}
	return out
}

// checkHash rejects a non-empty argument that is not an entry hash.
func checkHash(arg, s string) error {
	if s == "" {
		return nil
	}
	return errors.Wrap(hash.Parse(s), arg)
}

// shortHash trims a content address for one-line output.
func shortHash(h string) string {
	if len(h) <= 12 {
		return h
	}
	return h[:6] + ".." + h[len(h)-4:]
}

// shortKey trims a hex public key for one-line output.
func shortKey(k string) string {
	if len(k) <= 10 {
		return k
	}
	return k[:10]
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
