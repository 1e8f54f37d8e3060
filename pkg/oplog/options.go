package oplog

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/daviddao/merklelog/pkg/access"
	"github.com/daviddao/merklelog/pkg/entry"
	"github.com/daviddao/merklelog/pkg/metrics"
	"github.com/daviddao/merklelog/pkg/sorting"
	"github.com/daviddao/merklelog/pkg/storage"
)

// DefaultCacheSize is the number of decoded entries a log keeps in memory.
const DefaultCacheSize = 1024

type options struct {
	logID        string
	access       access.Controller
	entries      storage.Storage
	headsStorage storage.Storage
	index        storage.Storage
	heads        []*entry.Entry
	sortFn       sorting.SortFn
	verifier     entry.Verifier
	logger       *log.Entry
	metrics      *metrics.Metrics
	observers    []Observer
	cacheSize    int
	err          error
}

// Option configures a Log.
type Option func(*options)

// WithLogID names the log. The default is a random UUID.
func WithLogID(id string) Option {
	return func(o *options) { o.logID = id }
}

// WithAccessController sets the write policy. The default admits everyone.
func WithAccessController(c access.Controller) Option {
	return func(o *options) { o.access = c }
}

// WithEntryStorage sets the hash -> entry bytes store.
func WithEntryStorage(s storage.Storage) Option {
	return func(o *options) { o.entries = s }
}

// WithHeadsStorage sets the store holding the current heads.
func WithHeadsStorage(s storage.Storage) Option {
	return func(o *options) { o.headsStorage = s }
}

// WithIndexStorage sets the membership index store.
func WithIndexStorage(s storage.Storage) Option {
	return func(o *options) { o.index = s }
}

// WithHeads seeds the log with existing heads. Their bytes are written to
// the entry storage; they replace whatever the heads storage holds.
func WithHeads(heads ...*entry.Entry) Option {
	return func(o *options) {
		for _, h := range heads {
			if !entry.IsEntry(h) {
				o.err = errors.Wrap(ErrInvalidArgument, "'heads' must contain entries")
				return
			}
		}
		o.heads = append(o.heads, heads...)
	}
}

// WithSortFn sets the ordering policy. The log wraps it in sorting.NoZeroes.
func WithSortFn(fn sorting.SortFn) Option {
	return func(o *options) { o.sortFn = fn }
}

// WithVerifier sets the identity capability used to check signatures of
// joined entries. The default is the provider that created the log's
// identity.
func WithVerifier(v entry.Verifier) Option {
	return func(o *options) { o.verifier = v }
}

// WithLogger sets the logger.
func WithLogger(l *log.Entry) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics attaches Prometheus instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithObserver registers an observer.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

// WithCacheSize sets how many decoded entries are cached.
func WithCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}
