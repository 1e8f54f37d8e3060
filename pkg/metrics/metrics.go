// Package metrics exposes Prometheus instruments for log operations.
//
// Each Metrics owns its registry so several logs in one process (tests,
// replicas side by side) never collide on registration. All methods are
// no-ops on a nil *Metrics.
package metrics

import (
	"io"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Namespace prefixes every metric name.
const Namespace = "merklelog"

// Join results.
const (
	JoinAccepted = "accepted"
	JoinIgnored  = "ignored"
	JoinRejected = "rejected"
)

// Metrics counts the operations of one log in its own registry. A nil
// *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	appends prometheus.Counter
	joins   *prometheus.CounterVec
	heads   prometheus.Gauge
	entries prometheus.Gauge
	bytes   prometheus.Gauge
}

// New returns a fresh set of instruments. constLabels, typically the log
// id, are attached to every metric.
func New(constLabels prometheus.Labels) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		appends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   Namespace,
			Name:        "appends_total",
			Help:        "Entries appended by the local writer.",
			ConstLabels: constLabels,
		}),
		joins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   Namespace,
			Name:        "joins_total",
			Help:        "Remote entries offered to the log, by result.",
			ConstLabels: constLabels,
		}, []string{"result"}),
		heads: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   Namespace,
			Name:        "heads",
			Help:        "Current number of heads.",
			ConstLabels: constLabels,
		}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   Namespace,
			Name:        "entries",
			Help:        "Entries reachable from the heads, as last counted.",
			ConstLabels: constLabels,
		}),
		bytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   Namespace,
			Name:        "storage_bytes",
			Help:        "Bytes held by the entry storage, as last counted.",
			ConstLabels: constLabels,
		}),
	}
	m.registry.MustRegister(m.appends, m.joins, m.heads, m.entries, m.bytes)
	return m
}

// Appended counts one local append.
func (m *Metrics) Appended() {
	if m == nil {
		return
	}
	m.appends.Inc()
}

// Joined counts one joinEntry outcome.
func (m *Metrics) Joined(result string) {
	if m == nil {
		return
	}
	m.joins.WithLabelValues(result).Inc()
}

// SetHeads records the head count.
func (m *Metrics) SetHeads(n int) {
	if m == nil {
		return
	}
	m.heads.Set(float64(n))
}

// SetEntries records the reachable entry count.
func (m *Metrics) SetEntries(n int) {
	if m == nil {
		return
	}
	m.entries.Set(float64(n))
}

// SetStorageBytes records the entry storage size.
func (m *Metrics) SetStorageBytes(n int64) {
	if m == nil {
		return
	}
	m.bytes.Set(float64(n))
}

// Gather returns the current metric families.
func (m *Metrics) Gather() ([]*dto.MetricFamily, error) {
	if m == nil {
		return nil, nil
	}
	mfs, err := m.registry.Gather()
	if err != nil {
		return nil, errors.Wrap(err, "gather metrics failed")
	}
	return mfs, nil
}

// WriteText writes every metric family in the Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	mfs, err := m.Gather()
	if err != nil {
		return err
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return errors.Wrapf(err, "encode %s failed", mf.GetName())
		}
	}
	return nil
}
