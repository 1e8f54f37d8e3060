package metrics

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/require"
)

func TestWriteText(t *testing.T) {
	m := New(prometheus.Labels{"log": "A"})
	m.Appended()
	m.Appended()
	m.Joined(JoinAccepted)
	m.Joined(JoinRejected)
	m.Joined(JoinRejected)
	m.SetHeads(3)
	m.SetEntries(10)
	m.SetStorageBytes(2048)

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))

	var p expfmt.TextParser
	mfs, err := p.TextToMetricFamilies(&buf)
	require.NoError(t, err)

	require.Equal(t, 2.0, mfs["merklelog_appends_total"].GetMetric()[0].GetCounter().GetValue())
	require.Equal(t, 3.0, mfs["merklelog_heads"].GetMetric()[0].GetGauge().GetValue())
	require.Equal(t, 10.0, mfs["merklelog_entries"].GetMetric()[0].GetGauge().GetValue())
	require.Equal(t, 2048.0, mfs["merklelog_storage_bytes"].GetMetric()[0].GetGauge().GetValue())

	joins := map[string]float64{}
	for _, metric := range mfs["merklelog_joins_total"].GetMetric() {
		var result string
		for _, l := range metric.GetLabel() {
			if l.GetName() == "result" {
				result = l.GetValue()
			}
			if l.GetName() == "log" {
				require.Equal(t, "A", l.GetValue())
			}
		}
		joins[result] = metric.GetCounter().GetValue()
	}
	require.Equal(t, map[string]float64{JoinAccepted: 1, JoinRejected: 2}, joins)
}

func TestIndependentRegistries(t *testing.T) {
	a, b := New(nil), New(nil)
	a.Appended()
	mfs, err := b.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == "merklelog_appends_total" {
			require.Zero(t, mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.Appended()
	m.Joined(JoinIgnored)
	m.SetHeads(1)
	mfs, err := m.Gather()
	require.NoError(t, err)
	require.Nil(t, mfs)
}
