package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, m.Track("events:deliver").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("events:deliver").End(boom), boom)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("events:deliver", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("events:deliver", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("events:deliver")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	require.NoError(t, m.Track("noop").End(nil))
	m.AddPruned(3)
}

func TestAddPruned(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddPruned(0)
	m.AddPruned(4)
	require.Equal(t, 4.0, testutil.ToFloat64(m.pruned))
}

func TestSetLedgerDrift(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.SetLedgerDrift(3)
	m.SetLedgerDrift(1)
	require.Equal(t, 1.0, testutil.ToFloat64(m.drift))

	var nilMetrics *Metrics
	nilMetrics.SetLedgerDrift(2)
}
