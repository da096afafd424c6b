package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, metrics.Track("mail:send").End(nil))

	wantErr := errors.New("smtp down")
	require.ErrorIs(t, metrics.Track("mail:send").End(wantErr), wantErr)

	require.Equal(t, float64(1), testutil.ToFloat64(metrics.runs.WithLabelValues("mail:send", "success")))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.runs.WithLabelValues("mail:send", "failure")))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.failures.WithLabelValues("mail:send")))
}

func TestTrackerToleratesNilMetrics(t *testing.T) {
	var metrics *Metrics
	require.NoError(t, metrics.Track("noop").End(nil))
}

func TestMarkCleanup(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.MarkCleanup("users")
	metrics.MarkCleanup("users")
	metrics.MarkCleanup("")

	require.Equal(t, float64(2), testutil.ToFloat64(metrics.cleaned.WithLabelValues("users")))
}
