package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Register(t *testing.T) {
	m := New()
	reg := prometheus.NewRegistry()
	reg.MustRegister(m.PrometheusCollectors()...)

	m.Requests.WithLabelValues("/health", "200").Inc()
	m.RequestsLatency.WithLabelValues("/health").Observe(0.01)
	m.UploadsInitiated.Inc()
	m.Completions.WithLabelValues("completed").Add(2)
	m.TasksPurged.Add(3)
	m.SweepFailures.Inc()

	mfs, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"docbox_http_requests_total",
		"docbox_http_request_duration_seconds",
		"docbox_presigned_uploads_initiated_total",
		"docbox_presigned_completions_total",
		"docbox_presigned_tasks_purged_total",
		"docbox_presigned_sweep_tenant_failures_total",
	} {
		assert.True(t, names[want], want)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Completions.WithLabelValues("completed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.TasksPurged))
}
