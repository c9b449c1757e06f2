// Package metrics holds the Prometheus collectors of the docbox processes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "docbox"

// Metrics groups every collector. Build one per process with New and
// register PrometheusCollectors on the registry served at /metrics.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestsLatency *prometheus.HistogramVec

	UploadsInitiated prometheus.Counter
	Completions      *prometheus.CounterVec
	TasksPurged      prometheus.Counter
	SweepFailures    prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Count of HTTP requests by route and status code",
		}, []string{"route", "status"}),

		RequestsLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Histogram of HTTP request handling time",
			Buckets:   prometheus.ExponentialBuckets(1e-3, 5, 7),
		}, []string{"route"}),

		UploadsInitiated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "presigned",
			Name:      "uploads_initiated_total",
			Help:      "Count of presigned upload tasks created",
		}),

		Completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "presigned",
			Name:      "completions_total",
			Help:      "Count of object-created notifications by outcome",
		}, []string{"outcome"}),

		TasksPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "presigned",
			Name:      "tasks_purged_total",
			Help:      "Count of expired presigned tasks deleted by the sweep",
		}),

		SweepFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "presigned",
			Name:      "sweep_tenant_failures_total",
			Help:      "Count of tenants whose sweep reported an error",
		}),
	}
}

func (m *Metrics) PrometheusCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Requests,
		m.RequestsLatency,
		m.UploadsInitiated,
		m.Completions,
		m.TasksPurged,
		m.SweepFailures,
	}
}
