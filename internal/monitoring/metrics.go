// Package monitoring registers the Prometheus metrics of the worker pool
// (job duration and failures) and the coordinator API (sessions created).
// JobsEnqueued is registered, but no enqueue path increments it.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector this core registers.
type Metrics struct {
	JobsEnqueued    *prometheus.CounterVec
	JobDuration     *prometheus.HistogramVec
	JobFailures     *prometheus.CounterVec
	SessionsCreated prometheus.Counter
}

// NewMetrics constructs and registers the collectors against the default
// registry. Call once per process.
func NewMetrics() *Metrics {
	return &Metrics{
		JobsEnqueued: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fhecoord_jobs_enqueued_total",
				Help: "Total number of jobs enqueued onto the dispatcher, by kind",
			},
			[]string{"kind"},
		),
		JobDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fhecoord_job_duration_seconds",
				Help:    "Time spent running a job handler to completion, by kind",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		JobFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fhecoord_job_failures_total",
				Help: "Total number of job handler invocations that returned an error, by kind",
			},
			[]string{"kind"},
		),
		SessionsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "fhecoord_sessions_created_total",
				Help: "Total number of sessions created",
			},
		),
	}
}
