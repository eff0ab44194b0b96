// internal/common/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pos_worker_job_duration_seconds",
			Help:    "Duration of job processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pos_worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	OrderTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_order_transitions_total",
			Help: "Order status transitions committed, by from and to status",
		},
		[]string{"from", "to"},
	)

	TableReleaseFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pos_table_release_failures_total",
			Help: "Tables that could not be released after an order left the staff queue",
		},
	)

	QueueRepairs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pos_order_queue_repairs_total",
			Help: "Orders whose owner queue was rewritten by reconciliation",
		},
	)
)

// RecordOutcome counts one finished job. An empty errorCode means it completed.
func RecordOutcome(taskType, errorCode string) {
	if errorCode == "" {
		WorkerJobsCompleted.WithLabelValues(taskType).Inc()
		return
	}
	WorkerJobsFailed.WithLabelValues(taskType, errorCode).Inc()
}

// TrackJob marks a job active and returns a func that records its duration.
func TrackJob(taskType string) func() {
	started := time.Now()
	WorkerJobsActive.WithLabelValues(taskType).Inc()
	return func() {
		WorkerJobsActive.WithLabelValues(taskType).Dec()
		WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(started).Seconds())
	}
}
