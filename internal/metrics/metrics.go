package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsProcessed counts jobs by terminal outcome.
	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evaluator_jobs_processed_total",
			Help: "Total number of evaluation jobs processed",
		},
		[]string{"outcome"},
	)

	// JobsEnqueued counts accepted submissions.
	JobsEnqueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "evaluator_jobs_enqueued_total",
			Help: "Total number of evaluation jobs enqueued",
		},
	)

	// StageDuration tracks the wall time of each pipeline stage, retries included.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evaluator_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{"stage"},
	)

	// JobDuration tracks end-to-end job processing time.
	JobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "evaluator_job_duration_seconds",
			Help:    "End-to-end evaluation job duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)
)
