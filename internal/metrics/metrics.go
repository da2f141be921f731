package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Query metrics
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logdash_queries_total",
			Help: "Queries answered, by outcome (ok, invalid, error)",
		},
		[]string{"outcome"},
	)
	QueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "logdash_query_duration_seconds",
			Help:    "Time to load, filter and aggregate one query",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Ingestion metrics
	RecordsLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "logdash_records_loaded",
			Help: "Records parsed from the log directory by the most recent load",
		},
	)
	LinesRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "logdash_lines_rejected_total",
			Help: "Log lines dropped because they did not match the line format",
		},
	)
	FilesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "logdash_files_skipped_total",
			Help: "Log files skipped because they could not be read",
		},
	)
)

const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// ObserveQuery records one finished query.
func ObserveQuery(outcome string, took time.Duration) {
	QueriesTotal.WithLabelValues(outcome).Inc()
	QueryDuration.Observe(took.Seconds())
}
