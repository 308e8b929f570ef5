package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/model"
)

var (
	itemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mathsheets_items_total",
			Help: "Total number of work items by terminal status.",
		},
		[]string{"status"},
	)

	itemsSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mathsheets_items_skipped_total",
			Help: "Work items skipped because their output already existed.",
		},
	)

	itemDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mathsheets_item_duration_seconds",
			Help:    "Wall-clock duration of one work item, including spawn and reap, in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 6, 10, 30},
		},
		[]string{"status"},
	)

	activeWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mathsheets_active_workers",
			Help: "Number of worker processes currently in flight.",
		},
	)

	batchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mathsheets_batches_total",
			Help: "Total number of batches by result (clean, failures, aborted).",
		},
		[]string{"result"},
	)

	batchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mathsheets_batch_duration_seconds",
			Help:    "Wall-clock duration of a batch, in seconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
)

// Batch result label values.
const (
	batchClean    = "clean"
	batchFailures = "failures"
	batchAborted  = "aborted"
)

func init() {
	prometheus.MustRegister(itemsTotal)
	prometheus.MustRegister(itemsSkipped)
	prometheus.MustRegister(itemDuration)
	prometheus.MustRegister(activeWorkers)
	prometheus.MustRegister(batchesTotal)
	prometheus.MustRegister(batchDuration)

	// Pre-initialize label combinations so they appear in /metrics from startup.
	for _, s := range []string{model.StatusSucceeded, model.StatusTimeout, model.StatusError, model.StatusNoSignal} {
		itemsTotal.WithLabelValues(s)
	}
	for _, r := range []string{batchClean, batchFailures, batchAborted} {
		batchesTotal.WithLabelValues(r)
	}
}
