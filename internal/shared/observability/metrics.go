package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	TransformDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "explicitexports_transform_seconds",
		Help:    "Time spent transforming a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	FilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "explicitexports_files_total",
		Help: "Files processed, by result (changed, unchanged, error).",
	}, []string{"result"})

	ReferencesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "explicitexports_references_total",
		Help: "Reference sites examined, by action (rewrite, skip).",
	}, []string{"action"})

	ExportsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "explicitexports_exports_total",
		Help: "Export descriptors discovered.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "explicitexports_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	WatcherThrottledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "explicitexports_watcher_throttled_total",
		Help: "Watch batches delayed by the rate limiter.",
	})
)
