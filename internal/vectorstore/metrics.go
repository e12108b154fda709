package vectorstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BuildsTotal counts index builds by result (success, error).
	BuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medichat",
			Subsystem: "vectorstore",
			Name:      "builds_total",
			Help:      "Total number of index builds",
		},
		[]string{"result"},
	)

	// BuildDuration tracks how long builds take, embedding included.
	BuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "medichat",
			Subsystem: "vectorstore",
			Name:      "build_duration_seconds",
			Help:      "Duration of index builds in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		},
	)

	// IndexedChunks reports the chunk count of the most recent build.
	IndexedChunks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "medichat",
			Subsystem: "vectorstore",
			Name:      "indexed_chunks",
			Help:      "Number of chunks in the most recently built index",
		},
	)

	// SearchesTotal counts searches by result (success, error).
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medichat",
			Subsystem: "vectorstore",
			Name:      "searches_total",
			Help:      "Total number of similarity searches",
		},
		[]string{"result"},
	)

	// SearchDuration tracks search latency, query embedding included.
	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "medichat",
			Subsystem: "vectorstore",
			Name:      "search_duration_seconds",
			Help:      "Duration of similarity searches in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
