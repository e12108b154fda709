package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueriesTotal counts Ask calls by outcome.
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medichat",
			Subsystem: "session",
			Name:      "queries_total",
			Help:      "Questions processed, by outcome",
		},
		[]string{"result"},
	)

	// QueryDuration observes end-to-end Ask latency.
	QueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "medichat",
			Subsystem: "session",
			Name:      "query_duration_seconds",
			Help:      "End-to-end question latency",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 6, 10, 20, 60},
		},
	)

	// ActiveSessions tracks live sessions.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "medichat",
			Subsystem: "session",
			Name:      "active",
			Help:      "Live sessions",
		},
	)
)
