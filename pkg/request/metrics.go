package request

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcomes used as metric label values.
const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeSkipped = "skipped"
	outcomeStale   = "stale"
)

// Prometheus metrics for request engine operations.
var (
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listsync_fetch_total",
		Help: "Total fetches by outcome (success, failure, skipped, stale)",
	}, []string{"outcome"})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "listsync_fetch_duration_seconds",
		Help:    "Duration of transport calls issued by request engines",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	})
)
