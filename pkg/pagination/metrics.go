package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for pagination engines.
var (
	pagesMerged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "listsync_pages_merged_total",
		Help: "Total pages merged into accumulated item sequences",
	})

	refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listsync_refresh_total",
		Help: "Total refreshes by mode (active, silentActive)",
	}, []string{"mode"})

	fetchMoreSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "listsync_fetch_more_skipped_total",
		Help: "Continuation requests skipped because the last page was reached",
	})
)
