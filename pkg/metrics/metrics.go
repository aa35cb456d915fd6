// Package metrics exposes the Prometheus registry used by listsync.
// All metrics are defined in their respective packages (request, pagination,
// client, ratelimit) and registered there via promauto.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by listsync.
var Registry = prometheus.DefaultRegisterer

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Request Engine Metrics (pkg/request):
//   - listsync_fetch_total{outcome} (Counter): Fetches by outcome (success, failure, skipped, stale)
//   - listsync_fetch_duration_seconds (Histogram): Transport call duration
//
// Pagination Metrics (pkg/pagination):
//   - listsync_pages_merged_total (Counter): Pages merged into accumulated sequences
//   - listsync_refresh_total{mode} (Counter): Refreshes by mode (active, silentActive)
//   - listsync_fetch_more_skipped_total (Counter): Continuations skipped at the last page
//
// HTTP Transport Metrics (pkg/client):
//   - listsync_http_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - listsync_http_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//
// Rate Limit Metrics (pkg/ratelimit):
//   - listsync_rate_limit_remaining (Gauge): Requests left in the current window
//   - listsync_rate_limit_blocks_total (Counter): Requests blocked at critical quota
//   - listsync_rate_limit_throttles_total (Counter): Requests throttled at low quota
//
// Example Prometheus Queries:
//
//   # Stale response rate
//   rate(listsync_fetch_total{outcome="stale"}[5m]) / rate(listsync_fetch_total[5m])
//
//   # Quota status
//   listsync_rate_limit_remaining < 20
//
//   # P95 transport latency
//   histogram_quantile(0.95, rate(listsync_http_request_duration_seconds_bucket[5m]))
