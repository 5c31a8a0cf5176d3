// Package metrics provides the centralized Prometheus metrics registry for
// the scraper. All metrics are defined in their respective packages
// (keyring, rotation, scrape, cache) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the scraper.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Key Usage Metrics (pkg/keyring):
//   - scraper_key_usage_total{key} (Counter): Call attempts per key slot since process start
//   - scraper_key_calls_period{key} (Gauge): Call attempts per key slot in the current period
//   - scraper_key_pool_size (Gauge): Active keys in the rotation pool
//
// Rotation Metrics (pkg/rotation):
//   - scraper_key_selections_total{policy} (Counter): Selections by policy (peak, conserve)
//   - scraper_degraded_selections_total (Counter): Selections that returned fewer keys than requested
//
// Search Call Metrics (pkg/scrape):
//   - scraper_search_requests_total{key, status} (Counter): Calls by key slot and HTTP status
//   - scraper_search_request_duration_seconds{key} (Histogram): Call duration by key slot
//
// Batch Metrics (pkg/scrape):
//   - scraper_batches_total{mode} (Counter): Batches by mode (parallel, sequential)
//   - scraper_batch_calls_total{mode, result} (Counter): Batch calls by mode and result (success, failure)
//
// Cache Metrics (pkg/cache):
//   - scraper_cache_hits_total (Counter): Search cache hits
//   - scraper_cache_misses_total (Counter): Search cache misses
//   - scraper_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   rate(scraper_cache_hits_total[5m]) /
//   (rate(scraper_cache_hits_total[5m]) + rate(scraper_cache_misses_total[5m]))
//
//   # Keys Approaching a 10000-Call Monthly Limit
//   scraper_key_calls_period > 8000
//
//   # Batch Failure Rate by Mode
//   rate(scraper_batch_calls_total{result="failure"}[5m]) /
//   rate(scraper_batch_calls_total[5m])
//
//   # Degraded Selection Rate
//   rate(scraper_degraded_selections_total[15m])
//
//   # P95 Call Latency
//   histogram_quantile(0.95, rate(scraper_search_request_duration_seconds_bucket[5m]))
