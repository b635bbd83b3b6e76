// Package metrics provides the centralized Prometheus registry for the
// movie API client. The metrics themselves are defined in their
// respective packages (client, cache) to avoid circular dependencies;
// this package documents them in one place.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - tmdb_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - tmdb_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - tmdb_errors_total{class} (Counter): Errors by class (client, server, network)
//
// Retry Metrics (pkg/client):
//   - tmdb_retries_total{error_class} (Counter): Retry attempts by error class
//   - tmdb_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - tmdb_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Cache Metrics (pkg/cache):
//   - tmdb_cache_hits_total (Counter): Fresh entries served from cache
//   - tmdb_cache_misses_total (Counter): Misses of any cause
//   - tmdb_cache_evictions_total (Counter): Expired entries removed lazily on read
//   - tmdb_cache_errors_total{operation} (Counter): Swallowed cache errors
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   rate(tmdb_cache_hits_total[5m]) /
//   (rate(tmdb_cache_hits_total[5m]) + rate(tmdb_cache_misses_total[5m]))
//
//   # Request Error Rate
//   rate(tmdb_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(tmdb_request_duration_seconds_bucket[5m]))
