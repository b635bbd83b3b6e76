package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks fresh entries served from the cache
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tmdb_cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	// CacheMisses tracks misses (absent, expired, or unreadable entries)
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tmdb_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// CacheEvictions tracks expired entries removed lazily on read
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tmdb_cache_evictions_total",
			Help: "Total number of expired cache entries evicted on read",
		},
	)

	// CacheErrors tracks swallowed store/serialization errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tmdb_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "clear"
	)
)
