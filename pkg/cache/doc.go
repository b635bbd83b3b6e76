// Package cache provides a time-boxed cache for movie API responses
// over a pluggable key-value store.
//
// Each logical key is stored as two namespaced sub-keys: the JSON
// payload ("moviecache:data:<key>") and a small expiry record
// ("moviecache:exp:<key>"). Splitting the two lets IsValid check
// freshness without deserializing the payload, and makes a partial
// write (crash between the two Set writes) indistinguishable from a
// miss.
//
// Entries are evicted lazily: the read that finds an expired entry
// removes both sub-keys. There is no background sweep.
//
// # Basic Usage
//
//	kv, _ := store.NewBoltStore("/var/lib/tmdb/cache.db")
//	c := cache.New(kv)
//
//	key := cache.Key{Resource: "details", ID: 603}.String()
//	c.Set(ctx, key, payload, 60*time.Minute)
//
//	var out json.RawMessage
//	if c.Get(ctx, key, &out) {
//		// fresh hit
//	}
//
// # Failure Policy
//
// The cache is fail-open. Store errors, malformed records, and
// serialization failures are logged, counted, and reported as misses;
// no method returns an error to the caller.
//
// # Metrics
//
//   - tmdb_cache_hits_total - Fresh entries served
//   - tmdb_cache_misses_total - Misses of any cause
//   - tmdb_cache_evictions_total - Expired entries removed on read
//   - tmdb_cache_errors_total{operation} - Swallowed errors
package cache
