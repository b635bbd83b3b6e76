package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cinedeck/tmdb-client/pkg/store"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DataPrefix namespaces payload sub-keys in the backing store.
	DataPrefix = "moviecache:data:"

	// ExpiryPrefix namespaces expiry-record sub-keys in the backing store.
	ExpiryPrefix = "moviecache:exp:"
)

// expiryRecord is the small JSON blob stored under the expiry sub-key.
// StoredAt is kept for debugging visibility only; validity is decided
// by ExpiresAt alone.
type expiryRecord struct {
	StoredAt  int64 `json:"stored_at"`
	ExpiresAt int64 `json:"expires_at"`
}

// Cache is a time-boxed cache over a key-value store.
//
// Every logical key maps to two store sub-keys: the JSON payload and a
// small expiry record. An entry is valid iff now < expiresAt; an expired
// entry is deleted by the read that discovers it (lazy eviction, no
// background sweep).
//
// The cache is an optimization, never a correctness dependency: every
// store or serialization failure degrades to a miss on read and a no-op
// on write. No method returns an error.
type Cache struct {
	store  store.Store
	logger zerolog.Logger

	// now is the clock, overridable in tests.
	now func() time.Time
}

// New creates a cache over the given store.
func New(s store.Store) *Cache {
	if s == nil {
		panic("store cannot be nil")
	}
	return &Cache{
		store:  s,
		logger: log.With().Str("component", "cache").Logger(),
		now:    time.Now,
	}
}

// SetClock overrides the cache clock (for testing).
func (c *Cache) SetClock(now func() time.Time) {
	c.now = now
}

// Set stores value under key with the given TTL. Failures are logged
// and swallowed; the caller proceeds as if nothing was cached.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to marshal cache payload")
		return
	}

	now := c.now()
	record, err := json.Marshal(expiryRecord{
		StoredAt:  now.UnixMilli(),
		ExpiresAt: now.Add(ttl).UnixMilli(),
	})
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return
	}

	pairs := []store.Pair{
		{Key: DataPrefix + key, Value: string(payload)},
		{Key: ExpiryPrefix + key, Value: string(record)},
	}
	if err := c.store.MultiSet(ctx, pairs); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to write cache entry")
		return
	}

	c.logger.Debug().Str("key", key).Dur("ttl", ttl).Msg("Cached entry")
}

// Get reads the entry for key into dest. Returns false on a miss, an
// expired entry, or any store/deserialization error.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) bool {
	values, err := c.store.MultiGet(ctx, []string{DataPrefix + key, ExpiryPrefix + key})
	if err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		c.logger.Warn().Err(err).Str("key", key).Msg("Cache read error")
		CacheMisses.Inc()
		return false
	}

	// Either sub-key missing counts as a miss: a crash between the two
	// writes of Set can leave one without the other.
	if len(values) != 2 || !values[0].OK || !values[1].OK {
		CacheMisses.Inc()
		return false
	}

	var record expiryRecord
	if err := json.Unmarshal([]byte(values[1].Value), &record); err != nil {
		c.evict(ctx, key)
		CacheMisses.Inc()
		return false
	}

	if !c.now().Before(time.UnixMilli(record.ExpiresAt)) {
		c.evict(ctx, key)
		CacheEvictions.Inc()
		CacheMisses.Inc()
		c.logger.Debug().Str("key", key).Msg("Evicted expired cache entry")
		return false
	}

	if err := json.Unmarshal([]byte(values[0].Value), dest); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		c.logger.Warn().Err(err).Str("key", key).Msg("Malformed cache payload")
		CacheMisses.Inc()
		return false
	}

	CacheHits.Inc()
	return true
}

// IsValid reports whether key holds a fresh entry, without
// deserializing the payload. Both sub-keys must be present: an entry a
// Get would miss is never reported valid.
func (c *Cache) IsValid(ctx context.Context, key string) bool {
	values, err := c.store.MultiGet(ctx, []string{DataPrefix + key, ExpiryPrefix + key})
	if err != nil {
		return false
	}
	if len(values) != 2 || !values[0].OK || !values[1].OK {
		return false
	}
	var record expiryRecord
	if err := json.Unmarshal([]byte(values[1].Value), &record); err != nil {
		return false
	}
	return c.now().Before(time.UnixMilli(record.ExpiresAt))
}

// Remove deletes both sub-keys for key unconditionally.
func (c *Cache) Remove(ctx context.Context, key string) {
	c.evict(ctx, key)
}

// ClearAll removes every cache entry, leaving unrelated store keys
// untouched.
func (c *Cache) ClearAll(ctx context.Context) {
	keys, err := c.store.GetAllKeys(ctx)
	if err != nil {
		CacheErrors.WithLabelValues("clear").Inc()
		c.logger.Warn().Err(err).Msg("Failed to list store keys for clear")
		return
	}

	var owned []string
	for _, key := range keys {
		if strings.HasPrefix(key, DataPrefix) || strings.HasPrefix(key, ExpiryPrefix) {
			owned = append(owned, key)
		}
	}
	if len(owned) == 0 {
		return
	}

	if err := c.store.MultiRemove(ctx, owned); err != nil {
		CacheErrors.WithLabelValues("clear").Inc()
		c.logger.Warn().Err(err).Msg("Failed to clear cache entries")
		return
	}
	c.logger.Debug().Int("entries", len(owned)).Msg("Cleared cache")
}

// evict removes both sub-keys, ignoring failure.
func (c *Cache) evict(ctx context.Context, key string) {
	if err := c.store.MultiRemove(ctx, []string{DataPrefix + key, ExpiryPrefix + key}); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("Cache eviction failed")
	}
}
