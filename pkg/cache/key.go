package cache

import (
	"strconv"
	"strings"
)

// Key identifies a cached resource: a resource kind plus the parameters
// that make one response distinct from another (id, page, query).
type Key struct {
	// Resource is the logical resource kind (e.g. "popular", "details").
	Resource string

	// ID is the movie or genre identifier, 0 when not applicable.
	ID int

	// Query is the normalized search query (lowercased, trimmed).
	Query string

	// Page is the result page, 0 for unpaginated resources.
	Page int
}

// String generates a deterministic key string.
// Format: resource[:id][:query][:p<page>]
//
// Examples:
//
//	popular:p1
//	details:603
//	search:dune:p2
//	genre-movies:28:p1
func (k Key) String() string {
	parts := []string{k.Resource}

	if k.ID > 0 {
		parts = append(parts, strconv.Itoa(k.ID))
	}
	if k.Query != "" {
		parts = append(parts, k.Query)
	}
	if k.Page > 0 {
		parts = append(parts, "p"+strconv.Itoa(k.Page))
	}

	return strings.Join(parts, ":")
}

// NormalizeQuery canonicalizes user search text for cache keys and
// history dedup: trimmed and lowercased.
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}
