// Package history provides the bounded, deduplicated recent-search
// history over the key-value store.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/cinedeck/tmdb-client/pkg/store"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// storeKey holds the whole history list as one JSON blob.
	storeKey = "history:searches"

	// MaxItems bounds the retained history.
	MaxItems = 10
)

// Item is one remembered search.
type Item struct {
	// Query is the original-case user text, trimmed.
	Query string `json:"query"`

	RecordedAt time.Time `json:"recorded_at"`
}

// Store keeps at most MaxItems searches, most recent first, with at
// most one entry per distinct lowercase query.
//
// Add is a read-modify-write of the whole blob: two overlapping Adds
// from different callers can interleave and the later write wins
// wholesale. There is one UI-driven caller at a time, so no
// serialization is added here.
//
// All operations fail open: a store error logs and behaves as an empty
// history, never as an error to the caller.
type Store struct {
	store  store.Store
	logger zerolog.Logger

	// now is the clock, overridable in tests.
	now func() time.Time
}

// New creates a history store over the given key-value store.
func New(s store.Store) *Store {
	if s == nil {
		panic("store cannot be nil")
	}
	return &Store{
		store:  s,
		logger: log.With().Str("component", "history").Logger(),
		now:    time.Now,
	}
}

// Add records a search. A re-submitted query (case-insensitive match)
// replaces its old entry at the front with the new casing and
// timestamp; entries beyond MaxItems are silently dropped.
// Empty or whitespace-only queries are ignored.
func (h *Store) Add(ctx context.Context, query string) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return
	}
	lowered := strings.ToLower(trimmed)

	items := h.load(ctx)

	kept := items[:0]
	for _, item := range items {
		if strings.ToLower(item.Query) != lowered {
			kept = append(kept, item)
		}
	}

	items = append([]Item{{Query: trimmed, RecordedAt: h.now()}}, kept...)
	if len(items) > MaxItems {
		items = items[:MaxItems]
	}

	h.save(ctx, items)
}

// All returns every remembered search, most recent first.
func (h *Store) All(ctx context.Context) []Item {
	items := h.load(ctx)

	// Defensive: insertion order already guarantees this, but tolerate
	// blobs written out of order by a prior version.
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].RecordedAt.After(items[j].RecordedAt)
	})

	return items
}

// Recent returns up to limit query strings, most recent first.
func (h *Store) Recent(ctx context.Context, limit int) []string {
	items := h.All(ctx)
	if limit >= 0 && len(items) > limit {
		items = items[:limit]
	}

	queries := make([]string, len(items))
	for i, item := range items {
		queries[i] = item.Query
	}
	return queries
}

// Remove deletes entries matching query case-insensitively. Idempotent
// if no entry matches.
func (h *Store) Remove(ctx context.Context, query string) {
	lowered := strings.ToLower(strings.TrimSpace(query))
	items := h.load(ctx)

	kept := items[:0]
	for _, item := range items {
		if strings.ToLower(item.Query) != lowered {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(items) {
		return
	}

	h.save(ctx, kept)
}

// Clear deletes the entire history.
func (h *Store) Clear(ctx context.Context) {
	if err := h.store.Remove(ctx, storeKey); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to clear search history")
	}
}

func (h *Store) load(ctx context.Context) []Item {
	raw, err := h.store.Get(ctx, storeKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.logger.Warn().Err(err).Msg("Failed to load search history")
		}
		return nil
	}

	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		h.logger.Warn().Err(err).Msg("Malformed search history, starting fresh")
		return nil
	}
	return items
}

func (h *Store) save(ctx context.Context, items []Item) {
	raw, err := json.Marshal(items)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to encode search history")
		return
	}
	if err := h.store.Set(ctx, storeKey, string(raw)); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to persist search history")
	}
}
