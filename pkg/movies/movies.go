// Package movies provides the per-resource query functions that
// compose the resilient API client with the time-boxed cache.
package movies

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cinedeck/tmdb-client/pkg/cache"
	"github.com/cinedeck/tmdb-client/pkg/client"
	"github.com/cinedeck/tmdb-client/pkg/pagination"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Per-resource cache TTLs.
const (
	TTLPopular = 30 * time.Minute
	TTLDetails = 60 * time.Minute
	TTLGenres  = 24 * time.Hour
	TTLSearch  = 15 * time.Minute
	TTLByGenre = 30 * time.Minute
	TTLCredits = 60 * time.Minute
	TTLSimilar = 30 * time.Minute
	TTLVideos  = 60 * time.Minute
)

// Genre is one entry of the genre list.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Video is one entry of a movie's videos response.
type Video struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
	Site string `json:"site"`
	Type string `json:"type"`
}

// Service exposes one query function per logical resource. Each checks
// the cache, fetches through the resilient client on a miss, writes the
// result back with the resource's TTL, and propagates only terminal
// client errors. Payloads are passed through opaquely as raw JSON.
type Service struct {
	client *client.Client
	cache  *cache.Cache
	logger zerolog.Logger
}

// New creates a movie query service.
func New(c *client.Client, ca *cache.Cache) *Service {
	if c == nil || ca == nil {
		panic("client and cache are required")
	}
	return &Service{
		client: c,
		cache:  ca,
		logger: log.With().Str("component", "movies").Logger(),
	}
}

// Popular returns one page of the popular list. Every page is cached:
// the popular list is revisited constantly and has few pages of real
// interest.
func (s *Service) Popular(ctx context.Context, page int) (json.RawMessage, error) {
	page = normalizePage(page)
	key := cache.Key{Resource: "popular", Page: page}.String()
	return s.fetch(ctx, "popular", key, true, TTLPopular,
		"/movie/popular", url.Values{"page": {strconv.Itoa(page)}})
}

// Details returns the full record for one movie.
func (s *Service) Details(ctx context.Context, id int) (json.RawMessage, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid movie id %d", id)
	}
	key := cache.Key{Resource: "details", ID: id}.String()
	return s.fetch(ctx, "details", key, true, TTLDetails,
		"/movie/"+strconv.Itoa(id), nil)
}

// Genres returns the genre list, extracted from the singleton
// genre-list response.
func (s *Service) Genres(ctx context.Context) ([]Genre, error) {
	key := cache.Key{Resource: "genres"}.String()
	raw, err := s.fetch(ctx, "genres", key, true, TTLGenres,
		"/genre/movie/list", nil)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Genres []Genre `json:"genres"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode genre list: %w", err)
	}
	return envelope.Genres, nil
}

// Search returns one page of results for a text query. Only the first
// page is cached: deeper pages are loaded incrementally on scroll and
// rarely revisited, while page 1 is re-requested on back-navigation
// and repeated identical queries.
//
// The normalized query shapes only the cache key; the API receives the
// user's text as typed, trimmed.
func (s *Service) Search(ctx context.Context, query string, page int) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(query)
	normalized := cache.NormalizeQuery(query)
	if normalized == "" {
		return nil, fmt.Errorf("empty search query")
	}
	page = normalizePage(page)

	key := cache.Key{Resource: "search", Query: normalized, Page: page}.String()
	return s.fetch(ctx, "search", key, page == 1, TTLSearch,
		"/search/movie", url.Values{"query": {trimmed}, "page": {strconv.Itoa(page)}})
}

// DiscoverByGenre returns one page of movies for a genre. First page
// only is cached, as for Search.
func (s *Service) DiscoverByGenre(ctx context.Context, genreID, page int) (json.RawMessage, error) {
	if genreID <= 0 {
		return nil, fmt.Errorf("invalid genre id %d", genreID)
	}
	page = normalizePage(page)

	key := cache.Key{Resource: "genre-movies", ID: genreID, Page: page}.String()
	return s.fetch(ctx, "discover_by_genre", key, page == 1, TTLByGenre,
		"/discover/movie", url.Values{"with_genres": {strconv.Itoa(genreID)}, "page": {strconv.Itoa(page)}})
}

// Credits returns the cast and crew for one movie.
func (s *Service) Credits(ctx context.Context, id int) (json.RawMessage, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid movie id %d", id)
	}
	key := cache.Key{Resource: "credits", ID: id}.String()
	return s.fetch(ctx, "credits", key, true, TTLCredits,
		"/movie/"+strconv.Itoa(id)+"/credits", nil)
}

// Similar returns one page of movies similar to the given one. First
// page only is cached.
func (s *Service) Similar(ctx context.Context, id, page int) (json.RawMessage, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid movie id %d", id)
	}
	page = normalizePage(page)

	key := cache.Key{Resource: "similar", ID: id, Page: page}.String()
	return s.fetch(ctx, "similar", key, page == 1, TTLSimilar,
		"/movie/"+strconv.Itoa(id)+"/similar", url.Values{"page": {strconv.Itoa(page)}})
}

// Videos returns the raw videos response for one movie.
func (s *Service) Videos(ctx context.Context, id int) (json.RawMessage, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid movie id %d", id)
	}
	key := cache.Key{Resource: "videos", ID: id}.String()
	return s.fetch(ctx, "videos", key, true, TTLVideos,
		"/movie/"+strconv.Itoa(id)+"/videos", nil)
}

// Trailer returns the movie's first YouTube trailer, or nil if it has
// none.
func (s *Service) Trailer(ctx context.Context, id int) (*Video, error) {
	raw, err := s.Videos(ctx, id)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Results []Video `json:"results"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode videos: %w", err)
	}

	for _, video := range envelope.Results {
		if video.Type == "Trailer" && video.Site == "YouTube" {
			v := video
			return &v, nil
		}
	}
	return nil, nil
}

// ClearCache drops every cached response, leaving history and other
// store keys untouched.
func (s *Service) ClearCache(ctx context.Context) {
	s.cache.ClearAll(ctx)
}

// fetch is the cache-then-network path shared by all query functions.
// Nothing is cached on failure.
func (s *Service) fetch(ctx context.Context, op, key string, cacheable bool, ttl time.Duration, path string, query url.Values) (json.RawMessage, error) {
	if cacheable {
		var cached json.RawMessage
		if s.cache.Get(ctx, key, &cached) {
			s.logger.Debug().Str("operation", op).Str("key", key).Msg("Served from cache")
			return cached, nil
		}
	}

	body, err := s.client.Get(ctx, op, path, query)
	if err != nil {
		s.logger.Warn().Err(err).Str("operation", op).Str("key", key).Msg("Fetch failed")
		return nil, err
	}

	if cacheable {
		s.cache.Set(ctx, key, json.RawMessage(body), ttl)
	}
	return body, nil
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// pageEnvelope carries the pagination fields of a list response.
type pageEnvelope struct {
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
}

// popularFetcher adapts Popular to the batch fetcher interface.
type popularFetcher struct {
	s *Service
}

func (f popularFetcher) FetchPage(ctx context.Context, page int) (json.RawMessage, int, error) {
	raw, err := f.s.Popular(ctx, page)
	if err != nil {
		return nil, 0, err
	}
	var envelope pageEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, 0, fmt.Errorf("decode page envelope: %w", err)
	}
	return raw, envelope.TotalPages, nil
}

// PopularFetcher exposes the popular list to pagination.BatchFetcher
// for prefetching every page into the cache.
func (s *Service) PopularFetcher() pagination.PageFetcher {
	return popularFetcher{s: s}
}
