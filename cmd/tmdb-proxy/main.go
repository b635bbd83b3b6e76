// Command tmdb-proxy exposes the cached movie query functions over a
// small local HTTP facade.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/cinedeck/tmdb-client/pkg/cache"
	"github.com/cinedeck/tmdb-client/pkg/client"
	"github.com/cinedeck/tmdb-client/pkg/history"
	"github.com/cinedeck/tmdb-client/pkg/logging"
	"github.com/cinedeck/tmdb-client/pkg/movies"
	"github.com/cinedeck/tmdb-client/pkg/pagination"
	"github.com/cinedeck/tmdb-client/pkg/store"
)

// fallbackBearerToken is the build-time default credential, used when
// no token is configured. Override with TMDB_PROXY_BEARER_TOKEN.
const fallbackBearerToken = "eyJhbGciOiJIUzI1NiJ9.demo-read-only-token"

type config struct {
	Port        string
	BaseURL     string
	BearerToken string
	Store       string // bolt | redis | memory
	StorePath   string
	RedisURL    string
	LogLevel    string
	LogPretty   bool
}

func loadConfig() config {
	v := viper.New()
	v.SetDefault("port", "8080")
	v.SetDefault("base_url", client.DefaultBaseURL)
	v.SetDefault("bearer_token", fallbackBearerToken)
	v.SetDefault("store", "bolt")
	v.SetDefault("store_path", defaultStorePath())
	v.SetDefault("redis_url", "localhost:6379")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)

	v.SetEnvPrefix("TMDB_PROXY")
	v.AutomaticEnv()

	v.SetConfigName("tmdb-proxy")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/tmdb-proxy")
	_ = v.ReadInConfig() // config file is optional

	return config{
		Port:        v.GetString("port"),
		BaseURL:     v.GetString("base_url"),
		BearerToken: v.GetString("bearer_token"),
		Store:       v.GetString("store"),
		StorePath:   v.GetString("store_path"),
		RedisURL:    v.GetString("redis_url"),
		LogLevel:    v.GetString("log_level"),
		LogPretty:   v.GetBool("log_pretty"),
	}
}

func defaultStorePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "tmdb-proxy", "store.db")
}

func openStore(cfg config) (store.Store, error) {
	switch cfg.Store {
	case "bolt":
		return store.NewBoltStore(cfg.StorePath)
	case "redis":
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisURL, err)
		}
		return store.NewRedisStore(redisClient), nil
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store)
	}
}

func main() {
	cfg := loadConfig()

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
	})

	kv, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer kv.Close()

	clientCfg := client.DefaultConfig(cfg.BearerToken)
	clientCfg.BaseURL = cfg.BaseURL
	apiClient, err := client.New(clientCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create API client")
	}

	svc := movies.New(apiClient, cache.New(kv))
	searches := history.New(kv)

	mux := newMux(svc, searches)

	addr := ":" + cfg.Port
	log.Info().
		Str("addr", addr).
		Str("store", cfg.Store).
		Str("base_url", cfg.BaseURL).
		Msg("Starting tmdb-proxy")

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// newMux builds the proxy routes.
func newMux(svc *movies.Service, searches *history.Store) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /movies/popular", popularHandler(svc))
	mux.HandleFunc("GET /movies/genres", genresHandler(svc))
	mux.HandleFunc("GET /movies/search", searchHandler(svc, searches))
	mux.HandleFunc("GET /movies/discover", discoverHandler(svc))
	mux.HandleFunc("GET /movies/{id}", detailsHandler(svc))
	mux.HandleFunc("GET /movies/{id}/credits", creditsHandler(svc))
	mux.HandleFunc("GET /movies/{id}/similar", similarHandler(svc))
	mux.HandleFunc("GET /movies/{id}/videos", videosHandler(svc))
	mux.HandleFunc("GET /movies/{id}/trailer", trailerHandler(svc))

	mux.HandleFunc("GET /history", historyHandler(searches))
	mux.HandleFunc("DELETE /history", clearHistoryHandler(searches))

	mux.HandleFunc("DELETE /cache", clearCacheHandler(svc))
	mux.HandleFunc("POST /prefetch/popular", prefetchPopularHandler(svc))

	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func popularHandler(svc *movies.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := svc.Popular(r.Context(), queryPage(r))
		respond(w, raw, err)
	}
}

func genresHandler(svc *movies.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		genres, err := svc.Genres(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, genres)
	}
}

func searchHandler(svc *movies.Service, searches *history.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("query")
		raw, err := svc.Search(r.Context(), query, queryPage(r))
		if err != nil {
			writeError(w, err)
			return
		}
		// Record only committed, successful searches.
		searches.Add(r.Context(), query)
		writeRaw(w, raw)
	}
}

func discoverHandler(svc *movies.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		genreID, err := strconv.Atoi(r.URL.Query().Get("genre"))
		if err != nil {
			http.Error(w, "invalid genre parameter", http.StatusBadRequest)
			return
		}
		raw, svcErr := svc.DiscoverByGenre(r.Context(), genreID, queryPage(r))
		respond(w, raw, svcErr)
	}
}

func detailsHandler(svc *movies.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		raw, err := svc.Details(r.Context(), id)
		respond(w, raw, err)
	}
}

func creditsHandler(svc *movies.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		raw, err := svc.Credits(r.Context(), id)
		respond(w, raw, err)
	}
}

func similarHandler(svc *movies.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		raw, err := svc.Similar(r.Context(), id, queryPage(r))
		respond(w, raw, err)
	}
}

func videosHandler(svc *movies.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		raw, err := svc.Videos(r.Context(), id)
		respond(w, raw, err)
	}
}

func trailerHandler(svc *movies.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		trailer, err := svc.Trailer(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		if trailer == nil {
			http.Error(w, "no trailer available", http.StatusNotFound)
			return
		}
		writeJSON(w, trailer)
	}
}

func historyHandler(searches *history.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := history.MaxItems
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil {
				limit = n
			}
		}
		writeJSON(w, searches.Recent(r.Context(), limit))
	}
}

func clearHistoryHandler(searches *history.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if query := r.URL.Query().Get("query"); query != "" {
			searches.Remove(r.Context(), query)
		} else {
			searches.Clear(r.Context())
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func clearCacheHandler(svc *movies.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.ClearCache(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}
}

// prefetchPopularHandler warms the cache with every popular page in
// parallel. Per-page retries happen inside the client; the batch adds
// none.
func prefetchPopularHandler(svc *movies.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		maxPages := 0
		if raw := r.URL.Query().Get("max_pages"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil {
				maxPages = n
			}
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
		defer cancel()

		fetcher := pagination.NewBatchFetcher(svc.PopularFetcher(), pagination.DefaultConfig())
		pages, err := fetcher.FetchAllPages(ctx, maxPages)
		if err != nil {
			log.Warn().Err(err).Int("pages", len(pages)).Msg("Prefetch incomplete")
		}
		writeJSON(w, map[string]int{"pages_fetched": len(pages)})
	}
}

func queryPage(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		http.Error(w, "invalid movie id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func respond(w http.ResponseWriter, raw json.RawMessage, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeRaw(w, raw)
}

func writeRaw(w http.ResponseWriter, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}

// writeError maps client errors through with their upstream status and
// everything else to 502.
func writeError(w http.ResponseWriter, err error) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		http.Error(w, apiErr.Message, apiErr.StatusCode)
		return
	}
	http.Error(w, fmt.Sprintf("upstream request failed: %v", err), http.StatusBadGateway)
}
