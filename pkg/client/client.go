// Package client provides the resilient movie API HTTP client with
// linear-backoff retry and error classification.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for client operations.
var (
	tmdbRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tmdb_requests_total",
		Help: "Total API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	tmdbRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tmdb_request_duration_seconds",
		Help:    "API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	tmdbErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tmdb_errors_total",
		Help: "Total API errors by class",
	}, []string{"class"})
)

const (
	// DefaultBaseURL is the public movie metadata API.
	DefaultBaseURL = "https://api.themoviedb.org/3"

	// DefaultTimeout bounds a single request attempt.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the retry budget per logical request.
	DefaultMaxRetries = 2

	// DefaultBackoffUnit scales the linear backoff: unit * retry number.
	DefaultBackoffUnit = 1 * time.Second
)

// Config holds the client configuration.
type Config struct {
	// BaseURL of the API, without a trailing slash.
	BaseURL string

	// BearerToken is the static API credential.
	BearerToken string

	// Timeout per request attempt.
	Timeout time.Duration

	// MaxRetries is the number of automatic reissues of a failed
	// retry-eligible request. The initial attempt is not counted.
	MaxRetries int

	// BackoffUnit scales the linear retry delay (unit, 2*unit, ...).
	BackoffUnit time.Duration
}

// DefaultConfig returns the standard configuration for a bearer token.
func DefaultConfig(token string) Config {
	return Config{
		BaseURL:     DefaultBaseURL,
		BearerToken: token,
		Timeout:     DefaultTimeout,
		MaxRetries:  DefaultMaxRetries,
		BackoffUnit: DefaultBackoffUnit,
	}
}

// Client is the resilient API client. One instance is bound to one base
// URL and one credential and is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.BearerToken == "" {
		return nil, fmt.Errorf("bearer token is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries must be >= 0 (got %d)", cfg.MaxRetries)
	}
	if cfg.BackoffUnit <= 0 {
		cfg.BackoffUnit = DefaultBackoffUnit
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: log.With().Str("component", "api-client").Logger(),
	}, nil
}

// Get performs a GET against path (e.g. "/movie/popular") with the
// given query parameters, retrying transient failures, and returns the
// raw response body.
//
// op names the logical operation for logs and metrics.
func (c *Client) Get(ctx context.Context, op, path string, query url.Values) ([]byte, error) {
	requestURL := c.config.BaseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	startTime := time.Now()
	defer func() {
		tmdbRequestDuration.WithLabelValues(path).Observe(time.Since(startTime).Seconds())
	}()

	return c.doWithRetry(ctx, op, func() attemptResult {
		// Each attempt reissues an identical request: same method,
		// path, params, and headers.
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return attemptResult{err: err}
		}
		req.Header.Set("Authorization", "Bearer "+c.config.BearerToken)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			tmdbRequestsTotal.WithLabelValues(path, "network_error").Inc()
			return attemptResult{err: err}
		}
		defer resp.Body.Close()

		tmdbRequestsTotal.WithLabelValues(path, fmt.Sprintf("%d", resp.StatusCode)).Inc()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			// Connection dropped mid-body: no usable response.
			return attemptResult{err: err}
		}

		return attemptResult{body: body, statusCode: resp.StatusCode}
	})
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
