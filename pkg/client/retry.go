package client

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for retry operations.
var (
	tmdbRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tmdb_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	tmdbRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tmdb_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5},
	}, []string{"error_class"})

	tmdbRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tmdb_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// attempt carries the retry state of one logical request. It is a
// plain value local to the retry loop; nothing is shared between
// logical requests, so the counter trivially starts at zero for each
// and can never bleed across calls.
type attempt struct {
	retries int
}

// backoff returns the delay before reissuing the request. Growth is
// linear in the retry counter: 1s after the first failure, 2s after
// the second. Not exponential.
func (a attempt) backoff(unit time.Duration) time.Duration {
	return time.Duration(a.retries) * unit
}

// attemptResult is what one issued request produced.
type attemptResult struct {
	body       []byte
	statusCode int
	err        error // transport error, nil if any response arrived
}

// doWithRetry issues fn until it succeeds, fails terminally, or the
// retry budget is spent. Every failed attempt is logged under the
// logical operation name; logging never alters control flow.
func (c *Client) doWithRetry(ctx context.Context, op string, fn func() attemptResult) ([]byte, error) {
	a := attempt{}

	for {
		res := fn()

		class := classify(res.statusCode, res.err)
		if class == "" {
			// Success: the counter for this logical request is reset by
			// construction, a fresh attempt value per call.
			if a.retries > 0 {
				c.logger.Info().
					Str("operation", op).
					Int("retries", a.retries).
					Msg("Request succeeded after retry")
			}
			return res.body, nil
		}

		tmdbErrorsTotal.WithLabelValues(string(class)).Inc()
		c.logger.Warn().
			Str("operation", op).
			Int("status", res.statusCode).
			Str("error_class", string(class)).
			Int("retries_used", a.retries).
			Err(res.err).
			Msg("Request attempt failed")

		failure := attemptError(res, class)

		if !retryEligible(class) {
			// 4xx: repeating the request cannot succeed.
			return nil, failure
		}

		if a.retries >= c.config.MaxRetries {
			tmdbRetryExhaustedTotal.WithLabelValues(string(class)).Inc()
			c.logger.Warn().
				Str("operation", op).
				Int("max_retries", c.config.MaxRetries).
				Msg("Retry attempts exhausted")
			return nil, fmt.Errorf("%w after %d retries: %w", ErrRetryExhausted, c.config.MaxRetries, failure)
		}

		a = attempt{retries: a.retries + 1}
		delay := a.backoff(c.config.BackoffUnit)

		tmdbRetriesTotal.WithLabelValues(string(class)).Inc()
		tmdbRetryBackoffSeconds.WithLabelValues(string(class)).Observe(delay.Seconds())
		c.logger.Debug().
			Str("operation", op).
			Int("retry", a.retries).
			Dur("backoff", delay).
			Msg("Retrying request after backoff")

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(delay):
		}
	}
}

// attemptError builds the error surfaced for a failed attempt.
func attemptError(res attemptResult, class ErrorClass) error {
	if res.err != nil {
		return &APIError{
			Class:   ErrorClassNetwork,
			Message: "no response received",
			Err:     res.err,
		}
	}
	return &APIError{
		StatusCode: res.statusCode,
		Class:      class,
		Message:    statusMessage(res.statusCode),
	}
}
