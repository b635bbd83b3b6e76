package pagination

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel page requests
	MaxConcurrency int
	// Timeout per page fetch
	Timeout time.Duration
	// BufferSize for the page and result channels
	BufferSize int
}

// DefaultConfig returns safe defaults for the movie API.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
		BufferSize:     50,
	}
}

// PageFetcher fetches a single page of a paginated resource and
// reports the total page count from the response envelope. Each page
// fetch carries its own retry policy inside the fetcher; the batch
// layer adds none of its own.
type PageFetcher interface {
	FetchPage(ctx context.Context, page int) (data json.RawMessage, totalPages int, err error)
}

// PageResult is the outcome of fetching one page.
type PageResult struct {
	PageNumber int
	Data       json.RawMessage
	Error      error
}

// BatchFetcher fetches all pages of a paginated resource in parallel.
type BatchFetcher struct {
	fetcher PageFetcher
	config  Config
}

// NewBatchFetcher creates a batch fetcher over a single-page fetcher.
func NewBatchFetcher(fetcher PageFetcher, config Config) *BatchFetcher {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 50
	}

	return &BatchFetcher{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchAllPages fetches every page of the resource, up to maxPages
// (0 for no limit). Returns a map of page number to payload; failed
// pages are logged and omitted, and the first worker error is returned
// alongside the partial results.
func (bf *BatchFetcher) FetchAllPages(ctx context.Context, maxPages int) (map[int]json.RawMessage, error) {
	start := time.Now()

	firstPage, totalPages, err := bf.fetcher.FetchPage(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("fetch first page: %w", err)
	}
	if maxPages > 0 && totalPages > maxPages {
		totalPages = maxPages
	}

	log.Debug().
		Int("total_pages", totalPages).
		Msg("Starting parallel page fetch")

	results := map[int]json.RawMessage{1: firstPage}
	if totalPages <= 1 {
		return results, nil
	}
	var resultsMutex sync.Mutex

	pageQueue := make(chan int, bf.config.BufferSize)
	pageResults := make(chan PageResult, bf.config.BufferSize)
	workerErrs := make(chan error, bf.config.MaxConcurrency)

	// done unblocks the producer when the workers have all exited early;
	// without it a failed batch with more pages than the queue buffer
	// leaves the producer parked on the send forever.
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(pageQueue)
		for page := 2; page <= totalPages; page++ {
			select {
			case pageQueue <- page:
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < bf.config.MaxConcurrency; i++ {
		wg.Add(1)
		go bf.worker(ctx, pageQueue, pageResults, workerErrs, &wg)
	}

	go func() {
		wg.Wait()
		close(pageResults)
		close(workerErrs)
	}()

	fetched := 1
	for result := range pageResults {
		if result.Error != nil {
			log.Warn().
				Err(result.Error).
				Int("page", result.PageNumber).
				Msg("Page fetch failed")
			continue
		}

		resultsMutex.Lock()
		results[result.PageNumber] = result.Data
		fetched++
		resultsMutex.Unlock()
	}

	select {
	case err := <-workerErrs:
		if err != nil {
			return results, fmt.Errorf("worker error (partial data: %d/%d pages): %w", fetched, totalPages, err)
		}
	default:
	}

	log.Debug().
		Int("pages", fetched).
		Int("total", totalPages).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return results, nil
}

// worker processes pages from the queue until it drains, the context
// is cancelled, or a fetch fails.
func (bf *BatchFetcher) worker(ctx context.Context, pageQueue <-chan int, results chan<- PageResult, errs chan<- error, wg *sync.WaitGroup) {
	defer wg.Done()

	for pageNum := range pageQueue {
		select {
		case <-ctx.Done():
			return
		default:
		}

		pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
		data, _, err := bf.fetcher.FetchPage(pageCtx, pageNum)
		cancel()

		if err != nil {
			select {
			case errs <- err:
			default:
			}
			results <- PageResult{PageNumber: pageNum, Error: err}
			return
		}

		results <- PageResult{PageNumber: pageNum, Data: data}
	}
}
