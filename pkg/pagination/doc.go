// Package pagination provides parallel batch fetching of paginated
// movie API resources.
//
// The movie API reports total_pages in each response envelope. This
// package fetches page 1 to learn the total, then distributes the
// remaining pages across a small worker pool. Retry policy lives
// entirely inside the page fetcher (the resilient client); the batch
// layer never reissues a page itself.
//
// Example usage:
//
//	fetcher := pagination.NewBatchFetcher(svc.PopularFetcher(), pagination.DefaultConfig())
//	pages, err := fetcher.FetchAllPages(ctx, 0)
//
// Failed pages are logged and omitted from the result map; the first
// worker error is returned alongside the partial data.
package pagination
