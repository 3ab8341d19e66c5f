// Package pagination fetches every page of a paginated market API endpoint.
//
// Paginated endpoints answer with a {"items": [...], "pageCount": N} body.
// The fetcher requests page 1 to learn the page count, then requests pages
// 2..N concurrently and concatenates the items in page order, whatever order
// the pages complete in.
//
// Example usage:
//
//	fetcher := pagination.NewFetcher(marketClient, pagination.DefaultConfig(), logger)
//	items, err := fetcher.FetchAll(ctx, "/market/types/", nil)
//
// The fetcher:
//   - Fetches page 1 to determine the page count
//   - Fans out pages 2..N with an errgroup
//   - Stores each page at its own slot so reassembly is by page number
//   - Fails the whole fetch when any page fails
//
// Concurrency is bounded by the rate limiter behind the PageFetcher, so the
// fan-out itself is unbounded unless MaxConcurrency is set.
package pagination
