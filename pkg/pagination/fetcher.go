package pagination

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// PageParam is the query parameter that selects a page.
const PageParam = "page"

// Config holds fetcher configuration.
type Config struct {
	// MaxConcurrency caps in-flight page fetches. Zero leaves the fan-out
	// unbounded and relies on the rate limiter.
	MaxConcurrency int `yaml:"max_concurrency"`

	// ProgressEvery logs progress after this many completed pages.
	ProgressEvery int `yaml:"progress_every"`
}

// DefaultConfig returns the fetcher configuration used against the market API.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 0,
		ProgressEvery:  50,
	}
}

// PageFetcher fetches a single page body. Implementations are expected to
// retry on their own; an error here is terminal for the page.
type PageFetcher interface {
	FetchPage(ctx context.Context, path string, query url.Values) (json.RawMessage, error)
}

// Page is the envelope of a paginated response.
type Page struct {
	Items      []json.RawMessage `json:"items"`
	PageCount  int               `json:"pageCount"`
	TotalCount int               `json:"totalCount,omitempty"`
}

// DecodePage parses a paginated response body. A missing page count means
// the endpoint has a single page.
func DecodePage(body json.RawMessage) (*Page, error) {
	var page Page
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	if page.PageCount < 1 {
		page.PageCount = 1
	}
	return &page, nil
}

// Fetcher assembles complete item lists from paginated endpoints.
type Fetcher struct {
	fetcher PageFetcher
	config  Config
	logger  zerolog.Logger
}

// NewFetcher creates a new page fetcher.
func NewFetcher(fetcher PageFetcher, config Config, logger zerolog.Logger) *Fetcher {
	if config.MaxConcurrency < 0 {
		config.MaxConcurrency = 0
	}
	if config.ProgressEvery <= 0 {
		config.ProgressEvery = 50
	}

	return &Fetcher{
		fetcher: fetcher,
		config:  config,
		logger:  logger,
	}
}

// FetchAll returns the items of every page of path, page 1 first.
func (f *Fetcher) FetchAll(ctx context.Context, path string, query url.Values) ([]json.RawMessage, error) {
	start := time.Now()

	first, err := f.fetch(ctx, path, query, 1)
	if err != nil {
		return nil, fmt.Errorf("fetch first page of %s: %w", path, err)
	}

	totalPages := first.PageCount
	if totalPages == 1 {
		f.logger.Debug().
			Str("path", path).
			Int("items", len(first.Items)).
			Dur("duration", time.Since(start)).
			Msg("Fetch complete (single page)")
		return first.Items, nil
	}

	f.logger.Debug().
		Str("path", path).
		Int("total_pages", totalPages).
		Msg("Starting parallel page fetch")

	rest := make([][]json.RawMessage, totalPages-1)
	var done progressCounter

	g, gctx := errgroup.WithContext(ctx)
	if f.config.MaxConcurrency > 0 {
		g.SetLimit(f.config.MaxConcurrency)
	}
	for pageNum := 2; pageNum <= totalPages; pageNum++ {
		pageNum := pageNum
		g.Go(func() error {
			page, err := f.fetch(gctx, path, query, pageNum)
			if err != nil {
				return fmt.Errorf("fetch page %d of %s: %w", pageNum, path, err)
			}
			rest[pageNum-2] = page.Items

			if n := done.inc(); n%f.config.ProgressEvery == 0 {
				f.logger.Info().
					Str("path", path).
					Int("fetched", n+1).
					Int("total", totalPages).
					Msg("Fetch progress")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		f.logger.Warn().
			Err(err).
			Str("path", path).
			Msg("Paginated fetch failed")
		return nil, err
	}

	size := len(first.Items)
	for _, items := range rest {
		size += len(items)
	}
	items := make([]json.RawMessage, 0, size)
	items = append(items, first.Items...)
	for _, pageItems := range rest {
		items = append(items, pageItems...)
	}

	f.logger.Debug().
		Str("path", path).
		Int("pages", totalPages).
		Int("items", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return items, nil
}

func (f *Fetcher) fetch(ctx context.Context, path string, query url.Values, pageNum int) (*Page, error) {
	body, err := f.fetcher.FetchPage(ctx, path, WithPage(query, pageNum))
	if err != nil {
		return nil, err
	}
	return DecodePage(body)
}

// WithPage returns a copy of query selecting pageNum.
func WithPage(query url.Values, pageNum int) url.Values {
	out := make(url.Values, len(query)+1)
	for key, values := range query {
		out[key] = append([]string(nil), values...)
	}
	out.Set(PageParam, strconv.Itoa(pageNum))
	return out
}

type progressCounter struct {
	n atomic.Int64
}

func (c *progressCounter) inc() int {
	return int(c.n.Add(1))
}
