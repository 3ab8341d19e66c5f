// Package scraper acquires market metadata and regional order books from the
// market API.
package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/Sternrassler/eve-market-scrape/pkg/market"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// API paths.
const (
	PathRegions     = "/regions/"
	PathMarketTypes = "/market/types/"
)

// ErrRegionNotFound is returned when a region name is not in the metadata.
var ErrRegionNotFound = errors.New("region not found")

// NotFoundError names the region that could not be resolved.
type NotFoundError struct {
	Name string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("region %q not found", e.Name)
}

// Is reports whether target is ErrRegionNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrRegionNotFound
}

// Fetcher is the subset of the API client the scraper needs.
type Fetcher interface {
	FetchWithRetry(ctx context.Context, path string, query url.Values) (json.RawMessage, error)
	FetchPaginated(ctx context.Context, path string, query url.Values) ([]json.RawMessage, error)
	FetchCached(ctx context.Context, path string, query url.Values) (json.RawMessage, error)
}

// Scraper orchestrates metadata and order book scrapes.
type Scraper struct {
	fetcher  Fetcher
	observer Observer
	logger   zerolog.Logger
}

// Option customizes a Scraper.
type Option func(*Scraper)

// WithObserver sets the progress observer.
func WithObserver(observer Observer) Option {
	return func(s *Scraper) {
		s.observer = observer
	}
}

// WithLogger sets the scraper logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Scraper) {
		s.logger = logger
	}
}

// New creates a scraper on top of fetcher.
func New(fetcher Fetcher, opts ...Option) *Scraper {
	s := &Scraper{
		fetcher:  fetcher,
		observer: NopObserver{},
		logger:   log.With().Str("component", "scraper").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type typeRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Href string `json:"href"`
}

type marketTypeItem struct {
	Type typeRef `json:"type"`
}

type typeDetail struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Volume float64 `json:"volume"`
}

// Regions returns every region.
func (s *Scraper) Regions(ctx context.Context) ([]market.RegionMeta, error) {
	items, err := s.fetcher.FetchPaginated(ctx, PathRegions, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch regions: %w", err)
	}
	return decodeItems[market.RegionMeta](items)
}

// MarketTypes returns the references of every type traded on the market.
func (s *Scraper) MarketTypes(ctx context.Context) ([]typeRef, error) {
	items, err := s.fetcher.FetchPaginated(ctx, PathMarketTypes, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch market types: %w", err)
	}

	decoded, err := decodeItems[marketTypeItem](items)
	if err != nil {
		return nil, err
	}
	refs := make([]typeRef, len(decoded))
	for i, item := range decoded {
		refs[i] = item.Type
	}
	return refs, nil
}

// ScrapeMeta fetches regions and market types, then the detail of every
// type. A type whose detail cannot be fetched is dropped from the result.
func (s *Scraper) ScrapeMeta(ctx context.Context) (*market.Meta, error) {
	start := time.Now()

	var regions []market.RegionMeta
	var refs []typeRef

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		regions, err = s.Regions(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		refs, err = s.MarketTypes(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Msg("Metadata scrape failed")
		return nil, err
	}

	s.logger.Info().
		Int("regions", len(regions)).
		Int("types", len(refs)).
		Msg("Fetching type details")

	details := make([]*market.TypeMeta, len(refs))
	counter := newProgress(s.observer, len(refs))

	var wg sync.WaitGroup
	for i, ref := range refs {
		wg.Add(1)
		go func(i int, ref typeRef) {
			defer wg.Done()
			defer counter.tick()

			detail, err := s.typeDetail(ctx, ref)
			if err != nil {
				s.logger.Warn().
					Err(err).
					Int64("type_id", ref.ID).
					Msg("Dropping type without detail")
				s.observer.Log(fmt.Sprintf("dropping type %d: %v", ref.ID, err))
				return
			}
			details[i] = detail
		}(i, ref)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	meta := &market.Meta{
		Regions: regions,
		Types:   make([]market.TypeMeta, 0, len(details)),
	}
	for _, detail := range details {
		if detail != nil {
			meta.Types = append(meta.Types, *detail)
		}
	}
	meta.Reindex()

	s.logger.Info().
		Int("regions", len(meta.Regions)).
		Int("types", len(meta.Types)).
		Int("dropped", len(refs)-len(meta.Types)).
		Dur("duration", time.Since(start)).
		Msg("Metadata scrape complete")

	return meta, nil
}

func (s *Scraper) typeDetail(ctx context.Context, ref typeRef) (*market.TypeMeta, error) {
	body, err := s.fetcher.FetchCached(ctx, fmt.Sprintf("/types/%d/", ref.ID), nil)
	if err != nil {
		return nil, err
	}

	var detail typeDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, fmt.Errorf("decode type %d: %w", ref.ID, err)
	}

	meta := &market.TypeMeta{
		ID:     detail.ID,
		Name:   detail.Name,
		Volume: detail.Volume,
		Href:   ref.Href,
	}
	if meta.ID == 0 {
		meta.ID = ref.ID
	}
	if meta.Name == "" {
		meta.Name = ref.Name
	}
	return meta, nil
}

// FindRegion resolves a region by exact name.
func FindRegion(meta *market.Meta, name string) (market.RegionMeta, error) {
	for _, region := range meta.Regions {
		if region.Name == name {
			return region, nil
		}
	}
	return market.RegionMeta{}, &NotFoundError{Name: name}
}

// ScrapeMarket fetches the buy and sell orders of every type in meta for
// the named region. Rows follow the order of meta.Types.
func (s *Scraper) ScrapeMarket(ctx context.Context, regionName string, meta *market.Meta) (*market.Snapshot, error) {
	region, err := FindRegion(meta, regionName)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	s.logger.Info().
		Str("region", region.Name).
		Int64("region_id", region.ID).
		Int("types", len(meta.Types)).
		Msg("Scraping region orders")

	rows := make([]market.Row, len(meta.Types))
	counter := newProgress(s.observer, 2*len(meta.Types))

	buyPath := fmt.Sprintf("/market/%d/orders/buy/", region.ID)
	sellPath := fmt.Sprintf("/market/%d/orders/sell/", region.ID)

	g, gctx := errgroup.WithContext(ctx)
	for i, typ := range meta.Types {
		i, typ := i, typ
		rows[i].Type = market.RowType{ID: typ.ID, Index: i}
		query := url.Values{"type": []string{typ.Href}}

		g.Go(func() error {
			orders, err := s.orders(gctx, buyPath, query)
			if err != nil {
				return err
			}
			rows[i].Buy = orders
			counter.tick()
			return nil
		})
		g.Go(func() error {
			orders, err := s.orders(gctx, sellPath, query)
			if err != nil {
				return err
			}
			rows[i].Sell = orders
			counter.tick()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Str("region", region.Name).Msg("Market scrape failed")
		return nil, err
	}

	s.logger.Info().
		Str("region", region.Name).
		Int("rows", len(rows)).
		Dur("duration", time.Since(start)).
		Msg("Market scrape complete")

	return &market.Snapshot{Region: region, Rows: rows}, nil
}

func (s *Scraper) orders(ctx context.Context, path string, query url.Values) ([]market.Order, error) {
	items, err := s.fetcher.FetchPaginated(ctx, path, query)
	if err != nil {
		return nil, err
	}
	return decodeItems[market.Order](items)
}

func decodeItems[T any](items []json.RawMessage) ([]T, error) {
	out := make([]T, len(items))
	for i, raw := range items {
		if err := json.Unmarshal(raw, &out[i]); err != nil {
			return nil, fmt.Errorf("decode item %d: %w", i, err)
		}
	}
	return out, nil
}
