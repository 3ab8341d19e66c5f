// Package client provides the market API HTTP client with rate limiting,
// retries, pagination and optional caching of immutable responses.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/eve-market-scrape/pkg/cache"
	"github.com/Sternrassler/eve-market-scrape/pkg/pagination"
	"github.com/Sternrassler/eve-market-scrape/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for market API operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "market_requests_total",
		Help: "Total market API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "market_request_duration_seconds",
		Help:    "Market API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "market_errors_total",
		Help: "Total market API errors by class",
	}, []string{"class"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "market_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "market_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// Defaults for the public market API.
const (
	DefaultBaseURL   = "https://crest-tq.eveonline.com"
	DefaultUserAgent = "eve-market-scrape"
	DefaultTimeout   = 30 * time.Second
)

// Client is the market API client.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	pages      *pagination.Fetcher
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the scheme and host of the API.
	BaseURL string `yaml:"base_url"`

	// UserAgent header sent with every request.
	UserAgent string `yaml:"user_agent"`

	// Timeout bounds a single HTTP round trip.
	Timeout time.Duration `yaml:"timeout"`

	// Retry
	Retry RetryPolicy `yaml:"retry"`

	// Admission control
	Limiter ratelimit.Config `yaml:"limiter"`

	// Pagination fan-out
	Pagination pagination.Config `yaml:"pagination"`
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:    DefaultBaseURL,
		UserAgent:  DefaultUserAgent,
		Timeout:    DefaultTimeout,
		Retry:      DefaultRetryPolicy(),
		Limiter:    ratelimit.DefaultConfig(),
		Pagination: pagination.DefaultConfig(),
	}
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLimiter shares an existing limiter instead of creating one.
func WithLimiter(limiter *ratelimit.Limiter) Option {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// WithCache enables caching for FetchCached.
func WithCache(manager *cache.Manager) Option {
	return func(c *Client) {
		c.cache = manager
	}
}

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a new market API client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("base url must be absolute (got %q)", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &Client{
		baseURL: baseURL,
		config:  cfg,
		logger:  log.With().Str("component", "client").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: max(cfg.Limiter.Max, ratelimit.DefaultMax),
				IdleConnTimeout:     15 * time.Second,
			},
		}
	}
	if c.limiter == nil {
		c.limiter = ratelimit.NewLimiter(cfg.Limiter, c.logger.With().Str("component", "limiter").Logger())
	}
	c.pages = pagination.NewFetcher(c, cfg.Pagination, c.logger)

	return c, nil
}

// FetchOnce performs one GET round trip and returns the JSON body.
// It never retries.
func (c *Client) FetchOnce(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	endpoint := endpointLabel(path)
	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	target := c.resolve(path, query)
	c.logger.Debug().
		Str("url", target).
		Msg("Executing market API request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, &TransportError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	status := strconv.Itoa(resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		_, _ = io.Copy(io.Discard, resp.Body)
		statusErr := &HTTPStatusError{
			Path:       path,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
		errorsTotal.WithLabelValues(string(statusErr.Class())).Inc()
		requestsTotal.WithLabelValues(endpoint, status).Inc()
		return nil, statusErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, &TransportError{Path: path, Err: err}
	}

	var data json.RawMessage
	if err := json.Unmarshal(body, &data); err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		requestsTotal.WithLabelValues(endpoint, "decode_error").Inc()
		return nil, &DecodeError{Path: path, Err: err}
	}

	requestsTotal.WithLabelValues(endpoint, status).Inc()
	return data, nil
}

// FetchWithRetry wraps FetchOnce with admission control and the retry
// policy. The limiter token is released after every attempt, failed or not.
func (c *Client) FetchWithRetry(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	var body json.RawMessage

	err := c.config.Retry.Do(ctx, path, c.logger, func(ctx context.Context) error {
		token, err := c.limiter.Acquire(ctx)
		if err != nil {
			return err
		}
		defer token.Release()

		data, err := c.FetchOnce(ctx, path, query)
		if err != nil {
			c.logger.Debug().Err(err).Str("path", path).Msg("Market API request failed")
			return err
		}
		body = data
		return nil
	})
	if err != nil {
		return nil, err
	}

	return body, nil
}

// FetchPage implements pagination.PageFetcher.
func (c *Client) FetchPage(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.FetchWithRetry(ctx, path, query)
}

// FetchPaginated returns the concatenated items of every page of path.
func (c *Client) FetchPaginated(ctx context.Context, path string, query url.Values) ([]json.RawMessage, error) {
	return c.pages.FetchAll(ctx, path, query)
}

// FetchCached is FetchWithRetry backed by the response cache. Only use it
// for endpoints whose content does not change during a run.
func (c *Client) FetchCached(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	if c.cache == nil {
		return c.FetchWithRetry(ctx, path, query)
	}

	key := cache.CacheKey{Path: path, Query: query}
	entry, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		c.logger.Debug().Str("path", path).Msg("Cache hit")
		return entry.Data, nil
	case !errors.Is(err, cache.ErrCacheMiss):
		c.logger.Warn().Err(err).Str("path", path).Msg("Cache get error")
	}

	body, err := c.FetchWithRetry(ctx, path, query)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Put(ctx, key, body); err != nil {
		c.logger.Warn().Err(err).Str("path", path).Msg("Failed to cache response")
	}
	return body, nil
}

// Limiter returns the client's limiter.
func (c *Client) Limiter() *ratelimit.Limiter {
	return c.limiter
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawQuery = query.Encode()
	return u.String()
}

// endpointLabel replaces numeric path segments so metric labels stay bounded.
func endpointLabel(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		if segment == "" {
			continue
		}
		if _, err := strconv.ParseInt(segment, 10, 64); err == nil {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}
