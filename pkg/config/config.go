// Package config loads the scraper configuration from a YAML file, a .env
// file and MARKET_* environment variables.
package config

import (
	"time"

	"github.com/Sternrassler/eve-market-scrape/pkg/analyzer"
	"github.com/Sternrassler/eve-market-scrape/pkg/cache"
	"github.com/Sternrassler/eve-market-scrape/pkg/client"
	"github.com/Sternrassler/eve-market-scrape/pkg/logging"
	"github.com/Sternrassler/eve-market-scrape/pkg/pagination"
	"github.com/Sternrassler/eve-market-scrape/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
)

// Config is the top-level configuration.
type Config struct {
	API        APIConfig          `yaml:"api"`
	Limiter    ratelimit.Config   `yaml:"limiter"`
	Retry      client.RetryPolicy `yaml:"retry"`
	Pagination pagination.Config  `yaml:"pagination"`
	Redis      RedisConfig        `yaml:"redis"`
	Analyzer   analyzer.Options   `yaml:"analyzer"`
	Log        logging.Config     `yaml:"log"`
	Metrics    MetricsConfig      `yaml:"metrics"`
}

// APIConfig holds market API connection settings.
type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
}

// RedisConfig holds the optional type detail cache. An empty Addr disables
// the cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// Enabled reports whether a cache is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// MetricsConfig holds the optional Prometheus endpoint. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// ClientConfig returns the API client configuration.
func (c *Config) ClientConfig() client.Config {
	return client.Config{
		BaseURL:    c.API.BaseURL,
		UserAgent:  c.API.UserAgent,
		Timeout:    c.API.Timeout,
		Retry:      c.Retry,
		Limiter:    c.Limiter,
		Pagination: c.Pagination,
	}
}

// RedisClient returns a client for the configured cache, or nil when the
// cache is disabled.
func (c *Config) RedisClient() *redis.Client {
	if !c.Redis.Enabled() {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	})
}

// CacheManager returns a cache manager over rc with the configured TTL.
func (c *Config) CacheManager(rc *redis.Client) *cache.Manager {
	return cache.NewManager(rc, c.Redis.TTL)
}
