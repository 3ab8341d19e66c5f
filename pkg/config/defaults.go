package config

import (
	"github.com/Sternrassler/eve-market-scrape/pkg/analyzer"
	"github.com/Sternrassler/eve-market-scrape/pkg/cache"
	"github.com/Sternrassler/eve-market-scrape/pkg/client"
	"github.com/Sternrassler/eve-market-scrape/pkg/logging"
	"github.com/Sternrassler/eve-market-scrape/pkg/pagination"
	"github.com/Sternrassler/eve-market-scrape/pkg/ratelimit"
)

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		API: APIConfig{
			BaseURL:   client.DefaultBaseURL,
			UserAgent: client.DefaultUserAgent,
			Timeout:   client.DefaultTimeout,
		},
		Limiter:    ratelimit.DefaultConfig(),
		Retry:      client.DefaultRetryPolicy(),
		Pagination: pagination.DefaultConfig(),
		Redis:      RedisConfig{TTL: cache.DefaultTTL},
		Analyzer:   analyzer.DefaultOptions(),
		Log:        logging.Config{Level: logging.LevelInfo},
	}
}

// applyDefaults fills zero values left by the file.
func (c *Config) applyDefaults() {
	d := Defaults()

	if c.API.BaseURL == "" {
		c.API.BaseURL = d.API.BaseURL
	}
	if c.API.UserAgent == "" {
		c.API.UserAgent = d.API.UserAgent
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = d.API.Timeout
	}
	if c.Limiter.Max == 0 {
		c.Limiter.Max = d.Limiter.Max
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = d.Retry.MaxAttempts
	}
	if c.Pagination.ProgressEvery == 0 {
		c.Pagination.ProgressEvery = d.Pagination.ProgressEvery
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = d.Redis.TTL
	}
	if c.Analyzer.MinVolume == 0 {
		c.Analyzer.MinVolume = d.Analyzer.MinVolume
	}
	if c.Analyzer.Cargo == 0 {
		c.Analyzer.Cargo = d.Analyzer.Cargo
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}
