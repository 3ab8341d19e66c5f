package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if u, err := url.Parse(c.API.BaseURL); err != nil || !u.IsAbs() {
		return fmt.Errorf("api.base_url must be an absolute URL, got %q", c.API.BaseURL)
	}
	if c.API.UserAgent == "" {
		return errors.New("api.user_agent is required")
	}
	if c.API.Timeout < 0 {
		return errors.New("api.timeout must be >= 0")
	}

	if c.Limiter.Max < 1 {
		return errors.New("limiter.max must be >= 1")
	}
	if c.Limiter.ReleaseDelay < 0 {
		return errors.New("limiter.release_delay must be >= 0")
	}

	if c.Retry.MaxAttempts < 1 {
		return errors.New("retry.max_attempts must be >= 1")
	}
	if c.Retry.Backoff < 0 {
		return errors.New("retry.backoff must be >= 0")
	}

	if c.Pagination.MaxConcurrency < 0 {
		return errors.New("pagination.max_concurrency must be >= 0")
	}
	if c.Pagination.ProgressEvery < 1 {
		return errors.New("pagination.progress_every must be >= 1")
	}

	if c.Redis.Enabled() && c.Redis.DB < 0 {
		return fmt.Errorf("redis.db must be >= 0, got %d", c.Redis.DB)
	}

	if err := c.Analyzer.Validate(); err != nil {
		return fmt.Errorf("analyzer: %w", err)
	}

	switch strings.ToLower(string(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}

	return nil
}
