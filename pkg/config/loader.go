package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Sternrassler/eve-market-scrape/pkg/logging"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load builds the configuration: built-in defaults, then the YAML file at
// path (skipped when path is empty) with ${VAR} expansion, then MARKET_*
// environment overrides. A .env file in the working directory is loaded
// first when present. The result is not validated.
func Load(path string) (*Config, error) {
	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		// Expand ${VAR} environment variables
		expanded := os.ExpandEnv(string(data))

		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	cfg.applyDefaults()
	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// LoadAndValidate loads config and validates it.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.API.BaseURL, "MARKET_API_BASE_URL")
	setStr(&cfg.API.UserAgent, "MARKET_API_USER_AGENT")
	setDuration(&cfg.API.Timeout, "MARKET_API_TIMEOUT")

	setInt(&cfg.Limiter.Max, "MARKET_LIMITER_MAX")
	setDuration(&cfg.Limiter.ReleaseDelay, "MARKET_LIMITER_RELEASE_DELAY")

	setInt(&cfg.Retry.MaxAttempts, "MARKET_RETRY_MAX_ATTEMPTS")
	setDuration(&cfg.Retry.Backoff, "MARKET_RETRY_BACKOFF")

	setInt(&cfg.Pagination.MaxConcurrency, "MARKET_PAGINATION_MAX_CONCURRENCY")
	setInt(&cfg.Pagination.ProgressEvery, "MARKET_PAGINATION_PROGRESS_EVERY")

	setStr(&cfg.Redis.Addr, "MARKET_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MARKET_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MARKET_REDIS_DB")
	setDuration(&cfg.Redis.TTL, "MARKET_REDIS_TTL")

	setInt64(&cfg.Analyzer.MinVolume, "MARKET_ANALYZER_MIN_VOLUME")
	setFloat64(&cfg.Analyzer.Cargo, "MARKET_ANALYZER_CARGO")
	setFloat64(&cfg.Analyzer.Tax, "MARKET_ANALYZER_TAX")
	setFloat64(&cfg.Analyzer.Funds, "MARKET_ANALYZER_FUNDS")
	setInt(&cfg.Analyzer.Count, "MARKET_ANALYZER_COUNT")

	if v := os.Getenv("MARKET_LOG_LEVEL"); v != "" {
		cfg.Log.Level = logging.LogLevel(v)
	}
	setBool(&cfg.Log.Pretty, "MARKET_LOG_PRETTY")

	setStr(&cfg.Metrics.Addr, "MARKET_METRICS_ADDR")
}

// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and parses.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
