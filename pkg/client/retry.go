package client

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Retry defaults for the market API.
const (
	DefaultMaxAttempts  = 100
	DefaultRetryBackoff = 500 * time.Millisecond
)

// RetryPolicy holds the configuration for retry logic. The backoff is flat.
type RetryPolicy struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int `yaml:"max_attempts"`

	// Backoff is the wait between a failed attempt and the next one.
	Backoff time.Duration `yaml:"backoff"`
}

// DefaultRetryPolicy returns the default retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     DefaultRetryBackoff,
	}
}

type retryState int

const (
	stateAttempting retryState = iota
	stateBackoff
	stateSucceeded
	stateExhausted
)

// Do runs attempt until it succeeds or MaxAttempts attempts have failed.
// Every failure is retried; only cancellation of ctx stops early.
func (p RetryPolicy) Do(ctx context.Context, path string, logger zerolog.Logger, attempt func(ctx context.Context) error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}

	var lastErr error
	attempts := 0
	state := stateAttempting

	for {
		switch state {
		case stateAttempting:
			attempts++
			lastErr = attempt(ctx)
			switch {
			case lastErr == nil:
				state = stateSucceeded
			case ctx.Err() != nil:
				return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
			case attempts >= p.MaxAttempts:
				state = stateExhausted
			default:
				state = stateBackoff
			}

		case stateBackoff:
			class := Classify(lastErr)
			retriesTotal.WithLabelValues(string(class)).Inc()
			logger.Warn().
				Err(lastErr).
				Str("path", path).
				Str("error_class", string(class)).
				Int("attempt", attempts).
				Dur("backoff", p.Backoff).
				Msg("Retrying request after backoff")

			timer := time.NewTimer(p.Backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				logger.Warn().
					Str("path", path).
					Int("attempt", attempts).
					Msg("Context cancelled during retry backoff")
				return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
			case <-timer.C:
			}
			state = stateAttempting

		case stateSucceeded:
			if attempts > 1 {
				logger.Info().
					Str("path", path).
					Int("attempt", attempts).
					Msg("Request succeeded after retry")
			}
			return nil

		case stateExhausted:
			class := Classify(lastErr)
			retryExhaustedTotal.WithLabelValues(string(class)).Inc()
			logger.Error().
				Err(lastErr).
				Str("path", path).
				Int("max_attempts", p.MaxAttempts).
				Msg("Retry attempts exhausted")
			return &RetryExhaustedError{
				Path:     path,
				Attempts: attempts,
				Last:     lastErr,
			}
		}
	}
}
