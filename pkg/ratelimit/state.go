// Package ratelimit implements admission control for outbound market API calls.
// It bounds the number of outstanding calls and holds every released slot for
// a fixed delay, which approximates a rolling per-second request window.
package ratelimit

import (
	"time"
)

// Defaults for the market API.
const (
	// DefaultMax is the number of tokens that may be outstanding at once.
	DefaultMax = 150

	// DefaultReleaseDelay is how long a released slot stays occupied.
	DefaultReleaseDelay = 1000 * time.Millisecond
)

// Config holds limiter settings.
type Config struct {
	// Max is the capacity of the limiter.
	Max int `yaml:"max"`

	// ReleaseDelay is the service-time floor applied after each release.
	ReleaseDelay time.Duration `yaml:"release_delay"`
}

// DefaultConfig returns the limiter settings used against the live API.
func DefaultConfig() Config {
	return Config{
		Max:          DefaultMax,
		ReleaseDelay: DefaultReleaseDelay,
	}
}

// Stats is a point-in-time view of the limiter.
type Stats struct {
	// InFlight counts admitted tokens, including released tokens whose
	// delay has not elapsed yet.
	InFlight int `json:"in_flight"`

	// Queued counts callers waiting for admission.
	Queued int `json:"queued"`

	// Max is the limiter capacity.
	Max int `json:"max"`
}

// Saturated returns true if a new caller would have to queue.
func (s Stats) Saturated() bool {
	return s.InFlight >= s.Max || s.Queued > 0
}
