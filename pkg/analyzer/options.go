package analyzer

import "fmt"

// Options are the knobs shared by every analysis.
type Options struct {
	// MinVolume drops orders smaller than this many units. Orders without
	// volume are dropped whatever its value.
	MinVolume int64 `yaml:"min_volume"`

	// Cargo is the hauler capacity in volume units. One run moves at most
	// floor(Cargo / item volume) units.
	Cargo float64 `yaml:"cargo"`

	// Tax is the fraction of sale proceeds lost to the market.
	Tax float64 `yaml:"tax"`

	// Funds caps how many units can be bought for one haul.
	Funds float64 `yaml:"funds"`

	// Count is the maximum number of results. Zero or less means no limit.
	Count int `yaml:"count"`
}

// DefaultOptions returns options for a small hauler with moderate funds.
func DefaultOptions() Options {
	return Options{
		MinVolume: 1,
		Cargo:     5000,
		Tax:       0.02,
		Funds:     100_000_000,
		Count:     30,
	}
}

// Validate checks that options are usable.
func (o Options) Validate() error {
	if o.MinVolume < 1 {
		return fmt.Errorf("min volume must be >= 1 (got %d)", o.MinVolume)
	}
	if o.Cargo <= 0 {
		return fmt.Errorf("cargo must be > 0 (got %v)", o.Cargo)
	}
	if o.Tax < 0 || o.Tax >= 1 {
		return fmt.Errorf("tax must be in [0, 1) (got %v)", o.Tax)
	}
	if o.Funds < 0 {
		return fmt.Errorf("funds must be >= 0 (got %v)", o.Funds)
	}
	return nil
}

// Option adjusts Options.
type Option func(*Options)

// WithOptions replaces every option at once.
func WithOptions(opts Options) Option {
	return func(o *Options) {
		*o = opts
	}
}

// WithMinVolume sets Options.MinVolume.
func WithMinVolume(v int64) Option {
	return func(o *Options) {
		o.MinVolume = v
	}
}

// WithCargo sets Options.Cargo.
func WithCargo(v float64) Option {
	return func(o *Options) {
		o.Cargo = v
	}
}

// WithTax sets Options.Tax.
func WithTax(v float64) Option {
	return func(o *Options) {
		o.Tax = v
	}
}

// WithFunds sets Options.Funds.
func WithFunds(v float64) Option {
	return func(o *Options) {
		o.Funds = v
	}
}

// WithCount sets Options.Count.
func WithCount(v int) Option {
	return func(o *Options) {
		o.Count = v
	}
}
