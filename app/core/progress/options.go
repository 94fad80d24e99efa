// Package progress records reading progress and derives stats and achievements from it.
//
// All state lives in the shared key-value store under four prefixes:
//
//	ratings:<taleID>          "1".."3"
//	story:read:<taleID>       "1"
//	activities:<Y>-<M>-<D>    JSON flag object, e.g. {"calm":true,"read":true}
//	login:<Y>-<M>-<D>         "1"
//
// The Recorder writes these records and publishes change notifications on a Bus.
// The Aggregator reads them back into a Stats snapshot, and Evaluate turns a
// snapshot into achievement states. Nothing derived is ever persisted.
package progress

import "time"

// Clock returns the current time. Day keys use its local calendar date.
type Clock func() time.Time

// DefaultWindowDays is how far back daily activity is examined
const DefaultWindowDays = 60

type config struct {
	now          Clock
	windowDays   int
	legacyPadded bool
}

// Option tunes a Recorder or Aggregator
type Option func(*config)

// WithClock replaces time.Now
func WithClock(c Clock) Option {
	return func(cfg *config) {
		if c != nil {
			cfg.now = c
		}
	}
}

// WithWindowDays changes the lookback window of the Aggregator
func WithWindowDays(days int) Option {
	return func(cfg *config) {
		if days > 0 {
			cfg.windowDays = days
		}
	}
}

// WithLegacyPaddedKeys makes the Aggregator also probe zero padded day keys
// (activities:2024-05-09) written by older releases. Enabled by default.
func WithLegacyPaddedKeys(enabled bool) Option {
	return func(cfg *config) {
		cfg.legacyPadded = enabled
	}
}

func newConfig(opts []Option) config {
	cfg := config{
		now:          time.Now,
		windowDays:   DefaultWindowDays,
		legacyPadded: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
