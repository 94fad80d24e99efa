// Package settings holds the user preferences and configuration values kept in the
// shared key-value store next to the progress records.
package settings

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pandatales/pandatales/app/core/kvstore"
)

const (
	// MusicEnabledKey stores "1" or "0"
	MusicEnabledKey = "settings:musicEnabled"
	// StoriesTotalKey stores the number of tales available, as a decimal string
	StoriesTotalKey = "stories:total"
)

// Settings reads and writes preference keys.
type Settings struct {
	store kvstore.Store
}

// New wraps store
func New(store kvstore.Store) *Settings {
	return &Settings{store: store}
}

// MusicEnabled returns the music preference. Music defaults to on, and the
// default is persisted the first time the preference is read.
func (s *Settings) MusicEnabled(ctx context.Context) (bool, error) {
	v, ok, err := s.store.Get(ctx, MusicEnabledKey)
	if err != nil {
		return true, fmt.Errorf("read music setting: %w", err)
	}
	if !ok {
		if err := s.store.Set(ctx, MusicEnabledKey, "1"); err != nil {
			return true, fmt.Errorf("persist default music setting: %w", err)
		}
		return true, nil
	}
	return v != "0", nil
}

// SetMusicEnabled persists the music preference
func (s *Settings) SetMusicEnabled(ctx context.Context, on bool) error {
	v := "0"
	if on {
		v = "1"
	}
	if err := s.store.Set(ctx, MusicEnabledKey, v); err != nil {
		return fmt.Errorf("write music setting: %w", err)
	}
	return nil
}

// ToggleMusic flips the music preference and returns the new value
func (s *Settings) ToggleMusic(ctx context.Context) (bool, error) {
	on, err := s.MusicEnabled(ctx)
	if err != nil {
		return on, err
	}
	next := !on
	return next, s.SetMusicEnabled(ctx, next)
}

// StoriesTotal returns the recorded number of available tales.
// Missing, malformed, non-integer or negative values count as 0.
func (s *Settings) StoriesTotal(ctx context.Context) (int, error) {
	v, ok, err := s.store.Get(ctx, StoriesTotalKey)
	if err != nil {
		return 0, fmt.Errorf("read stories total: %w", err)
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return 0, nil
	}
	return n, nil
}

// SetStoriesTotal records the number of available tales
func (s *Settings) SetStoriesTotal(ctx context.Context, n int) error {
	if n < 0 {
		n = 0
	}
	if err := s.store.Set(ctx, StoriesTotalKey, strconv.Itoa(n)); err != nil {
		return fmt.Errorf("write stories total: %w", err)
	}
	return nil
}
