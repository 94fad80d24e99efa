package progress

import (
	"context"
	"fmt"
	"strings"

	"github.com/pandatales/pandatales/app/core/kvstore"
	"github.com/pandatales/pandatales/app/core/settings"
)

// Stats is a snapshot derived from the progress records. It is never persisted.
type Stats struct {
	ReadDays       int  `json:"readDays"`
	ReadStories    int  `json:"readStories"`
	RatedCount     int  `json:"ratedCount"`
	StreakDays     int  `json:"streakDays"`
	LoginDays      int  `json:"loginDays"`
	AllStoriesRead bool `json:"allStoriesRead"`
}

// BaselineStats is what an empty store yields. The streak never drops below one day.
func BaselineStats() Stats {
	return Stats{StreakDays: 1}
}

// Aggregator computes Stats from the store. It never writes.
type Aggregator struct {
	store    kvstore.Store
	settings *settings.Settings
	cfg      config
}

// NewAggregator creates an aggregator over store
func NewAggregator(store kvstore.Store, opts ...Option) *Aggregator {
	return &Aggregator{
		store:    store,
		settings: settings.New(store),
		cfg:      newConfig(opts),
	}
}

// LoadStats builds a fresh snapshot:
//   - the last windowDays days (today included) are read in one batch
//   - ReadDays counts active days in that window
//   - StreakDays is the run of active days ending today, floored at 1
//   - one key listing yields ReadStories, RatedCount and LoginDays
//   - AllStoriesRead needs a recorded stories total above zero
func (a *Aggregator) LoadStats(ctx context.Context) (Stats, error) {
	active, err := a.activeDays(ctx)
	if err != nil {
		return BaselineStats(), err
	}

	stats := Stats{}
	for _, on := range active {
		if on {
			stats.ReadDays++
		}
	}
	stats.StreakDays = streakOf(active)

	keys, err := a.store.AllKeys(ctx)
	if err != nil {
		return BaselineStats(), fmt.Errorf("list keys: %w", err)
	}
	for _, k := range keys {
		switch {
		case strings.HasPrefix(k, ReadPrefix):
			stats.ReadStories++
		case strings.HasPrefix(k, LoginPrefix):
			stats.LoginDays++
		}
		if IsRatingKey(k) {
			stats.RatedCount++
		}
	}

	total, err := a.settings.StoriesTotal(ctx)
	if err != nil {
		return BaselineStats(), err
	}
	stats.AllStoriesRead = total > 0 && stats.ReadStories >= total

	return stats, nil
}

// Streak returns only the streak, without enumerating the whole key space.
// This is the number shown on the home screen.
func (a *Aggregator) Streak(ctx context.Context) (int, error) {
	active, err := a.activeDays(ctx)
	if err != nil {
		return 1, err
	}
	return streakOf(active), nil
}

// activeDays returns one entry per window day, index 0 being today
func (a *Aggregator) activeDays(ctx context.Context) ([]bool, error) {
	now := a.cfg.now()
	days := a.cfg.windowDays

	perDay := 1
	if a.cfg.legacyPadded {
		perDay = 2
	}

	keys := make([]string, 0, days*perDay)
	for i := 0; i < days; i++ {
		day := daysBack(now, i)
		keys = append(keys, ActivityKey(day))
		if a.cfg.legacyPadded {
			keys = append(keys, PaddedActivityKey(day))
		}
	}

	pairs, err := a.store.MultiGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("read activity window: %w", err)
	}

	active := make([]bool, days)
	for i := range active {
		for j := 0; j < perDay; j++ {
			p := pairs[i*perDay+j]
			if DayHasActivity(p.Value, p.Found) {
				active[i] = true
				break
			}
		}
	}
	return active, nil
}

// streakOf counts consecutive active days from index 0 and applies the floor of 1.
func streakOf(active []bool) int {
	streak := 0
	for _, on := range active {
		if !on {
			break
		}
		streak++
	}
	return max(1, streak)
}
