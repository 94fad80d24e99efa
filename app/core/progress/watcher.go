package progress

import (
	"context"
	"log/slog"

	"github.com/pandatales/pandatales/app/panichandler"
)

// Snapshot is what a Watcher hands to its consumer after every change.
type Snapshot struct {
	Stats        Stats
	Achievements []AchievementStatus
	Cause        *Event // nil for the initial snapshot
}

// Watcher keeps a consumer up to date: it recomputes stats whenever the bus
// reports a progress change.
type Watcher struct {
	bus        *Bus
	aggregator *Aggregator
}

// NewWatcher wires an aggregator to a bus
func NewWatcher(bus *Bus, aggregator *Aggregator) *Watcher {
	return &Watcher{bus: bus, aggregator: aggregator}
}

// Run delivers an initial snapshot, then one per notification, until ctx is done
// or the bus closes. The subscription lives exactly as long as Run.
// Failed reloads are logged and skipped; a panicking callback is recovered.
func (w *Watcher) Run(ctx context.Context, onChange func(Snapshot)) error {
	sub := w.bus.Subscribe(EventStoryRated, EventStoryRead, EventLoginDay, EventCleared)
	defer sub.Unsubscribe()

	w.refresh(ctx, nil, onChange)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-sub.C:
			if !ok {
				return nil
			}
			w.refresh(ctx, &e, onChange)
		}
	}
}

func (w *Watcher) refresh(ctx context.Context, cause *Event, onChange func(Snapshot)) {
	stats, err := w.aggregator.LoadStats(ctx)
	if err != nil {
		slog.Warn("failed to reload progress stats", "error", err)
		return
	}

	defer panichandler.Recover("progress watcher callback")
	onChange(Snapshot{
		Stats:        stats,
		Achievements: Evaluate(stats),
		Cause:        cause,
	})
}
