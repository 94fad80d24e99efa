package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pandatales/pandatales/app/core/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus(t *testing.T) {

	t.Run("subscribers only get the types they asked for", func(t *testing.T) {
		bus := NewBus()
		defer bus.Close()

		rated := bus.Subscribe(EventStoryRated)
		all := bus.Subscribe()

		assert.Equal(t, 1, bus.Publish(Event{Type: EventStoryRead, TaleID: "lotus"}))
		assert.Equal(t, 2, bus.Publish(Event{Type: EventStoryRated, TaleID: "lotus", Stars: 3}))

		assert.Len(t, rated.C, 1)
		assert.Len(t, all.C, 2)
		assert.NotEqual(t, rated.ID(), all.ID())
	})

	t.Run("publish without subscribers drops the event", func(t *testing.T) {
		bus := NewBus()
		defer bus.Close()
		assert.Zero(t, bus.Publish(Event{Type: EventCleared}))
	})

	t.Run("full subscriber misses events instead of blocking", func(t *testing.T) {
		bus := NewBusWithBuffer(2)
		defer bus.Close()
		sub := bus.Subscribe()

		for i := 0; i < 5; i++ {
			bus.Publish(Event{Type: EventLoginDay})
		}
		assert.Len(t, sub.C, 2)
	})

	t.Run("publish stamps a time", func(t *testing.T) {
		bus := NewBus()
		defer bus.Close()
		sub := bus.Subscribe()
		bus.Publish(Event{Type: EventCleared})
		e := <-sub.C
		assert.False(t, e.At.IsZero())
	})

	t.Run("unsubscribe closes the channel and is idempotent", func(t *testing.T) {
		bus := NewBus()
		defer bus.Close()
		sub := bus.Subscribe()
		require.Equal(t, 1, bus.SubscriberCount())

		sub.Unsubscribe()
		sub.Unsubscribe()

		_, ok := <-sub.C
		assert.False(t, ok)
		assert.Zero(t, bus.SubscriberCount())
		assert.Zero(t, bus.Publish(Event{Type: EventCleared}))
	})

	t.Run("close ends every subscription", func(t *testing.T) {
		bus := NewBus()
		a := bus.Subscribe()
		b := bus.Subscribe(EventStoryRead)

		bus.Close()
		bus.Close()

		_, ok := <-a.C
		assert.False(t, ok)
		_, ok = <-b.C
		assert.False(t, ok)
		a.Unsubscribe()

		late := bus.Subscribe()
		_, ok = <-late.C
		assert.False(t, ok, "subscribing to a closed bus yields a closed channel")
		assert.Zero(t, bus.Publish(Event{Type: EventCleared}))
	})

	t.Run("concurrent publish and unsubscribe", func(t *testing.T) {
		bus := NewBusWithBuffer(1)
		defer bus.Close()

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(2)
			sub := bus.Subscribe()
			go func() {
				defer wg.Done()
				bus.Publish(Event{Type: EventStoryRead})
			}()
			go func() {
				defer wg.Done()
				sub.Unsubscribe()
			}()
		}
		wg.Wait()
		assert.Zero(t, bus.SubscriberCount())
	})
}

func TestWatcher(t *testing.T) {

	t.Run("initial snapshot then one per change", func(t *testing.T) {
		store := kvstore.NewMemory()
		bus := NewBus()
		defer bus.Close()

		rec := NewRecorder(store, bus, WithClock(fixedClock(testNow)))
		w := NewWatcher(bus, NewAggregator(store, WithClock(fixedClock(testNow))))

		snaps := make(chan Snapshot, 8)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- w.Run(ctx, func(s Snapshot) { snaps <- s }) }()

		first := <-snaps
		assert.Nil(t, first.Cause)
		assert.Equal(t, BaselineStats(), first.Stats)
		assert.Len(t, first.Achievements, len(Achievements()))

		require.Eventually(t, func() bool { return bus.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)
		require.NoError(t, rec.SetRating(ctx, "lotus", 2))

		select {
		case s := <-snaps:
			require.NotNil(t, s.Cause)
			assert.Equal(t, EventStoryRated, s.Cause.Type)
			assert.Equal(t, 1, s.Stats.RatedCount)
			assert.True(t, earned(s.Achievements)[AchFirstRating])
		case <-time.After(time.Second):
			t.Fatal("no snapshot after rating")
		}

		cancel()
		assert.True(t, errors.Is(<-done, context.Canceled))
		assert.Zero(t, bus.SubscriberCount())
	})

	t.Run("closing the bus ends Run cleanly", func(t *testing.T) {
		bus := NewBus()
		w := NewWatcher(bus, NewAggregator(kvstore.NewMemory(), WithClock(fixedClock(testNow))))

		done := make(chan error, 1)
		go func() { done <- w.Run(context.Background(), func(Snapshot) {}) }()

		require.Eventually(t, func() bool { return bus.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)
		bus.Close()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("Run did not return after the bus closed")
		}
	})

	t.Run("a panicking callback does not stop the watcher", func(t *testing.T) {
		store := kvstore.NewMemory()
		bus := NewBus()
		defer bus.Close()
		rec := NewRecorder(store, bus, WithClock(fixedClock(testNow)))
		w := NewWatcher(bus, NewAggregator(store, WithClock(fixedClock(testNow))))

		var mu sync.Mutex
		calls := 0
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			_ = w.Run(ctx, func(Snapshot) {
				mu.Lock()
				calls++
				mu.Unlock()
				panic("render failed")
			})
		}()

		require.Eventually(t, func() bool { return bus.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)
		require.NoError(t, rec.MarkStoryReadToday(ctx, "star"))

		assert.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return calls >= 3
		}, time.Second, 5*time.Millisecond)
	})
}
