package progress

import (
	"context"
	"testing"
	"time"

	"github.com/pandatales/pandatales/app/core/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, time.May, 9, 10, 30, 0, 0, time.Local)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func newTestRecorder(t *testing.T) (*Recorder, *kvstore.Memory, *Bus) {
	t.Helper()
	store := kvstore.NewMemory()
	bus := NewBus()
	t.Cleanup(bus.Close)
	return NewRecorder(store, bus, WithClock(fixedClock(testNow))), store, bus
}

func TestRecorder_Ratings(t *testing.T) {

	ctx := context.Background()

	t.Run("absent rating reads as zero", func(t *testing.T) {
		r, _, _ := newTestRecorder(t)
		stars, err := r.GetRating(ctx, "lotus")
		require.NoError(t, err)
		assert.Equal(t, 0, stars)
	})

	t.Run("get returns the last written rating", func(t *testing.T) {
		r, store, _ := newTestRecorder(t)
		for _, id := range []string{"lotus", "star", "grove", "moon", "wind"} {
			require.NoError(t, r.SetRating(ctx, id, 1))
			require.NoError(t, r.SetRating(ctx, id, 3))
			stars, err := r.GetRating(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, 3, stars, id)
		}
		v, _, _ := store.Get(ctx, "ratings:lotus")
		assert.Equal(t, "3", v)
	})

	t.Run("out of range stars are rejected and nothing is written", func(t *testing.T) {
		r, store, _ := newTestRecorder(t)
		for _, stars := range []int{0, 4, -1} {
			assert.ErrorIs(t, r.SetRating(ctx, "lotus", stars), ErrInvalidRating)
		}
		keys, _ := store.AllKeys(ctx)
		assert.Empty(t, keys)
	})

	t.Run("blank tale id is rejected", func(t *testing.T) {
		r, _, _ := newTestRecorder(t)
		assert.ErrorIs(t, r.SetRating(ctx, "  ", 2), ErrEmptyTaleID)
		assert.ErrorIs(t, r.MarkStoryReadToday(ctx, ""), ErrEmptyTaleID)
	})

	t.Run("rating publishes story:rated with id and stars", func(t *testing.T) {
		r, _, bus := newTestRecorder(t)
		sub := bus.Subscribe(EventStoryRated)
		defer sub.Unsubscribe()

		require.NoError(t, r.SetRating(ctx, "moon", 2))

		select {
		case e := <-sub.C:
			assert.Equal(t, EventStoryRated, e.Type)
			assert.Equal(t, "moon", e.TaleID)
			assert.Equal(t, 2, e.Stars)
			assert.Equal(t, testNow, e.At)
		case <-time.After(time.Second):
			t.Fatal("no story:rated event")
		}
	})

	t.Run("batch read covers every requested id", func(t *testing.T) {
		r, store, _ := newTestRecorder(t)
		require.NoError(t, r.SetRating(ctx, "lotus", 2))
		require.NoError(t, store.Set(ctx, "ratings:wind", "garbage"))

		got, err := r.GetRatings(ctx, []string{"lotus", "star", "wind"})
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"lotus": 2, "star": 0, "wind": 0}, got)

		got, err = r.GetRatings(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("padded ids read back what was written", func(t *testing.T) {
		r, store, _ := newTestRecorder(t)
		require.NoError(t, r.SetRating(ctx, " lotus ", 2))

		_, ok, _ := store.Get(ctx, "ratings:lotus")
		assert.True(t, ok)

		stars, err := r.GetRating(ctx, " lotus ")
		require.NoError(t, err)
		assert.Equal(t, 2, stars)

		got, err := r.GetRatings(ctx, []string{" lotus ", "lotus", "star"})
		require.NoError(t, err)
		assert.Equal(t, map[string]int{" lotus ": 2, "lotus": 2, "star": 0}, got)

		require.NoError(t, r.MarkStoryReadToday(ctx, "\tmoon "))
		read, err := r.HasRead(ctx, " moon")
		require.NoError(t, err)
		assert.True(t, read)
	})

	t.Run("blank ids are rejected on reads", func(t *testing.T) {
		r, _, _ := newTestRecorder(t)
		_, err := r.GetRating(ctx, " ")
		assert.ErrorIs(t, err, ErrEmptyTaleID)
		_, err = r.HasRead(ctx, "")
		assert.ErrorIs(t, err, ErrEmptyTaleID)
		_, err = r.GetRatings(ctx, []string{"lotus", ""})
		assert.ErrorIs(t, err, ErrEmptyTaleID)
	})

	t.Run("stored values outside 1..3 read as unrated", func(t *testing.T) {
		r, store, _ := newTestRecorder(t)
		for _, raw := range []string{"7", "0", "-2", "4"} {
			require.NoError(t, store.Set(ctx, "ratings:lotus", raw))
			stars, err := r.GetRating(ctx, "lotus")
			require.NoError(t, err)
			assert.Zero(t, stars, raw)
		}
		require.NoError(t, store.Set(ctx, "ratings:lotus", " 3 "))
		stars, err := r.GetRating(ctx, "lotus")
		require.NoError(t, err)
		assert.Equal(t, 3, stars)
	})
}

func TestRecorder_MarkStoryReadToday(t *testing.T) {

	ctx := context.Background()

	t.Run("writes marker, activity and login for the local day", func(t *testing.T) {
		r, store, _ := newTestRecorder(t)
		require.NoError(t, r.MarkStoryReadToday(ctx, "lotus"))

		v, ok, _ := store.Get(ctx, "story:read:lotus")
		assert.True(t, ok)
		assert.Equal(t, "1", v)

		v, ok, _ = store.Get(ctx, "activities:2024-5-9")
		assert.True(t, ok)
		assert.JSONEq(t, `{"read":true}`, v)

		v, ok, _ = store.Get(ctx, "login:2024-5-9")
		assert.True(t, ok)
		assert.Equal(t, "1", v)

		read, err := r.HasRead(ctx, "lotus")
		require.NoError(t, err)
		assert.True(t, read)
	})

	t.Run("merge keeps flags already recorded today", func(t *testing.T) {
		r, store, _ := newTestRecorder(t)
		require.NoError(t, store.Set(ctx, "activities:2024-5-9", `{"calm":true,"minutes":5}`))

		require.NoError(t, r.MarkStoryReadToday(ctx, "star"))

		v, _, _ := store.Get(ctx, "activities:2024-5-9")
		assert.JSONEq(t, `{"calm":true,"minutes":5,"read":true}`, v)
	})

	t.Run("malformed record is replaced instead of failing", func(t *testing.T) {
		r, store, _ := newTestRecorder(t)
		for _, bad := range []string{"{not json", "1", `["read"]`} {
			require.NoError(t, store.Set(ctx, "activities:2024-5-9", bad))
			require.NoError(t, r.MarkStoryReadToday(ctx, "grove"), bad)

			v, _, _ := store.Get(ctx, "activities:2024-5-9")
			assert.JSONEq(t, `{"read":true}`, v, bad)
		}
	})

	t.Run("publishes login:day then story:read", func(t *testing.T) {
		r, _, bus := newTestRecorder(t)
		sub := bus.Subscribe()
		defer sub.Unsubscribe()

		require.NoError(t, r.MarkStoryReadToday(ctx, "wind"))

		first := <-sub.C
		second := <-sub.C
		assert.Equal(t, EventLoginDay, first.Type)
		assert.Equal(t, EventStoryRead, second.Type)
		assert.Equal(t, "wind", second.TaleID)
	})

	t.Run("reading the same tale twice counts it once", func(t *testing.T) {
		r, store, _ := newTestRecorder(t)
		require.NoError(t, r.MarkStoryReadToday(ctx, "lotus"))
		require.NoError(t, r.MarkStoryReadToday(ctx, "lotus"))

		stats, err := NewAggregator(store, WithClock(fixedClock(testNow))).LoadStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.ReadStories)
		assert.Equal(t, 1, stats.LoginDays)
		assert.Equal(t, 1, stats.ReadDays)
	})

	t.Run("works without a bus", func(t *testing.T) {
		r := NewRecorder(kvstore.NewMemory(), nil, WithClock(fixedClock(testNow)))
		assert.NoError(t, r.MarkStoryReadToday(ctx, "moon"))
		assert.NoError(t, r.SetRating(ctx, "moon", 1))
	})
}

func TestRecorder_RecordActivity(t *testing.T) {
	ctx := context.Background()
	r, store, _ := newTestRecorder(t)

	require.NoError(t, r.RecordActivity(ctx, FlagCalm))
	require.NoError(t, r.RecordActivity(ctx, FlagFocus))

	v, _, _ := store.Get(ctx, "activities:2024-5-9")
	assert.JSONEq(t, `{"calm":true,"focus":true}`, v)

	assert.Error(t, r.RecordActivity(ctx, " "))
}

func TestRecorder_ClearAllProgress(t *testing.T) {
	ctx := context.Background()
	r, store, bus := newTestRecorder(t)

	require.NoError(t, r.SetRating(ctx, "lotus", 3))
	require.NoError(t, r.MarkStoryReadToday(ctx, "lotus"))
	require.NoError(t, store.Set(ctx, "settings:musicEnabled", "0"))
	require.NoError(t, store.Set(ctx, "stories:total", "5"))

	sub := bus.Subscribe(EventCleared)
	defer sub.Unsubscribe()

	removed, err := r.ClearAllProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, removed)

	keys, err := store.AllKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"settings:musicEnabled", "stories:total"}, keys)

	select {
	case e := <-sub.C:
		assert.Equal(t, EventCleared, e.Type)
	case <-time.After(time.Second):
		t.Fatal("no achievements:cleared event")
	}

	stats, err := NewAggregator(store, WithClock(fixedClock(testNow))).LoadStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, BaselineStats(), stats)

	removed, err = r.ClearAllProgress(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed, "a second reset has nothing left to remove")
}
