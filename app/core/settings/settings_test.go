package settings

import (
	"context"
	"testing"

	"github.com/pandatales/pandatales/app/core/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMusicEnabled(t *testing.T) {

	ctx := context.Background()

	t.Run("should default to on and persist the default", func(t *testing.T) {
		store := kvstore.NewMemory()
		s := New(store)

		on, err := s.MusicEnabled(ctx)
		require.NoError(t, err)
		assert.True(t, on, "music should be on by default")

		v, ok, err := store.Get(ctx, MusicEnabledKey)
		require.NoError(t, err)
		assert.True(t, ok, "default should be written")
		assert.Equal(t, "1", v)
	})

	t.Run("should respect a stored off value", func(t *testing.T) {
		store := kvstore.NewMemory()
		require.NoError(t, store.Set(ctx, MusicEnabledKey, "0"))

		on, err := New(store).MusicEnabled(ctx)
		require.NoError(t, err)
		assert.False(t, on)
	})

	t.Run("toggle should persist the new value", func(t *testing.T) {
		store := kvstore.NewMemory()
		s := New(store)

		on, err := s.ToggleMusic(ctx)
		require.NoError(t, err)
		assert.False(t, on)

		v, _, _ := store.Get(ctx, MusicEnabledKey)
		assert.Equal(t, "0", v)

		on, err = s.ToggleMusic(ctx)
		require.NoError(t, err)
		assert.True(t, on)

		v, _, _ = store.Get(ctx, MusicEnabledKey)
		assert.Equal(t, "1", v)
	})
}

func TestStoriesTotal(t *testing.T) {

	ctx := context.Background()

	cases := []struct {
		name   string
		stored *string
		want   int
	}{
		{"missing", nil, 0},
		{"valid", strPtr("5"), 5},
		{"padded", strPtr(" 7 "), 7},
		{"garbage", strPtr("five"), 0},
		{"negative", strPtr("-3"), 0},
		{"empty", strPtr(""), 0},
		{"not a number", strPtr("NaN"), 0},
		{"infinite", strPtr("Inf"), 0},
		{"exponent", strPtr("1e30"), 0},
		{"fraction", strPtr("4.5"), 0},
		{"overflow", strPtr("99999999999999999999"), 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := kvstore.NewMemory()
			if tc.stored != nil {
				require.NoError(t, store.Set(ctx, StoriesTotalKey, *tc.stored))
			}
			got, err := New(store).StoriesTotal(ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("set then read", func(t *testing.T) {
		s := New(kvstore.NewMemory())
		require.NoError(t, s.SetStoriesTotal(ctx, 5))
		got, err := s.StoriesTotal(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, got)
	})
}

func strPtr(s string) *string {
	return &s
}
