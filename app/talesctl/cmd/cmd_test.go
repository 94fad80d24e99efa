package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/pandatales/pandatales/app/core/compressor"
	"github.com/pandatales/pandatales/app/core/kvstore"
	"github.com/pandatales/pandatales/app/core/progress"
	"github.com/pandatales/pandatales/app/core/settings"
	"github.com/pandatales/pandatales/app/core/tales"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryApp(t *testing.T) *app {
	t.Helper()
	a, err := newApp(context.Background(), Config{LegacyPaddedKeys: true}, kvstore.NewMemory())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNewApp_PublishesTotal(t *testing.T) {
	a := newMemoryApp(t)
	total, err := a.settings.StoriesTotal(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, total)
}

func TestRunList(t *testing.T) {
	ctx := context.Background()
	a := newMemoryApp(t)
	require.NoError(t, a.recorder.SetRating(ctx, "moon", 2))
	require.NoError(t, a.recorder.MarkStoryReadToday(ctx, "moon"))

	var buf bytes.Buffer
	require.NoError(t, runList(ctx, a, &buf))

	out := buf.String()
	assert.Contains(t, out, "5 tales")
	assert.Contains(t, out, "The Panda and the Moonlit Bridge")
	assert.Contains(t, out, "✅ moon")
	assert.Contains(t, out, "★★☆")
	assert.Contains(t, out, "   lotus")
}

func TestRunRate(t *testing.T) {
	ctx := context.Background()
	a := newMemoryApp(t)
	var buf bytes.Buffer

	require.NoError(t, runRate(ctx, a, &buf, "lotus", "3"))
	assert.Contains(t, buf.String(), "★★★")

	stars, err := a.recorder.GetRating(ctx, "lotus")
	require.NoError(t, err)
	assert.Equal(t, 3, stars)

	assert.ErrorIs(t, runRate(ctx, a, &buf, "dragon", "2"), tales.ErrUnknownTale)
	assert.ErrorIs(t, runRate(ctx, a, &buf, "lotus", "five"), progress.ErrInvalidRating)
	assert.ErrorIs(t, runRate(ctx, a, &buf, "lotus", "4"), progress.ErrInvalidRating)
}

func TestRunPractice(t *testing.T) {
	ctx := context.Background()
	a := newMemoryApp(t)
	var buf bytes.Buffer

	require.NoError(t, runPractice(ctx, a, &buf, "calm"))
	assert.Contains(t, buf.String(), "Your reading streak is 1 day")

	stats, err := a.aggregator.LoadStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ReadDays)
	assert.Zero(t, stats.LoginDays, "practices do not count as reading days")

	assert.Error(t, runPractice(ctx, a, &buf, "read"))
}

func TestRunStats(t *testing.T) {
	ctx := context.Background()
	a := newMemoryApp(t)
	for _, id := range []string{"lotus", "star", "grove"} {
		require.NoError(t, a.recorder.SetRating(ctx, id, 2))
	}
	require.NoError(t, a.recorder.MarkStoryReadToday(ctx, "lotus"))

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, runStats(ctx, a, &buf))
		out := buf.String()
		assert.Contains(t, out, "Your reading streak is 1 day")
		assert.Contains(t, out, "Read every day to let your Lotus of Wisdom bloom.")
		assert.Contains(t, out, "Tales rated:            3")
		assert.Contains(t, out, "ACHIEVEMENTS (4/8)")
		assert.Contains(t, out, "Three Ratings")
		assert.Contains(t, out, "Open the app on 20 different days")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, runStatsJSON(ctx, a, &buf))

		var out StatsOutput
		require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
		assert.Equal(t, 3, out.Stats.RatedCount)
		assert.Equal(t, 1, out.Stats.ReadStories)
		assert.Equal(t, 4, out.Earned)
		assert.Equal(t, 0, out.LotusStage)
		require.Len(t, out.Achievements, 8)
		assert.Equal(t, "first_read", out.Achievements[0].ID)
		assert.True(t, out.Achievements[3].Earned)
	})
}

func TestStreakText(t *testing.T) {
	assert.Equal(t, "Your reading streak is 1 day", streakText(1))
	assert.Equal(t, "Your reading streak is 4 days", streakText(4))
}

func TestRunReset(t *testing.T) {
	ctx := context.Background()
	a := newMemoryApp(t)
	require.NoError(t, a.recorder.SetRating(ctx, "lotus", 1))
	require.NoError(t, a.settings.SetMusicEnabled(ctx, false))

	var buf bytes.Buffer
	assert.ErrorIs(t, runReset(ctx, a, &buf, false), errResetNotConfirmed)
	stars, _ := a.recorder.GetRating(ctx, "lotus")
	assert.Equal(t, 1, stars, "nothing is removed without confirmation")

	buf.Reset()
	require.NoError(t, runReset(ctx, a, &buf, true))
	assert.Contains(t, buf.String(), "1 records removed")

	stars, _ = a.recorder.GetRating(ctx, "lotus")
	assert.Zero(t, stars)
	on, err := a.settings.MusicEnabled(ctx)
	require.NoError(t, err)
	assert.False(t, on, "settings survive a reset")
}

func TestRunMusic(t *testing.T) {
	ctx := context.Background()
	a := newMemoryApp(t)

	tests := []struct {
		action string
		want   string
	}{
		{"", "Music is on"},
		{"off", "Music is off"},
		{"", "Music is off"},
		{"toggle", "Music is on"},
		{"on", "Music is on"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		require.NoError(t, runMusic(ctx, a, &buf, tt.action), tt.action)
		assert.Contains(t, buf.String(), tt.want, tt.action)
	}

	assert.Error(t, runMusic(ctx, a, &bytes.Buffer{}, "loud"))
}

func TestRunCompact(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		RootPath:         t.TempDir(),
		Codec:            compressor.Zstd,
		CompactThreshold: 0.9,
		LegacyPaddedKeys: true,
	}

	a, err := openApp(ctx, cfg)
	require.NoError(t, err)
	defer a.Close()

	for i := 0; i < 20; i++ {
		require.NoError(t, a.recorder.SetRating(ctx, "lotus", i%3+1))
	}

	var buf bytes.Buffer
	require.NoError(t, runCompact(a, &buf, true))

	var report CompactReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	assert.Equal(t, filepath.Join(cfg.RootPath, "data", "progress.ptkv"), report.Path)
	assert.Equal(t, 19, report.EntriesRemoved)
	assert.Equal(t, 2, report.LiveEntries, "the rating and the stories total")
	assert.Greater(t, report.SpaceSaved, int64(0))
	assert.Zero(t, report.FragAfter)
	assert.Equal(t, uint64(1), report.Blocks)
	assert.Equal(t, uint64(2), report.Entries)

	buf.Reset()
	require.NoError(t, runCompact(a, &buf, false))
	assert.Contains(t, buf.String(), "Blocks:          1 (2 entries)")

	stars, err := a.recorder.GetRating(ctx, "lotus")
	require.NoError(t, err)
	assert.Equal(t, 2, stars)

	assert.Error(t, runCompact(newMemoryApp(t), &buf, false))
}

func TestOpenApp_Locked(t *testing.T) {
	ctx := context.Background()
	cfg := Config{RootPath: t.TempDir(), Codec: compressor.Snappy, CompactThreshold: 0.5}

	a, err := openApp(ctx, cfg)
	require.NoError(t, err)
	defer a.Close()

	_, err = openApp(ctx, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "in use")
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		for _, k := range []string{"PANDATALES_ROOT_PATH", "PANDATALES_COMPRESSION", "PANDATALES_COMPACT_THRESHOLD", "PANDATALES_LEGACY_PADDED_KEYS", "LOG_LEVEL"} {
			t.Setenv(k, "")
		}
		cfg := LoadConfig()
		assert.Equal(t, compressor.Snappy, cfg.Codec)
		assert.Equal(t, defaultCompactThreshold, cfg.CompactThreshold)
		assert.True(t, cfg.LegacyPaddedKeys)
		assert.Equal(t, parseLogLevel("warn"), cfg.LogLevel)
		assert.Equal(t, defaultRootDir, filepath.Base(cfg.RootPath))
	})

	t.Run("from environment", func(t *testing.T) {
		root := t.TempDir()
		t.Setenv("PANDATALES_ROOT_PATH", root)
		t.Setenv("PANDATALES_COMPRESSION", "lz4")
		t.Setenv("PANDATALES_COMPACT_THRESHOLD", "0.25")
		t.Setenv("PANDATALES_LEGACY_PADDED_KEYS", "false")
		t.Setenv("LOG_LEVEL", "debug")

		cfg := LoadConfig()
		assert.Equal(t, root, cfg.RootPath)
		assert.Equal(t, compressor.LZ4, cfg.Codec)
		assert.Equal(t, 0.25, cfg.CompactThreshold)
		assert.False(t, cfg.LegacyPaddedKeys)
		assert.Equal(t, filepath.Join(root, "data", "progress.ptkv"), cfg.StorePath())
	})

	t.Run("invalid values fall back", func(t *testing.T) {
		t.Setenv("PANDATALES_COMPRESSION", "brotli")
		t.Setenv("PANDATALES_COMPACT_THRESHOLD", "2")
		t.Setenv("PANDATALES_LEGACY_PADDED_KEYS", "maybe")
		t.Setenv("LOG_LEVEL", "loud")

		cfg := LoadConfig()
		assert.Equal(t, compressor.Snappy, cfg.Codec)
		assert.Equal(t, defaultCompactThreshold, cfg.CompactThreshold)
		assert.True(t, cfg.LegacyPaddedKeys)
		assert.Equal(t, parseLogLevel("warn"), cfg.LogLevel)
	})
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]string{
		"debug":   "DEBUG",
		"INFO":    "INFO",
		"warning": "WARN",
		"error":   "ERROR",
		"":        "WARN",
	} {
		assert.Equal(t, want, parseLogLevel(in).String(), fmt.Sprintf("level %q", in))
	}
}

func TestSettingsKeysUntouchedByList(t *testing.T) {
	ctx := context.Background()
	a := newMemoryApp(t)
	require.NoError(t, runList(ctx, a, &bytes.Buffer{}))

	keys, err := a.store.AllKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{settings.StoriesTotalKey}, keys)
}

func TestVersionOutput(t *testing.T) {
	out, err := buildVersionOutput()
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", out.Catalog.Version)
	assert.Equal(t, 5, out.Catalog.Tales)
	assert.True(t, out.Catalog.Supported)

	out.CLI.Version = "v1.2.0"
	out.CLI.Commit = "0123456789abcdef"
	out.CLI.BuildDate = "2024-05-09"

	var buf bytes.Buffer
	outputHumanReadable(&buf, out)
	assert.Contains(t, buf.String(), "talesctl v1.2.0 (commit 0123456, 2024-05-09)")
	assert.Contains(t, buf.String(), "Tale library 1.0.0 (5 tales)")
	assert.NotContains(t, buf.String(), "outside the supported range")

	buf.Reset()
	outputJSON(&buf, out)
	var decoded VersionOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, out, decoded)
}

func TestCatalogSupported(t *testing.T) {
	tests := []struct {
		version string
		want    bool
	}{
		{"1.0.0", true},
		{"1.4.2", true},
		{"0.9.0", false},
		{"2.0.0", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, catalogSupported(semver.MustParse(tt.version)), tt.version)
	}
}

func TestShortCommit(t *testing.T) {
	assert.Equal(t, "abc", shortCommit("abc"))
	assert.Equal(t, "abcdefg", shortCommit("abcdefghij"))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.50 KB", formatBytes(1536))
	assert.Equal(t, "2.00 MB", formatBytes(2*1024*1024))
	assert.Equal(t, "1.00 GB", formatBytes(1024*1024*1024))
}

func TestStarString(t *testing.T) {
	assert.Equal(t, "☆☆☆", starString(0))
	assert.Equal(t, "★☆☆", starString(1))
	assert.Equal(t, "★★★", starString(3))
	assert.Equal(t, "★★★", starString(7))
	assert.Equal(t, "☆☆☆", starString(-2))
}
