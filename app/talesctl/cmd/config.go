package cmd

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pandatales/pandatales/app/core/compressor"
	"github.com/pandatales/pandatales/app/core/kvstore/blockfile"
)

const (
	defaultRootDir          = ".pandatales"
	defaultCompactThreshold = 0.5
	defaultLogLevel         = "warn"
	storeFileName           = "progress" + blockfile.FileExtension
)

// Config is the runtime configuration, read from .env and the environment
type Config struct {
	RootPath         string
	Codec            compressor.Type
	CompactThreshold float64
	LegacyPaddedKeys bool
	LogLevel         slog.Level
}

// StorePath is where the progress store lives
func (c Config) StorePath() string {
	return filepath.Join(c.RootPath, "data", storeFileName)
}

// LoadConfig reads the configuration. Invalid values are logged and replaced by defaults.
func LoadConfig() Config {

	// a missing .env file is fine
	_ = godotenv.Load()

	cfg := Config{
		RootPath:         defaultRootPath(),
		Codec:            compressor.Snappy,
		CompactThreshold: defaultCompactThreshold,
		LegacyPaddedKeys: true,
		LogLevel:         parseLogLevel(defaultLogLevel),
	}

	if v := os.Getenv("PANDATALES_ROOT_PATH"); v != "" {
		cfg.RootPath = v
	}

	if v := os.Getenv("PANDATALES_COMPRESSION"); v != "" {
		codec, err := compressor.ParseType(v)
		if err != nil {
			slog.Warn("invalid PANDATALES_COMPRESSION, using snappy", "value", v, "error", err)
		} else {
			cfg.Codec = codec
		}
	}

	if v := os.Getenv("PANDATALES_COMPACT_THRESHOLD"); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil || threshold <= 0 || threshold > 1 {
			slog.Warn("PANDATALES_COMPACT_THRESHOLD must be a number between 0 and 1", "value", v)
		} else {
			cfg.CompactThreshold = threshold
		}
	}

	if v := os.Getenv("PANDATALES_LEGACY_PADDED_KEYS"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("PANDATALES_LEGACY_PADDED_KEYS must be true or false", "value", v)
		} else {
			cfg.LegacyPaddedKeys = enabled
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}

	return cfg
}

func defaultRootPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return defaultRootDir
	}
	return filepath.Join(home, defaultRootDir)
}

// parseLogLevel converts a level name to slog.Level, defaulting to warn
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// setupLogging installs a text handler on stderr so log lines never mix with command output
func setupLogging(level slog.Level) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
