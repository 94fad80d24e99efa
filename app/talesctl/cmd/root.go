package cmd

import (
	"fmt"
	"os"

	"github.com/pandatales/pandatales/app/paniclogger"
	"github.com/spf13/cobra"
)

// config is loaded once before any command runs
var config Config

var rootCmd = &cobra.Command{
	Use:     "talesctl",
	Short:   "Tales of the Magic Panda",
	Version: Version,
	Long: `
🐼 Tales of the Magic Panda (` + Version + `)

Read branching bedtime tales with Lin the panda, rate them, and keep your
daily reading streak alive until the Lotus of Wisdom blooms.

READING:
  list        Show every tale with its rating and read marker
  read        Open a tale in the interactive reader
  rate        Give a tale one to three stars
  practice    Log a daily practice (calm, energy, focus, done)

PROGRESS:
  stats       Show your streak, counters and achievements
  reset       Remove every rating, read marker and daily record

SETTINGS & MAINTENANCE:
  music       Show or change the background music setting
  compact     Rewrite the progress file without superseded records
  version     Display CLI and tale library versions

CONFIGURATION (environment or .env):
  PANDATALES_ROOT_PATH            data directory (default ~/.pandatales)
  PANDATALES_COMPRESSION          snappy, lz4 or zstd for new stores
  PANDATALES_COMPACT_THRESHOLD    fragmentation that triggers compaction (0-1)
  PANDATALES_LEGACY_PADDED_KEYS   also read 2024-05-09 style day keys
  LOG_LEVEL                       debug, info, warn or error

EXAMPLES:
  talesctl list
  talesctl read lotus
  talesctl rate lotus 3
  talesctl stats --json
`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config = LoadConfig()
		setupLogging(config.LogLevel)
		if err := paniclogger.Init(config.RootPath); err != nil {
			fmt.Fprintf(os.Stderr, "WARNING: failed to initialize panic logger: %v\n", err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if err := paniclogger.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "WARNING: failed to close panic logger: %v\n", err)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		exitWithError(err)
	}
}

func exitWithError(err error) {
	fmt.Println("❌ Error:", err)
	os.Exit(1)
}

func init() {
	// Disable Cobra's automatic "completion" command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("talesctl {{.Version}}\n")
}
