package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var compactJSONOutput bool

// compactCmd represents the compact command
var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Compact the progress file to remove superseded records",
	Long: `
🔧 Progress File Compaction

Every change to your progress is appended to the progress file. Compaction
rewrites the file with only the current value of every record.

The store also compacts itself on open once fragmentation passes
PANDATALES_COMPACT_THRESHOLD; this command forces it.

USAGE:
  talesctl compact
  talesctl compact --json`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a := mustOpenApp(ctx)
		defer a.Close()

		if err := runCompact(a, os.Stdout, compactJSONOutput); err != nil {
			exitWithError(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(compactCmd)
	compactCmd.Flags().BoolVarP(&compactJSONOutput, "json", "j", false, "Output as JSON")
}

// CompactReport is the outcome of a compaction
type CompactReport struct {
	Path           string  `json:"path"`
	Duration       string  `json:"duration"`
	OldSize        int64   `json:"old_size_bytes"`
	NewSize        int64   `json:"new_size_bytes"`
	SpaceSaved     int64   `json:"space_saved_bytes"`
	FragBefore     float64 `json:"fragmentation_before"`
	FragAfter      float64 `json:"fragmentation_after"`
	EntriesRemoved int     `json:"entries_removed"`
	LiveEntries    int     `json:"live_entries"`
	Blocks         uint64  `json:"blocks"`
	Entries        uint64  `json:"entries"`
}

func runCompact(a *app, w io.Writer, asJSON bool) error {
	if a.file == nil {
		return errors.New("compaction needs a file backed store")
	}

	start := time.Now()
	result, err := a.file.Compact()
	if err != nil {
		return err
	}

	fragAfter, err := a.file.Fragmentation()
	if err != nil {
		return err
	}
	blocks, entries, err := a.file.Stats()
	if err != nil {
		return err
	}

	report := CompactReport{
		Path:           a.file.Path(),
		Duration:       time.Since(start).Round(time.Millisecond).String(),
		OldSize:        result.OldFileSize,
		NewSize:        result.NewFileSize,
		SpaceSaved:     result.OldFileSize - result.NewFileSize,
		FragBefore:     result.Fragmentation,
		FragAfter:      fragAfter,
		EntriesRemoved: result.RemovedEntries,
		LiveEntries:    result.LiveEntries,
		Blocks:         blocks,
		Entries:        entries,
	}

	if asJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	}

	fmt.Fprintln(w, "✅ Compaction finished")
	fmt.Fprintf(w, "   File:            %s\n", report.Path)
	fmt.Fprintf(w, "   Fragmentation:   %.1f%% → %.1f%%\n", report.FragBefore*100, report.FragAfter*100)
	fmt.Fprintf(w, "   Records removed: %d (kept %d)\n", report.EntriesRemoved, report.LiveEntries)
	fmt.Fprintf(w, "   Blocks:          %d (%d entries)\n", report.Blocks, report.Entries)
	fmt.Fprintf(w, "   Size:            %s → %s (saved %s)\n",
		formatBytes(report.OldSize), formatBytes(report.NewSize), formatBytes(report.SpaceSaved))
	fmt.Fprintf(w, "   Took:            %s\n", report.Duration)
	return nil
}

// formatBytes formats bytes to human readable format
func formatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
