package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var resetConfirmed bool

var errResetNotConfirmed = errors.New("reset needs --yes to confirm")

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove all reading progress",
	Long: `
🧹 Reset Progress

Removes every rating, read marker, daily activity and reading day record.
Settings such as the music preference are kept. This cannot be undone.

USAGE:
  talesctl reset --yes`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a := mustOpenApp(ctx)
		defer a.Close()

		if err := runReset(ctx, a, os.Stdout, resetConfirmed); err != nil {
			exitWithError(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
	resetCmd.Flags().BoolVarP(&resetConfirmed, "yes", "y", false, "Confirm removing all progress")
}

func runReset(ctx context.Context, a *app, w io.Writer, confirmed bool) error {
	if !confirmed {
		fmt.Fprintln(w, "⚠️  This removes every rating, read marker and streak record.")
		fmt.Fprintln(w, "   Run again with --yes to confirm.")
		return errResetNotConfirmed
	}

	removed, err := a.recorder.ClearAllProgress(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "✅ Progress cleared (%d records removed)\n", removed)
	return nil
}
