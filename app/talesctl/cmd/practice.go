package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/pandatales/pandatales/app/core/progress"
	"github.com/spf13/cobra"
)

var practiceFlags = []string{progress.FlagCalm, progress.FlagEnergy, progress.FlagFocus, progress.FlagDone}

var practiceCmd = &cobra.Command{
	Use:   "practice <calm|energy|focus|done>",
	Short: "Log a finished daily practice",
	Long: `Log a finished daily practice for today. Any practice counts as an
active day for the reading streak and the first-story achievement.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: practiceFlags,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a := mustOpenApp(ctx)
		defer a.Close()

		if err := runPractice(ctx, a, os.Stdout, args[0]); err != nil {
			exitWithError(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(practiceCmd)
}

func runPractice(ctx context.Context, a *app, w io.Writer, flag string) error {
	if !slices.Contains(practiceFlags, flag) {
		return fmt.Errorf("unknown practice %q, expected one of %v", flag, practiceFlags)
	}
	if err := a.recorder.RecordActivity(ctx, flag); err != nil {
		return err
	}

	streak, err := a.aggregator.Streak(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "🧘 %s practice logged. %s\n", flag, streakText(streak))
	return nil
}
