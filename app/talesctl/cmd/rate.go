package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pandatales/pandatales/app/core/progress"
	"github.com/spf13/cobra"
)

var rateCmd = &cobra.Command{
	Use:   "rate <tale> <stars>",
	Short: "Rate a tale with one to three stars",
	Long: `Rate a tale with one to three stars. A new rating replaces the old one.

EXAMPLES:
  talesctl rate lotus 3
  talesctl rate moon 1`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a := mustOpenApp(ctx)
		defer a.Close()

		if err := runRate(ctx, a, os.Stdout, args[0], args[1]); err != nil {
			exitWithError(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(rateCmd)
}

func runRate(ctx context.Context, a *app, w io.Writer, taleID, starsArg string) error {
	tale, err := a.catalog.Get(taleID)
	if err != nil {
		return err
	}

	stars, err := strconv.Atoi(starsArg)
	if err != nil {
		return fmt.Errorf("%w: %q is not a number", progress.ErrInvalidRating, starsArg)
	}

	if err := a.recorder.SetRating(ctx, tale.ID, stars); err != nil {
		return err
	}

	fmt.Fprintf(w, "⭐ %s rated %s\n", tale.Title, starString(stars))
	return nil
}
