package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pandatales/pandatales/app/core/progress"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every tale with its rating and read marker",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a := mustOpenApp(ctx)
		defer a.Close()

		if err := runList(ctx, a, os.Stdout); err != nil {
			exitWithError(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(ctx context.Context, a *app, w io.Writer) error {
	ratings, err := a.recorder.GetRatings(ctx, a.catalog.IDs())
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "📚 %d tales\n\n", a.catalog.Len())
	for _, t := range a.catalog.Tales() {
		read, err := a.recorder.HasRead(ctx, t.ID)
		if err != nil {
			return err
		}
		mark := "  "
		if read {
			mark = "✅"
		}
		fmt.Fprintf(w, "%s %-6s %-40s %s\n", mark, t.ID, t.Title, starString(ratings[t.ID]))
	}
	return nil
}

// starString renders a rating as filled and empty stars
func starString(stars int) string {
	stars = min(max(stars, 0), progress.MaxStars)
	return strings.Repeat("★", stars) + strings.Repeat("☆", progress.MaxStars-stars)
}
