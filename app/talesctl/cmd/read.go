package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pandatales/pandatales/app/core/progress"
	"github.com/pandatales/pandatales/app/core/tales"
	"github.com/pandatales/pandatales/app/panichandler"
	"github.com/pandatales/pandatales/app/talesctl/cmd/reader"
	"github.com/spf13/cobra"
)

var readCmd = &cobra.Command{
	Use:   "read <tale>",
	Short: "Read a tale in the interactive reader",
	Long: `Open a tale in the interactive reader. Pick a path with the arrow keys and
enter; reaching an ending marks the tale as read for today.

EXAMPLES:
  talesctl read lotus
  talesctl read wind`,
	Args: cobra.ExactArgs(1),
	Run:  runRead,
}

func init() {
	rootCmd.AddCommand(readCmd)
}

func runRead(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := mustOpenApp(ctx)
	defer a.Close()

	tale, err := a.catalog.Get(args[0])
	if err != nil {
		exitWithError(err)
	}

	stars, err := a.recorder.GetRating(ctx, tale.ID)
	if err != nil {
		exitWithError(err)
	}

	if _, err := a.music.Sync(ctx, a.settings); err != nil {
		slog.Warn("failed to start music", "error", err)
	}
	defer func() {
		if err := a.music.Stop(context.Background()); err != nil {
			slog.Warn("failed to stop music", "error", err)
		}
	}()

	session := tales.NewSession(tale, a.recorder.MarkStoryReadToday)
	p := tea.NewProgram(reader.NewModel(ctx, session, a.recorder, stars), tea.WithAltScreen())

	watcher := progress.NewWatcher(a.bus, a.aggregator)
	panichandler.SafeGo("reader progress watcher", func() {
		_ = watcher.Run(ctx, func(s progress.Snapshot) {
			p.Send(reader.SnapshotMsg(s))
		})
	})

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running reader: %v\n", err)
		os.Exit(1)
	}

	if session.Finished() {
		fmt.Printf("📖 %s finished. See your progress with: talesctl stats\n", tale.Title)
	}
}
