package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"os"

	"github.com/pandatales/pandatales/app/core/progress"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var statsJSONOutput bool

var quotes = []string{
	"A kind heart is stronger than any roar",
	"Bravery is choosing the gentle path",
	"Wisdom grows where patience lives",
	"Small steps awaken great journeys",
}

// lotusGlyphs has one glyph per bloom stage
var lotusGlyphs = [progress.LotusStages]string{"🌱", "🌿", "🌷", "🌸", "🪷"}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show your reading streak, counters and achievements",
	Long: `
📊 Reading Progress

Shows the streak card, the counters derived from your reading history and
every achievement with its progress.

USAGE:
  talesctl stats
  talesctl stats --json`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a := mustOpenApp(ctx)
		defer a.Close()

		var err error
		if statsJSONOutput {
			err = runStatsJSON(ctx, a, os.Stdout)
		} else {
			err = runStats(ctx, a, os.Stdout)
		}
		if err != nil {
			exitWithError(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVarP(&statsJSONOutput, "json", "j", false, "Output as JSON")
}

// StatsOutput is the JSON form of the stats command
type StatsOutput struct {
	Stats        progress.Stats      `json:"stats"`
	LotusStage   int                 `json:"lotusStage"`
	Earned       int                 `json:"earned"`
	Achievements []AchievementOutput `json:"achievements"`
}

// AchievementOutput is one achievement in StatsOutput
type AchievementOutput struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Hint    string `json:"hint"`
	Earned  bool   `json:"earned"`
	Current int    `json:"current"`
	Target  int    `json:"target"`
}

func buildStatsOutput(stats progress.Stats) StatsOutput {
	out := StatsOutput{
		Stats:      stats,
		LotusStage: progress.LotusStage(stats.StreakDays),
		Earned:     progress.CountEarned(stats),
	}
	for _, s := range progress.Evaluate(stats) {
		out.Achievements = append(out.Achievements, AchievementOutput{
			ID:      s.ID,
			Title:   s.Title,
			Hint:    s.Hint,
			Earned:  s.Earned,
			Current: s.Current,
			Target:  s.Target,
		})
	}
	return out
}

func runStatsJSON(ctx context.Context, a *app, w io.Writer) error {
	stats, err := a.aggregator.LoadStats(ctx)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildStatsOutput(stats))
}

func runStats(ctx context.Context, a *app, w io.Writer) error {
	stats, err := a.aggregator.LoadStats(ctx)
	if err != nil {
		return err
	}

	printStreakCard(w, stats.StreakDays, quotes[rand.IntN(len(quotes))])

	fmt.Fprintln(w, "📈 COUNTERS")
	fmt.Fprintf(w, "   Active days (last %d):  %d\n", progress.DefaultWindowDays, stats.ReadDays)
	fmt.Fprintf(w, "   Tales finished:         %d\n", stats.ReadStories)
	fmt.Fprintf(w, "   Tales rated:            %d\n", stats.RatedCount)
	fmt.Fprintf(w, "   Reading days:           %d\n", stats.LoginDays)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "🏆 ACHIEVEMENTS (%d/%d)\n", progress.CountEarned(stats), len(progress.Achievements()))
	for _, s := range progress.Evaluate(stats) {
		printAchievement(w, s)
	}
	return nil
}

// streakText is the headline of the streak card
func streakText(days int) string {
	unit := "days"
	if days == 1 {
		unit = "day"
	}
	return fmt.Sprintf("Your reading streak is %d %s", days, unit)
}

func printStreakCard(w io.Writer, streak int, quote string) {
	stage := progress.LotusStage(streak)
	fmt.Fprintln(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Fprintf(w, "  %s  %s\n", lotusGlyphs[stage], streakText(streak))
	fmt.Fprintln(w, "     Read every day to let your Lotus of Wisdom bloom.")
	fmt.Fprintf(w, "     “%s”\n", quote)
	fmt.Fprintln(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Fprintln(w)
}

func printAchievement(w io.Writer, s progress.AchievementStatus) {
	icon := "🔒"
	if s.Earned {
		icon = "✅"
	}

	bar := progressbar.NewOptions(s.Target,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(fmt.Sprintf("%s %-18s", icon, s.Title)),
		progressbar.OptionSetWidth(20),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetRenderBlankState(true),
	)
	_ = bar.Set(min(s.Current, s.Target))
	fmt.Fprintln(w)

	if !s.Earned {
		fmt.Fprintf(w, "      %s\n", s.Hint)
	}
}
