package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var musicCmd = &cobra.Command{
	Use:   "music [on|off|toggle]",
	Short: "Show or change the background music setting",
	Long: `Show or change the background music setting. Music is on until you turn it off.

EXAMPLES:
  talesctl music
  talesctl music off
  talesctl music toggle`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"on", "off", "toggle"},
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a := mustOpenApp(ctx)
		defer a.Close()

		action := ""
		if len(args) == 1 {
			action = args[0]
		}
		if err := runMusic(ctx, a, os.Stdout, action); err != nil {
			exitWithError(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(musicCmd)
}

func runMusic(ctx context.Context, a *app, w io.Writer, action string) error {
	var (
		on  bool
		err error
	)

	switch action {
	case "":
		on, err = a.settings.MusicEnabled(ctx)
	case "on", "off":
		on = action == "on"
		if err = a.settings.SetMusicEnabled(ctx, on); err == nil {
			err = a.music.SetEnabled(ctx, on)
		}
	case "toggle":
		on, err = a.music.Toggle(ctx, a.settings)
	default:
		return fmt.Errorf("unknown music action %q, expected on, off or toggle", action)
	}
	if err != nil {
		return err
	}

	if on {
		fmt.Fprintln(w, "🎵 Music is on")
	} else {
		fmt.Fprintln(w, "🔇 Music is off")
	}
	return nil
}
