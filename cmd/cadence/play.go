package main

import (
	"fmt"
	"os"

	"github.com/aretw0/cadence/internal/cli"
	"github.com/spf13/cobra"
)

// playCmd represents the play command
var playCmd = &cobra.Command{
	Use:   "play [story]",
	Short: "Play a story interactively in the terminal",
	Long: `Plays a story with the terminal player: timed beats, arrow-key
navigation, and press-and-hold pause. Use --headless for a plain
line-oriented walk (useful in scripts and CI).`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		debug, logFile := globalLogging(cmd, cfg)

		headless, _ := cmd.Flags().GetBool("headless")
		noAuto, _ := cmd.Flags().GetBool("no-auto")
		duration, _ := cmd.Flags().GetDuration("duration")

		if !cmd.Flags().Changed("no-auto") && cfg.Player.NoAuto {
			noAuto = true
		}
		if !cmd.Flags().Changed("duration") && cfg.Player.BeatDuration.Duration > 0 {
			duration = cfg.Player.BeatDuration.Duration
		}

		opts := cli.PlayOptions{
			Path:     storyArg(args),
			Headless: headless,
			NoAuto:   noAuto,
			Duration: duration,
			Debug:    debug,
			LogFile:  logFile,
		}
		if err := cli.Play(opts); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().Bool("headless", false, "Walk the story on stdin/stdout without the TUI")
	playCmd.Flags().Bool("no-auto", false, "Disable auto advance regardless of story settings")
	playCmd.Flags().Duration("duration", 0, "Override the per-beat duration (e.g. 3s)")

	// Make 'play' the default if no command is provided
	rootCmd.Run = playCmd.Run
	rootCmd.Args = cobra.MaximumNArgs(1)
}
