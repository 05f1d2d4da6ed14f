package main

import (
	"fmt"
	"os"

	"github.com/aretw0/cadence/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [story]",
	Short: "Check a story for structural problems",
	Long: `Loads the story and reports duplicate or missing beat ids, empty
stories, and references that will fall back at play time. With --mermaid it
prints a flowchart of the beat sequence instead.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		debug, logFile := globalLogging(cmd, cfg)

		mermaid, _ := cmd.Flags().GetBool("mermaid")

		opts := cli.ValidateOptions{
			Path:    storyArg(args),
			Mermaid: mermaid,
			Debug:   debug,
			LogFile: logFile,
		}
		if err := cli.Validate(opts); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().Bool("mermaid", false, "Print a Mermaid diagram of the beat flow")
}
