package main

import (
	"fmt"
	"os"

	"github.com/aretw0/cadence/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cadence",
	Short: "Cadence is a beat-driven interactive storytelling engine",
	Long: `Cadence plays stories as ordered beats: timed progression, manual
navigation, and press-to-pause, in the terminal or over HTTP.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging to stderr")
	rootCmd.PersistentFlags().String("log-file", "", "Append a JSON debug trail to this file")
}

// storyArg resolves the story path from the positional argument, defaulting
// to the current directory.
func storyArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// loadConfig reads the user config, falling back to defaults on problems.
func loadConfig() *cli.Config {
	cfg, err := cli.LoadConfig()
	if err != nil {
		fmt.Printf("Warning: ignoring malformed config: %v\n", err)
		return cli.DefaultConfig()
	}
	return cfg
}

// globalLogging merges the persistent logging flags with config values.
// Flags win when set explicitly.
func globalLogging(cmd *cobra.Command, cfg *cli.Config) (debug bool, logFile string) {
	debug, _ = cmd.Flags().GetBool("debug")
	logFile, _ = cmd.Flags().GetString("log-file")

	if !cmd.Flags().Changed("debug") && cfg.Log.Debug {
		debug = true
	}
	if !cmd.Flags().Changed("log-file") && cfg.Log.File != "" {
		logFile = cfg.Log.File
	}
	return debug, logFile
}
