package main

import (
	"fmt"
	"os"

	"github.com/aretw0/cadence/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve [story]",
	Short: "Start the development HTTP server",
	Long: `Serves the story over HTTP: an embedded host page, a JSON command
API, server-sent events for live playback, and Prometheus metrics.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		debug, logFile := globalLogging(cmd, cfg)

		port, _ := cmd.Flags().GetInt("port")
		if !cmd.Flags().Changed("port") && cfg.Serve.Port != 0 {
			port = cfg.Serve.Port
		}
		watch, _ := cmd.Flags().GetBool("watch")

		opts := cli.ServeOptions{
			Path:    storyArg(args),
			Port:    port,
			Watch:   watch,
			Debug:   debug,
			LogFile: logFile,
		}
		if err := cli.Serve(opts); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().BoolP("watch", "w", false, "Log story changes on disk (hot reload for connected pages)")
}
