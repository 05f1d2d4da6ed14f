package main

import (
	"fmt"
	"os"

	"github.com/aretw0/cadence/internal/cli"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp [story]",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts a story as an MCP server so AI agents can drive it as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		debug, logFile := globalLogging(cmd, cfg)

		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		opts := cli.MCPOptions{
			Path:      storyArg(args),
			Transport: transport,
			Port:      port,
			Debug:     debug,
			LogFile:   logFile,
		}
		if err := cli.RunMCP(opts); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
