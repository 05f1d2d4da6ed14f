package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aretw0/cadence"
	mcpadapter "github.com/aretw0/cadence/pkg/adapters/mcp"
	"github.com/aretw0/cadence/pkg/ports"
)

// MCPOptions contains all the configuration for the mcp command.
type MCPOptions struct {
	Path      string
	Transport string // "stdio" or "sse"
	Port      int
	Debug     bool
	LogFile   string
}

// RunMCP exposes one story instance over the Model Context Protocol. The
// story is started up front so state tools answer immediately.
func RunMCP(opts MCPOptions) error {
	// Diagnostics stay on stderr either way; on stdio, JSON-RPC owns stdout.
	logger, closeLog, err := newLogger(opts.Debug, opts.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	loader, err := newStoryLoader(opts.Path)
	if err != nil {
		return err
	}

	story, err := cadence.New(ports.BasePresenter{},
		cadence.WithLoader(loader),
		cadence.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("initializing story: %w", err)
	}
	defer story.Close()
	story.Start(context.Background())

	srv := mcpadapter.NewServer(story, mcpadapter.WithLogger(logger))

	switch opts.Transport {
	case "stdio":
		logger.Info("Starting MCP server (stdio)")
		return srv.ServeStdio()

	case "sse":
		sigCtx := NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		logger.Info("Starting MCP server (SSE)", "port", opts.Port)
		if err := srv.ServeSSE(sigCtx, opts.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil

	default:
		return fmt.Errorf("unknown transport %q: supported are stdio and sse", opts.Transport)
	}
}
