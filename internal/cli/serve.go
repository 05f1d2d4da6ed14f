package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	httpadapter "github.com/aretw0/cadence/pkg/adapters/http"
	"github.com/aretw0/cadence/pkg/ports"
)

// ServeOptions contains all the configuration for the serve command.
type ServeOptions struct {
	Path    string
	Port    int
	Watch   bool
	Debug   bool
	LogFile string
}

// Serve runs the development HTTP harness until a signal arrives.
func Serve(opts ServeOptions) error {
	logger, closeLog, err := newLogger(opts.Debug, opts.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	loader, err := newStoryLoader(opts.Path)
	if err != nil {
		return err
	}

	server := httpadapter.NewServer(loader, httpadapter.WithLogger(logger))
	defer server.Close()

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	if opts.Watch {
		watchable, ok := loader.(ports.Watchable)
		if !ok {
			return fmt.Errorf("--watch needs a story directory, not a single file")
		}
		changes, err := watchable.Watch(sigCtx)
		if err != nil {
			return fmt.Errorf("starting watcher: %w", err)
		}
		go func() {
			for range changes {
				logger.Info("Story changed on disk")
				printSystemMessage("Change detected.")
			}
		}()
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: server.Handler(),
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		printSystemMessage("Serving story at http://localhost:%d", opts.Port)
		printSystemMessage("Story source: %s", opts.Path)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case <-sigCtx.Done():
		printSystemMessage("Shutdown... Signal: %v", sigCtx.Signal())

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			if cerr := srv.Close(); cerr != nil {
				return fmt.Errorf("killing server: %w", cerr)
			}
		}
		printSystemMessage("Server stopped gracefully.")
		return nil
	}
}
