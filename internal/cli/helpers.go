// Package cli implements the command logic behind cmd/cadence. Commands are
// thin cobra shells; the behavior they share (loader selection, logging,
// signal handling, configuration) lives here.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aretw0/cadence/internal/logging"
)

// SignalContext wraps a context and captures the signal that cancelled it,
// so callers can tell an interrupt apart from a failure.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows
// retrieving the signal afterwards.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
				// Cancelled elsewhere
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// newLogger configures the command logger. Debug raises the terminal level;
// a log file additionally keeps a full-detail JSON trail. The returned
// closer releases the file handle.
func newLogger(debug bool, logFile string) (*slog.Logger, func() error, error) {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	if logFile != "" {
		return logging.NewWithFile(level, logFile)
	}
	if debug {
		return logging.New(level), noopClose, nil
	}
	return logging.NewNop(), noopClose, nil
}

func noopClose() error { return nil }

// printSystemMessage prints a standardized system message to stdout.
func printSystemMessage(format string, args ...any) {
	fmt.Printf(">>> %s\n", fmt.Sprintf(format, args...))
}
