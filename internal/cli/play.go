package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/aretw0/cadence"
	"github.com/aretw0/cadence/internal/presentation/player"
	"github.com/aretw0/cadence/internal/presentation/tui"
	"github.com/aretw0/cadence/pkg/domain"
)

// PlayOptions contains all the configuration for the play command.
type PlayOptions struct {
	Path     string
	Headless bool
	NoAuto   bool
	Duration time.Duration
	Debug    bool
	LogFile  string
}

// Play runs a story in the terminal, interactively unless Headless is set.
func Play(opts PlayOptions) error {
	logger, closeLog, err := newLogger(opts.Debug, opts.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	loader, err := newStoryLoader(opts.Path)
	if err != nil {
		return err
	}
	doc, err := loader.Load(context.Background())
	if err != nil {
		return fmt.Errorf("loading story: %w", err)
	}

	settings := doc.Settings
	if opts.NoAuto {
		settings.AutoAdvance = false
	}
	if opts.Duration > 0 {
		settings.BeatDuration = opts.Duration
	}

	// The player needs a real terminal. Piped output gets the line walk.
	if opts.Headless || !term.IsTerminal(int(os.Stdout.Fd())) {
		return playHeadless(doc, settings, logger)
	}
	return playInteractive(doc, settings, logger)
}

// playHeadless walks the story front to back on the line Runner, printing
// each beat. Useful for smoke-testing stories in scripts and CI.
func playHeadless(doc *domain.StoryDocument, settings domain.Settings, logger *slog.Logger) error {
	settings.AutoAdvance = false // stepping replaces the clock

	runner := cadence.NewRunner()
	runner.Input = os.Stdin
	runner.Output = os.Stdout
	runner.Headless = true

	story, err := cadence.New(runner,
		cadence.WithBeats(doc.Beats...),
		cadence.WithSettings(settings),
		cadence.WithName(doc.Name),
		cadence.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer story.Close()
	story.Title = doc.Title

	return runner.Run(context.Background(), story)
}

func playInteractive(doc *domain.StoryDocument, settings domain.Settings, logger *slog.Logger) error {
	tui.PrintBanner()

	model := player.New(player.Options{Render: tui.NewRenderer()})

	story, err := cadence.New(model.Presenter(),
		cadence.WithBeats(doc.Beats...),
		cadence.WithSettings(settings),
		cadence.WithName(doc.Name),
		cadence.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer story.Close()
	story.Title = doc.Title

	return player.Run(model.WithStory(story))
}
