package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/cadence/internal/presentation/graph"
	"github.com/aretw0/cadence/internal/validator"
)

// ValidateOptions contains all the configuration for the validate command.
type ValidateOptions struct {
	Path    string
	Mermaid bool
	Debug   bool
	LogFile string
}

// Validate loads a story and reports structural problems. Errors make the
// story unplayable; warnings describe fallbacks that will kick in at play
// time. With Mermaid set it prints the beat-flow diagram instead.
func Validate(opts ValidateOptions) error {
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
	logger.Debug("Story loaded", "name", doc.Name, "beats", len(doc.Beats))

	if opts.Mermaid {
		fmt.Print(graph.GenerateMermaid(doc, nil))
		return nil
	}

	result := validator.Validate(doc)
	for _, issue := range result.Issues {
		fmt.Fprintln(os.Stderr, issue.String())
	}
	if !result.OK() {
		return fmt.Errorf("story %q has %d error(s)", doc.Name, len(result.Errors()))
	}

	if warnings := result.Warnings(); len(warnings) > 0 {
		printSystemMessage("Story %q is playable with %d warning(s).", doc.Name, len(warnings))
	} else {
		printSystemMessage("Story %q is valid.", doc.Name)
	}
	return nil
}
