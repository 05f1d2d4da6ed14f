package cadence

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/cadence/pkg/domain"
	"github.com/aretw0/cadence/pkg/ports"
)

// Runner drives a story through line-oriented IO. It is itself a Presenter:
// construct it first, hand it to New, then call Run.
// This allows for easy testing and integration with different frontends;
// interactive terminals use the richer TUI player instead.
type Runner struct {
	ports.BasePresenter

	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ContentRenderer
}

// ContentRenderer is a function that transforms beat content before
// outputting it. This allows for TUI rendering (markdown to ANSI) without
// coupling the core package.
type ContentRenderer func(string) (string, error)

// NewRunner creates a new Runner. Input and Output must be set before Run
// (use os.Stdin and os.Stdout).
func NewRunner() *Runner {
	return &Runner{}
}

// ApplyBeatState prints the beat as it becomes visible.
func (r *Runner) ApplyBeatState(state domain.BeatState, id domain.BeatID, index int) {
	if r.Output == nil {
		return
	}
	if title := state.Title(); title != "" {
		fmt.Fprintf(r.Output, "\n%s\n\n", title)
	}
	content := state.Content()
	if content == "" {
		content = string(id)
	}
	if r.Renderer != nil {
		if rendered, err := r.Renderer(content); err == nil {
			content = rendered
		}
	}
	fmt.Fprintln(r.Output, strings.TrimSpace(content))
}

// RenderIndicators is intentionally silent: the projection repaints at tick
// cadence, far too often for line output.
func (r *Runner) RenderIndicators([]float64) {}

// ShowRestartControl announces the end-of-story affordance.
func (r *Runner) ShowRestartControl() {
	if r.Output != nil && !r.Headless {
		fmt.Fprintln(r.Output, "(end of story: 'r' restarts, 'q' quits)")
	}
}

// Run executes the story loop until the input closes, the user quits, or a
// headless run reaches the end.
func (r *Runner) Run(ctx context.Context, story *Story) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	lineReader := bufio.NewReader(r.Input)

	if err := story.DispatchHook(ctx, domain.HookBeforeBindInput); err != nil {
		return fmt.Errorf("input binding hook: %w", err)
	}

	story.Start(ctx)

	if r.Headless {
		return r.runHeadless(ctx, story)
	}

	for {
		fmt.Fprint(r.Output, "> ")
		text, err := lineReader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				// Graceful exit on EOF
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}

		switch strings.TrimSpace(text) {
		case "", "n", "next":
			story.Handle(ctx, domain.CommandAdvance)
		case "b", "back", "prev":
			story.Handle(ctx, domain.CommandRetreat)
		case "p", "pause":
			story.Handle(ctx, domain.CommandPauseStart)
		case "u", "resume":
			story.Unpause()
		case "r", "restart":
			story.Restart(ctx)
		case "e", "end":
			story.End(ctx)
		case "s", "state":
			snap := story.State()
			fmt.Fprintf(r.Output, "beat %s (%d/%d) status=%s\n",
				snap.CurrentID, snap.CurrentIndex+1, snap.Size, snap.Status)
		case "q", "quit", "exit":
			fmt.Fprintln(r.Output, "Bye!")
			return nil
		default:
			fmt.Fprintln(r.Output, "commands: next, back, pause, resume, restart, end, state, quit")
		}
	}
}

// runHeadless advances until the story ends or parks on its last beat.
func (r *Runner) runHeadless(ctx context.Context, story *Story) error {
	for {
		snap := story.State()
		if snap.Status != domain.StatusActive {
			return nil
		}
		story.Advance(ctx, 1)
		if story.State().CurrentIndex == snap.CurrentIndex {
			// Parked: last beat without EndOnLastBeat.
			return nil
		}
	}
}
