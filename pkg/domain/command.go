package domain

import "fmt"

// Command is a semantic input command, the vocabulary spoken by input
// adapters (pointer, touch, keys, HTTP, MCP) to the navigator. Raw event
// capture stays outside the core; only these four verbs cross the boundary.
type Command string

const (
	// CommandAdvance requests the next beat.
	CommandAdvance Command = "advance"
	// CommandRetreat requests the previous beat.
	CommandRetreat Command = "retreat"
	// CommandPauseStart begins a press-and-hold pause.
	CommandPauseStart Command = "pause_start"
	// CommandPauseEnd releases a hold. Routing depends on hold duration:
	// a quick tap resumes and advances, a sustained hold only resumes.
	CommandPauseEnd Command = "pause_end"
)

// ParseCommand maps a wire string onto a Command.
func ParseCommand(s string) (Command, error) {
	switch Command(s) {
	case CommandAdvance, CommandRetreat, CommandPauseStart, CommandPauseEnd:
		return Command(s), nil
	default:
		return "", fmt.Errorf("unknown command %q", s)
	}
}
