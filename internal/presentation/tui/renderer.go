package tui

import (
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders beat markdown with glamour.
// Styling follows the terminal background automatically.
func NewRenderer() func(string) (string, error) {
	// Style preferences could be injected here later.
	r, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Detect light/dark background
	)

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}
