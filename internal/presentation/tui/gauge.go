package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	gaugeFilledStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#7c3aed", Dark: "#a78bfa"})
	gaugeEmptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#d4d4d8", Dark: "#52525b"})
)

// RenderGauge draws one bar segment per beat, filled according to the
// engine's indicator projection (0..100 per segment). width is the total
// cell budget including the single-cell gaps between segments.
func RenderGauge(fills []float64, width int) string {
	n := len(fills)
	if n == 0 || width <= 0 {
		return ""
	}

	cells := width - (n - 1)
	if cells < n {
		cells = n // keep at least one cell per segment
	}
	base := cells / n
	extra := cells % n

	segments := make([]string, n)
	for i, fill := range fills {
		segWidth := base
		if i < extra {
			segWidth++
		}
		filled := int(math.Round(fill / 100 * float64(segWidth)))
		if filled < 0 {
			filled = 0
		} else if filled > segWidth {
			filled = segWidth
		}
		segments[i] = gaugeFilledStyle.Render(strings.Repeat("█", filled)) +
			gaugeEmptyStyle.Render(strings.Repeat("░", segWidth-filled))
	}

	return strings.Join(segments, " ")
}
