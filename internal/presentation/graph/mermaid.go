package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/cadence/pkg/domain"
)

// Overlay contains live playback state to highlight on the flow.
type Overlay struct {
	VisitedBeats []domain.BeatID
	CurrentBeat  domain.BeatID
}

// GenerateMermaid produces a Mermaid flowchart of a story's beat sequence.
// Shapes and styles carry navigation semantics:
// - Start beat: ((Circle))
// - Skip beats: grayed, with dashed edges (navigation scans past them)
// - Restart target: labeled dotted edge from the last beat
// It also applies overlay styles (Visited/Current) if provided.
func GenerateMermaid(doc *domain.StoryDocument, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	startIndex := resolveIndex(doc.Beats, doc.Settings.Start)

	var skipIDs []string
	for i, beat := range doc.Beats {
		// Sanitize ID for Mermaid
		safeID := sanitizeMermaidID(string(beat.ID))

		opener, closer := "[", "]"
		if i == startIndex {
			opener, closer = "((", "))" // Circle
		}

		label := fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, beat.ID, closer)
		if title := beat.State.Title(); title != "" {
			// Escape double quotes in the title for Mermaid
			safeTitle := strings.ReplaceAll(title, "\"", "'")
			label = fmt.Sprintf("    %s%s\"%s <br/> %s\"%s\n", safeID, opener, beat.ID, safeTitle, closer)
		}
		sb.WriteString(label)

		if beat.State.Skip() {
			skipIDs = append(skipIDs, safeID)
		}

		// Forward edge. Edges touching a skip beat are dashed: navigation
		// never lands there.
		if i+1 < len(doc.Beats) {
			next := doc.Beats[i+1]
			arrow := "-->"
			if beat.State.Skip() || next.State.Skip() {
				arrow = "-.->"
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeID, arrow, sanitizeMermaidID(string(next.ID))))
		}
	}

	// Restart loops from the last beat back to its target.
	if n := len(doc.Beats); n > 1 {
		restartIndex := resolveIndex(doc.Beats, doc.Settings.RestartTarget)
		if restartIndex != n-1 {
			from := sanitizeMermaidID(string(doc.Beats[n-1].ID))
			to := sanitizeMermaidID(string(doc.Beats[restartIndex].ID))
			sb.WriteString(fmt.Sprintf("    %s -. \"restart\" .-> %s\n", from, to))
		}
	}

	if len(skipIDs) > 0 {
		sb.WriteString("\n    %% Skip Styles\n")
		sb.WriteString("    classDef skip fill:#f4f4f5,stroke:#a1a1aa,stroke-dasharray:4,color:#000;\n")
		for _, id := range skipIDs {
			sb.WriteString(fmt.Sprintf("    class %s skip;\n", id))
		}
	}

	// Apply Overlay Styles
	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme
		sb.WriteString("    classDef visited fill:#ede9fe,stroke:#6d28d9,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#fbbf24,stroke:#b45309,stroke-width:4px,color:#000;\n")

		// Deduplicate visited beats (using safeIDs)
		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedBeats {
			safeID := sanitizeMermaidID(string(id))
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}

		if overlay.CurrentBeat != "" {
			safeCurrent := sanitizeMermaidID(string(overlay.CurrentBeat))
			sb.WriteString(fmt.Sprintf("    class %s current;\n", safeCurrent))
		}
	}

	return sb.String()
}

// resolveIndex mirrors the play-time fallback: an unresolvable reference
// means index 0.
func resolveIndex(beats []domain.Beat, ref domain.BeatRef) int {
	if id, ok := ref.ID(); ok {
		for i, b := range beats {
			if b.ID == id {
				return i
			}
		}
		return 0
	}
	index, _ := ref.Index()
	if index < 0 || index >= len(beats) {
		return 0
	}
	return index
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
