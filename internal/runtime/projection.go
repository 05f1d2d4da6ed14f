package runtime

// Project maps navigator state onto per-beat indicator fills: every beat
// before current is 100, every beat after is 0, and the current beat shows
// the live progress, or 100 when the story is not advancing automatically.
// A current of size (one past the end) marks every beat complete; a negative
// current marks none.
func Project(size, current int, progress float64, auto bool) []float64 {
	fills := make([]float64, size)
	for i := range fills {
		switch {
		case i < current:
			fills[i] = 100
		case i == current:
			if auto {
				fills[i] = clampPercent(progress)
			} else {
				fills[i] = 100
			}
		}
	}
	return fills
}

// UpdateActive overwrites only the active segment in place. Tick handling
// uses it so a repaint does not recompute the whole projection.
func UpdateActive(fills []float64, current int, progress float64) {
	if current < 0 || current >= len(fills) {
		return
	}
	fills[current] = clampPercent(progress)
}

func clampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
