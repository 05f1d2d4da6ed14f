package domain

import "time"

// Defaults for the recognized configuration surface.
const (
	DefaultBeatDuration       = 5 * time.Second
	DefaultPauseHoldThreshold = 250 * time.Millisecond
	DefaultTickInterval       = 15 * time.Millisecond
)

// Settings is the recognized configuration surface of a story instance.
// Unknown options are not an error; they are simply not read.
type Settings struct {
	// Start is the beat shown by Start. An unset or unresolvable ref falls
	// back to index 0 (never an error).
	Start BeatRef

	// AutoAdvance enables the progress clock: each beat arms a timer and
	// completion advances the story.
	AutoAdvance bool

	// BeatDuration is the time a beat stays up in auto mode. There is no
	// per-beat override.
	BeatDuration time.Duration

	// ForceManualAfter is the beat index at or past which auto advance
	// permanently stops for the rest of the run. Negative means never.
	ForceManualAfter int

	// EndOnLastBeat ends the story as soon as the last beat is shown by a
	// forward navigation.
	EndOnLastBeat bool

	// RestartTarget is the beat Restart navigates to. Unset means index 0.
	RestartTarget BeatRef

	// PauseHoldThreshold separates a quick tap from a sustained hold when
	// routing a pause release at the input boundary.
	PauseHoldThreshold time.Duration

	// TickInterval is the progress clock refresh cadence. It governs how
	// often indicators repaint, not completion correctness.
	TickInterval time.Duration
}

// DefaultSettings returns the settings a story runs with when the caller
// provides nothing: automatic advance with the documented timing defaults.
func DefaultSettings() Settings {
	return Settings{
		AutoAdvance:        true,
		BeatDuration:       DefaultBeatDuration,
		ForceManualAfter:   -1,
		PauseHoldThreshold: DefaultPauseHoldThreshold,
		TickInterval:       DefaultTickInterval,
	}
}

// Normalize fills zero or nonsensical values with defaults. It never turns a
// configured value off; it only repairs unusable ones.
func (s Settings) Normalize() Settings {
	if s.BeatDuration <= 0 {
		s.BeatDuration = DefaultBeatDuration
	}
	if s.PauseHoldThreshold <= 0 {
		s.PauseHoldThreshold = DefaultPauseHoldThreshold
	}
	if s.TickInterval <= 0 {
		s.TickInterval = DefaultTickInterval
	}
	return s
}
