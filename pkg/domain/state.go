package domain

// StoryStatus defines the lifecycle phase of a story instance.
type StoryStatus string

const (
	StatusNotStarted StoryStatus = "not_started" // Constructed, Start not yet called
	StatusActive     StoryStatus = "active"      // A beat is currently shown
	StatusEnded      StoryStatus = "ended"       // End-of-story condition fired
)

// StateSnapshot is a read-only view of the navigator state. It is what
// adapters (HTTP, MCP, players) serialize; the live state is owned
// exclusively by the navigator and never shared.
type StateSnapshot struct {
	// CurrentIndex is the zero-based position of the active beat.
	CurrentIndex int `json:"current_index"`

	// CurrentID is the identifier of the active beat.
	CurrentID BeatID `json:"current_id"`

	// Status indicates whether the story is not started, active, or ended.
	Status StoryStatus `json:"status"`

	// Paused reports whether the progress clock is currently frozen.
	Paused bool `json:"paused"`

	// ForcedManual reports whether auto advance has been permanently
	// stopped for the remainder of this run (until restart).
	ForcedManual bool `json:"forced_manual"`

	// AutoAdvance reports whether the story is configured to advance on
	// clock completion.
	AutoAdvance bool `json:"auto_advance"`

	// Size is the number of registered beats.
	Size int `json:"size"`

	// Progress is the normalized progress (0..100) of the active beat's
	// clock, or 100 when the story is not advancing automatically.
	Progress float64 `json:"progress"`
}

// StoryDocument is a fully loaded story: ordered beats plus the settings the
// document carries. Loaders produce it; the facade consumes it.
type StoryDocument struct {
	// Name is a short machine name for the story, used to enrich logs.
	Name string `json:"name" yaml:"name"`

	// Title is the human-facing story title.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Beats in navigation order.
	Beats []Beat `json:"beats" yaml:"beats"`

	// Settings holds the document's configuration surface. Zero values are
	// normalized with defaults by the facade.
	Settings Settings `json:"settings" yaml:"-"`
}
