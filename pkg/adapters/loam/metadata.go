package loam

// BeatMetadata represents the frontmatter of a beat document. It uses
// "mapstructure" tags to match standard frontmatter keys.
type BeatMetadata struct {
	ID    string `json:"id" mapstructure:"id"`
	Title string `json:"title" mapstructure:"title"`
	Skip  bool   `json:"skip" mapstructure:"skip"`

	// Position is the explicit sort key when the story has no manifest.
	// Either every beat declares one or none does.
	Position *int `json:"position,omitempty" mapstructure:"position"`

	// State carries free-form payload entries merged into the beat state.
	State map[string]any `json:"state,omitempty" mapstructure:"state"`
}
