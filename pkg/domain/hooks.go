package domain

import (
	"context"
	"time"
)

// HookPoint names a declared lifecycle extension point. The set is fixed at
// compile time; registering against anything else is rejected, there is no
// reflection or string-matching of method names.
type HookPoint string

const (
	// HookBeforeBindInput fires before a host binds raw input listeners.
	HookBeforeBindInput HookPoint = "before_bind_input"
	// HookPreShowBeat fires after a target beat is resolved and before its
	// state is applied to the presenter.
	HookPreShowBeat HookPoint = "pre_show_beat"
	// HookStoryStart fires once when Start first activates the story.
	HookStoryStart HookPoint = "story_start"
	// HookStoryEnd fires when the story transitions to Ended.
	HookStoryEnd HookPoint = "story_end"
	// HookStoryRestart fires when Restart re-enters the story.
	HookStoryRestart HookPoint = "story_restart"
)

// HookPoints lists every declared extension point.
func HookPoints() []HookPoint {
	return []HookPoint{
		HookBeforeBindInput,
		HookPreShowBeat,
		HookStoryStart,
		HookStoryEnd,
		HookStoryRestart,
	}
}

// Valid reports whether p is one of the declared points.
func (p HookPoint) Valid() bool {
	switch p {
	case HookBeforeBindInput, HookPreShowBeat, HookStoryStart, HookStoryEnd, HookStoryRestart:
		return true
	}
	return false
}

// HookEvent is the payload delivered to hook callbacks.
type HookEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Point     HookPoint `json:"point"`
	BeatID    BeatID    `json:"beat_id,omitempty"`
	BeatIndex int       `json:"beat_index"`
}

// HookFunc is a lifecycle callback. A returned error propagates to whoever
// triggered the dispatch; the dispatcher does not swallow integration bugs.
// Callbacks run inside the engine's critical section: do not call back into
// the story from one. The event carries what observers need.
type HookFunc func(context.Context, *HookEvent) error
