package domain

import (
	"errors"
	"fmt"
)

// Sentinel targets for errors.Is checks. The typed errors below match them.
var (
	// ErrDuplicateBeat rejects registration of an already present id.
	ErrDuplicateBeat = errors.New("duplicate beat")

	// ErrBeatNotFound is returned when a reference resolves to nothing.
	ErrBeatNotFound = errors.New("beat not found")

	// ErrIndexOutOfRange is returned for positions outside [0, size).
	ErrIndexOutOfRange = errors.New("beat index out of range")

	// ErrUnknownHookPoint rejects registration against an undeclared point.
	ErrUnknownHookPoint = errors.New("unknown hook point")

	// ErrNoPresenter is returned by the facade when constructed without the
	// required presenter.
	ErrNoPresenter = errors.New("presenter is required")

	// ErrEmptyStory marks a loaded document with no beats.
	ErrEmptyStory = errors.New("story has no beats")
)

// DuplicateBeatError is a registration-time failure. The registry is left
// unchanged.
type DuplicateBeatError struct {
	ID BeatID
}

func (e *DuplicateBeatError) Error() string {
	return fmt.Sprintf("duplicate beat %q", e.ID)
}

func (e *DuplicateBeatError) Is(target error) bool { return target == ErrDuplicateBeat }

// BeatNotFoundError is a navigation-time failure for an id that is not
// registered. Navigation callers recover by falling back or no-opping.
type BeatNotFoundError struct {
	Ref string
}

func (e *BeatNotFoundError) Error() string {
	return fmt.Sprintf("beat %q not found", e.Ref)
}

func (e *BeatNotFoundError) Is(target error) bool { return target == ErrBeatNotFound }

// IndexOutOfRangeError is a navigation-time failure for a position outside
// the registry bounds.
type IndexOutOfRangeError struct {
	Index int
	Size  int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("beat index %d out of range [0, %d)", e.Index, e.Size)
}

func (e *IndexOutOfRangeError) Is(target error) bool { return target == ErrIndexOutOfRange }

// UnknownHookPointError is an integration-time failure surfaced to the
// integrator; it is never swallowed.
type UnknownHookPointError struct {
	Point HookPoint
}

func (e *UnknownHookPointError) Error() string {
	return fmt.Sprintf("unknown hook point %q", e.Point)
}

func (e *UnknownHookPointError) Is(target error) bool { return target == ErrUnknownHookPoint }
