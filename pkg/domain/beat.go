package domain

import "fmt"

// Recognized BeatState keys. The engine itself consults only KeySkip; the
// rest are loader conventions read by presentation layers.
const (
	// KeySkip marks a beat that navigation bypasses transparently.
	KeySkip = "skip"
	// KeyTitle is the display title of a beat.
	KeyTitle = "title"
	// KeyContent is the renderable (markdown) body of a beat.
	KeyContent = "content"
)

// BeatID is the opaque identifier of a beat, unique within a story and
// immutable after registration.
type BeatID string

// BeatState is the caller-owned payload attached to a beat at registration
// time. The engine never mutates it and reads exactly one recognized key,
// KeySkip. Everything else is opaque to the core.
type BeatState map[string]any

// Skip reports whether the beat is flagged to be bypassed by navigation.
// Absent or non-boolean values mean false.
func (s BeatState) Skip() bool {
	v, ok := s[KeySkip].(bool)
	return ok && v
}

// Title returns the display title convention field, if present.
func (s BeatState) Title() string {
	v, _ := s[KeyTitle].(string)
	return v
}

// Content returns the renderable body convention field, if present.
func (s BeatState) Content() string {
	v, _ := s[KeyContent].(string)
	return v
}

// Beat pairs an identifier with its state payload. Position is not stored;
// it is always derived from registration order.
type Beat struct {
	ID    BeatID    `json:"id" yaml:"id"`
	State BeatState `json:"state,omitempty" yaml:"state,omitempty"`
}

// refKind discriminates how a BeatRef addresses a beat.
type refKind int

const (
	refNone refKind = iota
	refByID
	refByIndex
)

// BeatRef references a beat either by id or by zero-based index. The zero
// value is "unset", which resolvers treat as index 0.
type BeatRef struct {
	kind  refKind
	id    BeatID
	index int
}

// RefID builds a reference by beat identifier.
func RefID(id BeatID) BeatRef {
	return BeatRef{kind: refByID, id: id}
}

// RefIndex builds a reference by zero-based position.
func RefIndex(index int) BeatRef {
	return BeatRef{kind: refByIndex, index: index}
}

// ParseRef converts a loosely typed configuration value (string id, integer
// index, or an existing BeatRef) into a BeatRef. Nil yields the unset ref.
func ParseRef(v any) (BeatRef, error) {
	switch t := v.(type) {
	case nil:
		return BeatRef{}, nil
	case BeatRef:
		return t, nil
	case BeatID:
		return RefID(t), nil
	case string:
		return RefID(BeatID(t)), nil
	case int:
		return RefIndex(t), nil
	case int64:
		return RefIndex(int(t)), nil
	case uint64:
		return RefIndex(int(t)), nil
	case float64:
		// JSON numbers decode as float64.
		return RefIndex(int(t)), nil
	default:
		return BeatRef{}, fmt.Errorf("beat reference must be a string id or an integer index, got %T", v)
	}
}

// IsZero reports whether the reference is unset.
func (r BeatRef) IsZero() bool { return r.kind == refNone }

// ID returns the referenced id and whether the ref is id-based.
func (r BeatRef) ID() (BeatID, bool) { return r.id, r.kind == refByID }

// Index returns the referenced index and whether the ref is index-based.
func (r BeatRef) Index() (int, bool) { return r.index, r.kind == refByIndex }

func (r BeatRef) String() string {
	switch r.kind {
	case refByID:
		return string(r.id)
	case refByIndex:
		return fmt.Sprintf("#%d", r.index)
	default:
		return "#0"
	}
}
