package runtime

import (
	"github.com/aretw0/cadence/pkg/domain"
)

// Registry is the ordered mapping from beat id to beat state. Registration
// order is permanent navigation order: entries are never removed or
// reordered for the lifetime of a story instance.
type Registry struct {
	entries []domain.Beat
	pos     map[domain.BeatID]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{pos: make(map[domain.BeatID]int)}
}

// Register appends a beat. On a duplicate id the registry is left unchanged
// and a DuplicateBeatError is returned.
func (r *Registry) Register(id domain.BeatID, state domain.BeatState) error {
	if _, exists := r.pos[id]; exists {
		return &domain.DuplicateBeatError{ID: id}
	}
	r.pos[id] = len(r.entries)
	r.entries = append(r.entries, domain.Beat{ID: id, State: state})
	return nil
}

// Size returns the count of registered beats.
func (r *Registry) Size() int { return len(r.entries) }

// At returns the beat at a position, or an IndexOutOfRangeError.
func (r *Registry) At(index int) (domain.Beat, error) {
	if index < 0 || index >= len(r.entries) {
		return domain.Beat{}, &domain.IndexOutOfRangeError{Index: index, Size: len(r.entries)}
	}
	return r.entries[index], nil
}

// Resolve maps a reference (id or index) onto its position and beat. Both an
// absent id and an out-of-range index fail with a BeatNotFoundError; the
// unset ref resolves as index 0.
func (r *Registry) Resolve(ref domain.BeatRef) (int, domain.Beat, error) {
	if id, ok := ref.ID(); ok {
		if i, found := r.pos[id]; found {
			return i, r.entries[i], nil
		}
		return 0, domain.Beat{}, &domain.BeatNotFoundError{Ref: string(id)}
	}
	index, _ := ref.Index()
	beat, err := r.At(index)
	if err != nil {
		return 0, domain.Beat{}, &domain.BeatNotFoundError{Ref: ref.String()}
	}
	return index, beat, nil
}

// Beats returns a copy of the entries in navigation order.
func (r *Registry) Beats() []domain.Beat {
	out := make([]domain.Beat, len(r.entries))
	copy(out, r.entries)
	return out
}
