package memory

import (
	"context"
	"fmt"

	"github.com/aretw0/cadence/pkg/domain"
)

// Loader implements ports.StoryLoader over an in-memory document.
type Loader struct {
	doc domain.StoryDocument
}

// NewLoader creates a Loader serving the given document as-is.
func NewLoader(doc domain.StoryDocument) *Loader {
	return &Loader{doc: doc}
}

// NewFromBeats creates a Loader from domain objects with default settings.
// This improves DX for tests and embedded scenarios where no file system is
// wanted.
func NewFromBeats(beats ...domain.Beat) (*Loader, error) {
	seen := make(map[domain.BeatID]struct{}, len(beats))
	for _, b := range beats {
		if b.ID == "" {
			return nil, fmt.Errorf("beat missing ID")
		}
		if _, dup := seen[b.ID]; dup {
			return nil, &domain.DuplicateBeatError{ID: b.ID}
		}
		seen[b.ID] = struct{}{}
	}
	return &Loader{doc: domain.StoryDocument{
		Name:     "memory",
		Beats:    beats,
		Settings: domain.DefaultSettings(),
	}}, nil
}

// Load returns a copy of the document; callers cannot mutate the loader's
// beats through it.
func (l *Loader) Load(ctx context.Context) (*domain.StoryDocument, error) {
	doc := l.doc
	doc.Beats = make([]domain.Beat, len(l.doc.Beats))
	copy(doc.Beats, l.doc.Beats)
	return &doc, nil
}
