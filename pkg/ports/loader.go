package ports

import (
	"context"

	"github.com/aretw0/cadence/pkg/domain"
)

// StoryLoader defines how the engine retrieves a story definition.
// This allows the storage layer (Loam, YAML file, Memory) to be decoupled.
type StoryLoader interface {
	// Load retrieves the full story document: ordered beats plus the
	// settings the source carries.
	Load(ctx context.Context) (*domain.StoryDocument, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
// This is typically used for hot-reload or dev-mode functionality.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying story changes.
	// It abstracts away the specific event details, signaling only that a reload is required.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
