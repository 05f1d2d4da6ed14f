package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/cadence/pkg/domain"
)

// Hooks dispatches callbacks registered against the declared lifecycle
// points. The point set is fixed; registration against anything else is an
// UnknownHookPointError. Callbacks run synchronously in registration order
// and the first failure stops the dispatch and propagates, so integration
// bugs do not get swallowed.
type Hooks struct {
	mu        sync.RWMutex
	callbacks map[domain.HookPoint][]domain.HookFunc
}

// NewHooks creates an empty dispatcher.
func NewHooks() *Hooks {
	return &Hooks{callbacks: make(map[domain.HookPoint][]domain.HookFunc)}
}

// Register appends fn to the ordered list for point.
func (h *Hooks) Register(point domain.HookPoint, fn domain.HookFunc) error {
	if !point.Valid() {
		return &domain.UnknownHookPointError{Point: point}
	}
	if fn == nil {
		return fmt.Errorf("hook %s: nil callback", point)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.callbacks[point] = append(h.callbacks[point], fn)
	return nil
}

// Dispatch invokes all callbacks for point, in order, with an event carrying
// the beat position the dispatch is anchored to.
func (h *Hooks) Dispatch(ctx context.Context, point domain.HookPoint, id domain.BeatID, index int) error {
	if !point.Valid() {
		return &domain.UnknownHookPointError{Point: point}
	}
	h.mu.RLock()
	fns := h.callbacks[point]
	h.mu.RUnlock()
	if len(fns) == 0 {
		return nil
	}

	ev := &domain.HookEvent{
		Timestamp: time.Now(),
		Point:     point,
		BeatID:    id,
		BeatIndex: index,
	}
	for _, fn := range fns {
		if err := fn(ctx, ev); err != nil {
			return fmt.Errorf("hook %s: %w", point, err)
		}
	}
	return nil
}
