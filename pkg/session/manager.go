package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"log/slog"

	"github.com/aretw0/cadence"
	"github.com/aretw0/cadence/internal/logging"
)

// ErrNotFound is returned when a session id has no live playthrough.
var ErrNotFound = errors.New("session not found")

// Factory builds the live story backing a new session. It is called at most
// once per session id and must return a fully prepared instance (Start
// already called if the host wants the first beat shown). The manager owns
// the returned story until Delete or Close.
type Factory func(ctx context.Context, sessionID string) (*cadence.Story, error)

// Session is one live playthrough of a story.
type Session struct {
	ID        string
	Story     *cadence.Story
	StartedAt time.Time
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager hands out live playthroughs keyed by session id, ensuring safe
// concurrent access. It uses Reference Counting to garbage collect unused
// locks.
type Manager struct {
	factory Factory

	mu       sync.Mutex            // Global lock for the maps
	locks    map[string]*lockEntry // Map of active locks
	sessions map[string]*Session   // Live playthroughs

	logger *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new session Manager with the given story factory.
func NewManager(factory Factory, opts ...Option) *Manager {
	m := &Manager{
		factory:  factory,
		locks:    make(map[string]*lockEntry),
		sessions: make(map[string]*Session),
		logger:   logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after
// unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches
// zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return // Should not happen if paired correctly
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// withLock executes fn while holding the lock for the session.
func (m *Manager) withLock(sessionID string, fn func() error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()
	return fn()
}

// lookup reads the session map. Safe to call while holding an entry lock.
func (m *Manager) lookup(sessionID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[sessionID]
}

// ensure returns the existing session or creates one via the factory. The
// caller must hold the session's entry lock so concurrent first requests
// cannot both build a playthrough.
func (m *Manager) ensure(ctx context.Context, sessionID string) (*Session, bool, error) {
	if sess := m.lookup(sessionID); sess != nil {
		return sess, false, nil
	}

	story, err := m.factory(ctx, sessionID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to initialize session: %w", err)
	}

	sess := &Session{
		ID:        sessionID,
		Story:     story,
		StartedAt: time.Now(),
	}

	m.mu.Lock()
	m.sessions[sessionID] = sess
	m.mu.Unlock()

	m.logger.Info("Session started", "session_id", sessionID)
	return sess, true, nil
}

// GetOrStart returns the session for the id, creating and starting a fresh
// playthrough on first use. The second return reports whether this call
// created it.
func (m *Manager) GetOrStart(ctx context.Context, sessionID string) (*Session, bool, error) {
	var (
		sess    *Session
		created bool
	)
	err := m.withLock(sessionID, func() error {
		var err error
		sess, created, err = m.ensure(ctx, sessionID)
		return err
	})
	return sess, created, err
}

// Get returns an existing session or ErrNotFound.
func (m *Manager) Get(sessionID string) (*Session, error) {
	if sess := m.lookup(sessionID); sess != nil {
		return sess, nil
	}
	return nil, ErrNotFound
}

// WithSession runs fn against the session, creating it on first use, while
// holding the session lock. Hosts route command sequences through here so
// they apply one at a time.
func (m *Manager) WithSession(ctx context.Context, sessionID string, fn func(context.Context, *Session) error) error {
	return m.withLock(sessionID, func() error {
		sess, _, err := m.ensure(ctx, sessionID)
		if err != nil {
			return err
		}
		return fn(ctx, sess)
	})
}

// Delete retires the playthrough and releases its resources.
func (m *Manager) Delete(sessionID string) error {
	return m.withLock(sessionID, func() error {
		sess := m.lookup(sessionID)
		if sess == nil {
			return ErrNotFound
		}

		m.mu.Lock()
		delete(m.sessions, sessionID)
		m.mu.Unlock()

		sess.Story.Close()
		m.logger.Info("Session deleted", "session_id", sessionID)
		return nil
	})
}

// List returns the ids of live sessions, sorted.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close retires every live session. The manager stays usable afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	retired := make([]*Session, 0, len(m.sessions))
	for id, sess := range m.sessions {
		retired = append(retired, sess)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, sess := range retired {
		sess.Story.Close()
	}
}
