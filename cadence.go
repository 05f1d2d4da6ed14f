package cadence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/cadence/internal/logging"
	"github.com/aretw0/cadence/internal/runtime"
	"github.com/aretw0/cadence/pkg/domain"
	"github.com/aretw0/cadence/pkg/ports"
)

// Story is the high-level entry point for the cadence library.
// It wraps the internal navigator and provides a simplified API for hosts.
type Story struct {
	navigator      *runtime.Navigator
	registry       *runtime.Registry
	loader         ports.StoryLoader
	presenter      ports.Presenter
	settings       domain.Settings
	hasOwnSettings bool
	logger         *slog.Logger

	pendingBeats []domain.Beat
	pendingHooks []pendingHook

	Name  string
	Title string
}

type pendingHook struct {
	point domain.HookPoint
	fn    domain.HookFunc
}

// Option defines a functional option for configuring the Story.
type Option func(*Story)

// WithSettings replaces the default settings. It takes precedence over
// settings carried by a loaded document.
func WithSettings(settings domain.Settings) Option {
	return func(s *Story) {
		s.settings = settings
		s.hasOwnSettings = true
	}
}

// WithLogger sets a custom structured logger for the story.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Story) {
		s.logger = logger
	}
}

// WithLoader injects a StoryLoader; its document provides the beats, the
// title, and (absent WithSettings) the settings.
func WithLoader(l ports.StoryLoader) Option {
	return func(s *Story) {
		s.loader = l
	}
}

// WithBeats registers beats at construction time, after any loaded document.
func WithBeats(beats ...domain.Beat) Option {
	return func(s *Story) {
		s.pendingBeats = append(s.pendingBeats, beats...)
	}
}

// WithHook registers a lifecycle callback at construction time.
func WithHook(point domain.HookPoint, fn domain.HookFunc) Option {
	return func(s *Story) {
		s.pendingHooks = append(s.pendingHooks, pendingHook{point: point, fn: fn})
	}
}

// WithName sets the story name used to enrich logs, overriding the loaded
// document's name.
func WithName(name string) Option {
	return func(s *Story) {
		s.Name = name
	}
}

// New initializes a new Story bound to the given presenter.
// The presenter is the one required dependency; everything else has a
// default. Beats come from WithLoader, WithBeats, or RegisterBeat calls
// made before Start.
func New(presenter ports.Presenter, opts ...Option) (*Story, error) {
	s := &Story{
		presenter: presenter,
		settings:  domain.DefaultSettings(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.presenter == nil {
		return nil, domain.ErrNoPresenter
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}

	s.registry = runtime.NewRegistry()

	if s.loader != nil {
		doc, err := s.loader.Load(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to load story: %w", err)
		}
		if len(doc.Beats) == 0 {
			return nil, fmt.Errorf("story %q: %w", doc.Name, domain.ErrEmptyStory)
		}
		if s.Name == "" {
			s.Name = doc.Name
		}
		s.Title = doc.Title
		if !s.hasOwnSettings {
			s.settings = doc.Settings
		}
		for _, b := range doc.Beats {
			if err := s.registry.Register(b.ID, b.State); err != nil {
				return nil, fmt.Errorf("invalid story document: %w", err)
			}
		}
	}

	for _, b := range s.pendingBeats {
		if err := s.registry.Register(b.ID, b.State); err != nil {
			return nil, err
		}
	}
	s.pendingBeats = nil

	if s.Name != "" {
		s.logger = s.logger.With("story", s.Name)
	}

	s.navigator = runtime.NewNavigator(s.registry, s.presenter, s.settings,
		runtime.WithLogger(s.logger),
	)

	for _, h := range s.pendingHooks {
		if err := s.navigator.Hooks().Register(h.point, h.fn); err != nil {
			return nil, err
		}
	}
	s.pendingHooks = nil

	return s, nil
}

// RegisterBeat appends a beat to the story. Registration order is the
// navigation order and is permanent; a duplicate id is rejected and the
// story is left unchanged. Typically called before Start.
func (s *Story) RegisterBeat(id domain.BeatID, state domain.BeatState) error {
	return s.registry.Register(id, state)
}

// Start activates the story on its configured starting beat. Calling it
// twice, or on a story with no beats, is a logged no-op.
func (s *Story) Start(ctx context.Context) {
	s.navigator.Start(ctx)
}

// ShowBeat navigates directly to a beat addressed by id (string) or
// zero-based index (integer). The error covers only an unparseable
// reference; an unknown beat is a logged no-op, like every navigation
// dead end.
func (s *Story) ShowBeat(ctx context.Context, ref any) error {
	r, err := domain.ParseRef(ref)
	if err != nil {
		return err
	}
	s.navigator.ShowBeat(ctx, r)
	return nil
}

// Advance moves forward by step beats (step < 1 means 1), skipping flagged
// beats forward. At the last beat it does nothing.
func (s *Story) Advance(ctx context.Context, step int) {
	s.navigator.Advance(ctx, step)
}

// Retreat moves backward by step beats (step < 1 means 1), skipping flagged
// beats backward. At the first beat it does nothing.
func (s *Story) Retreat(ctx context.Context, step int) {
	s.navigator.Retreat(ctx, step)
}

// End transitions the story to its ended state. Idempotent.
func (s *Story) End(ctx context.Context) {
	s.navigator.End(ctx)
}

// Restart re-enters the story at the configured restart target, releasing
// the forced-manual latch and the end-of-story affordances.
func (s *Story) Restart(ctx context.Context) {
	s.navigator.Restart(ctx)
}

// Pause freezes the progress clock and starts hold measurement.
func (s *Story) Pause() {
	s.navigator.Pause()
}

// Unpause resumes the progress clock without advancing.
func (s *Story) Unpause() {
	s.navigator.Unpause()
}

// IsHolding reports whether the current pause already qualifies as a
// sustained hold rather than a tap.
func (s *Story) IsHolding() bool {
	return s.navigator.IsHolding()
}

// Handle routes a semantic input command to the navigator.
func (s *Story) Handle(ctx context.Context, cmd domain.Command) {
	s.navigator.Handle(ctx, cmd)
}

// State returns a read-only snapshot of the story state.
func (s *Story) State() domain.StateSnapshot {
	return s.navigator.Snapshot()
}

// Indicators returns the current per-beat progress projection.
func (s *Story) Indicators() []float64 {
	return s.navigator.Indicators()
}

// Beats returns the registered beats in navigation order.
func (s *Story) Beats() []domain.Beat {
	return s.registry.Beats()
}

// Size returns the number of registered beats.
func (s *Story) Size() int {
	return s.registry.Size()
}

// Settings returns the effective (normalized) settings.
func (s *Story) Settings() domain.Settings {
	return s.settings.Normalize()
}

// RegisterHook attaches a callback to a declared lifecycle point. Unknown
// points are rejected.
func (s *Story) RegisterHook(point domain.HookPoint, fn domain.HookFunc) error {
	return s.navigator.Hooks().Register(point, fn)
}

// DispatchHook runs the callbacks of a host-driven point, such as
// HookBeforeBindInput before an adapter binds raw input listeners. The
// first callback error stops the dispatch and is returned.
func (s *Story) DispatchHook(ctx context.Context, point domain.HookPoint) error {
	snap := s.navigator.Snapshot()
	return s.navigator.Hooks().Dispatch(ctx, point, snap.CurrentID, snap.CurrentIndex)
}

// Watch returns a channel that signals when the underlying story document
// changes. Returns an error if the loader does not support watching.
func (s *Story) Watch(ctx context.Context) (<-chan struct{}, error) {
	if w, ok := s.loader.(ports.Watchable); ok {
		return w.Watch(ctx)
	}
	return nil, fmt.Errorf("current loader does not support watching")
}

// Loader returns the underlying StoryLoader, if any.
func (s *Story) Loader() ports.StoryLoader {
	return s.loader
}

// Close releases the progress clock and any pending end-of-story timer. The
// story is not reusable afterwards.
func (s *Story) Close() {
	s.navigator.Close()
}
