package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/cadence/internal/logging"
	"github.com/aretw0/cadence/pkg/domain"
	"github.com/aretw0/cadence/pkg/ports"
)

// continueAffordanceDelay is how long after end-of-story the continue
// affordance appears. The timer is canceled by restart.
const continueAffordanceDelay = 600 * time.Millisecond

// Navigator is the beat progression state machine. It owns the navigator
// state exclusively: current pointers, pause bookkeeping, the forced-manual
// latch and the end/restart lifecycle. All mutation happens under one mutex;
// the progress clock is the only other goroutine touching it, and its
// callbacks re-validate the beat they were armed for, so a replaced timer
// can never move the story.
type Navigator struct {
	registry  *Registry
	clock     *Clock
	hooks     *Hooks
	presenter ports.Presenter
	settings  domain.Settings
	logger    *slog.Logger
	now       func() time.Time

	mu             sync.Mutex
	status         domain.StoryStatus
	currentIndex   int
	currentID      domain.BeatID
	paused         bool
	pauseStartedAt time.Time
	forcedManual   bool
	progress       float64
	fills          []float64
	endTimer       *time.Timer
}

// NavigatorOption configures a Navigator.
type NavigatorOption func(*Navigator)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) NavigatorOption {
	return func(n *Navigator) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithClock injects the progress clock. Used by tests to drive ticks
// deterministically.
func WithClock(clock *Clock) NavigatorOption {
	return func(n *Navigator) {
		if clock != nil {
			n.clock = clock
		}
	}
}

// WithHooks injects a pre-populated hook dispatcher.
func WithHooks(hooks *Hooks) NavigatorOption {
	return func(n *Navigator) {
		if hooks != nil {
			n.hooks = hooks
		}
	}
}

// WithNavigatorNow injects the time source for hold measurement.
func WithNavigatorNow(now func() time.Time) NavigatorOption {
	return func(n *Navigator) {
		if now != nil {
			n.now = now
		}
	}
}

// NewNavigator creates a navigator over the given registry and presenter.
// Settings are normalized; the zero registry and a nil presenter are the
// caller's responsibility (the facade validates them).
func NewNavigator(registry *Registry, presenter ports.Presenter, settings domain.Settings, opts ...NavigatorOption) *Navigator {
	n := &Navigator{
		registry:  registry,
		presenter: presenter,
		settings:  settings.Normalize(),
		logger:    logging.NewNop(),
		now:       time.Now,
		status:    domain.StatusNotStarted,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.clock == nil {
		n.clock = NewClock(n.settings.TickInterval)
	}
	if n.hooks == nil {
		n.hooks = NewHooks()
	}
	return n
}

// Hooks exposes the dispatcher for registration and host-side dispatch.
func (n *Navigator) Hooks() *Hooks { return n.hooks }

// Start activates the story on the configured starting beat. Valid only
// from NotStarted; a misconfigured start falls back to index 0 and never
// errors. An empty registry is a logged no-op.
func (n *Navigator) Start(ctx context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.status != domain.StatusNotStarted {
		n.logger.Debug("start ignored", "status", string(n.status))
		return
	}
	if n.registry.Size() == 0 {
		n.logger.Warn("start ignored, no beats registered")
		return
	}

	n.status = domain.StatusActive
	if err := n.hooks.Dispatch(ctx, domain.HookStoryStart, "", 0); err != nil {
		n.logger.Error("story_start hook failed", "err", err)
	}

	if !n.showLocked(ctx, n.settings.Start, +1) {
		n.logger.Warn("starting beat unresolvable, falling back to first beat", "ref", n.settings.Start.String())
		n.showLocked(ctx, domain.RefIndex(0), +1)
	}
	n.presenter.EnableInput()
}

// ShowBeat navigates directly to a beat by id or index. Skip flags resolve
// forward; a bad reference or a skip scan past the bounds is a logged no-op.
func (n *Navigator) ShowBeat(ctx context.Context, ref domain.BeatRef) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.status != domain.StatusActive {
		n.logger.Debug("show ignored", "status", string(n.status), "ref", ref.String())
		return
	}
	n.showLocked(ctx, ref, +1)
}

// Advance moves forward by step (default 1), skipping flagged beats. At the
// last beat it is a silent no-op; there is no wraparound. When the shown
// beat is the last one and EndOnLastBeat is set, the story ends.
func (n *Navigator) Advance(ctx context.Context, step int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.advanceLocked(ctx, step)
}

func (n *Navigator) advanceLocked(ctx context.Context, step int) {
	if step <= 0 {
		step = 1
	}
	if n.status != domain.StatusActive {
		n.logger.Debug("advance ignored", "status", string(n.status))
		return
	}
	if n.currentIndex >= n.registry.Size()-1 {
		n.logger.Debug("advance ignored at last beat", "index", n.currentIndex)
		return
	}

	if !n.showLocked(ctx, domain.RefIndex(n.currentIndex+step), +1) {
		return
	}
	if n.settings.EndOnLastBeat && n.currentIndex == n.registry.Size()-1 {
		n.endLocked(ctx)
	}
}

// Retreat moves backward by step (default 1), skipping flagged beats
// backward. At the first beat it is a silent no-op and it never ends the
// story.
func (n *Navigator) Retreat(ctx context.Context, step int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if step <= 0 {
		step = 1
	}
	if n.status != domain.StatusActive {
		n.logger.Debug("retreat ignored", "status", string(n.status))
		return
	}
	if n.currentIndex <= 0 {
		n.logger.Debug("retreat ignored at first beat")
		return
	}

	n.showLocked(ctx, domain.RefIndex(n.currentIndex-step), -1)
}

// End transitions the story to Ended and performs the end-of-story side
// effects exactly once; a second call is a no-op.
func (n *Navigator) End(ctx context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.endLocked(ctx)
}

func (n *Navigator) endLocked(ctx context.Context) {
	if n.status == domain.StatusEnded {
		n.logger.Debug("end ignored, already ended")
		return
	}
	if n.status == domain.StatusNotStarted {
		n.logger.Debug("end ignored, not started")
		return
	}

	n.clock.Cancel()
	n.status = domain.StatusEnded
	n.paused = false
	n.pauseStartedAt = time.Time{}
	n.logger.Debug("story ended", "beat", string(n.currentID), "index", n.currentIndex)

	if err := n.hooks.Dispatch(ctx, domain.HookStoryEnd, n.currentID, n.currentIndex); err != nil {
		n.logger.Error("story_end hook failed", "err", err)
	}

	n.fills = Project(n.registry.Size(), n.registry.Size(), 0, false)
	n.presenter.RenderIndicators(cloneFills(n.fills))
	n.presenter.DisableInput()
	n.presenter.ShowRestartControl()

	p := n.presenter
	n.endTimer = time.AfterFunc(continueAffordanceDelay, p.ShowContinueAffordance)
}

// Restart re-enters the story from Ended or Active: the forced-manual latch
// and the ended flag are cleared and the configured restart target is shown.
func (n *Navigator) Restart(ctx context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.status == domain.StatusNotStarted {
		n.logger.Debug("restart ignored, not started")
		return
	}

	if n.endTimer != nil {
		n.endTimer.Stop()
		n.endTimer = nil
	}
	n.clock.Cancel()
	n.status = domain.StatusActive
	n.forcedManual = false
	n.paused = false
	n.pauseStartedAt = time.Time{}

	if err := n.hooks.Dispatch(ctx, domain.HookStoryRestart, n.currentID, n.currentIndex); err != nil {
		n.logger.Error("story_restart hook failed", "err", err)
	}

	n.presenter.HideContinueAffordance()
	n.presenter.HideRestartControl()
	n.presenter.EnableInput()

	n.showLocked(ctx, n.settings.RestartTarget, +1)
}

// Pause freezes the progress clock and records the hold start. Idempotent
// while paused.
func (n *Navigator) Pause() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.status != domain.StatusActive || n.paused {
		return
	}
	n.paused = true
	n.pauseStartedAt = n.now()
	n.clock.Pause()
	n.logger.Debug("paused", "beat", string(n.currentID))
}

// Unpause resumes the progress clock. Accumulated time is preserved; the
// paused span is excluded from the beat duration.
func (n *Navigator) Unpause() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.unpauseLocked()
}

func (n *Navigator) unpauseLocked() {
	if !n.paused {
		return
	}
	n.paused = false
	n.pauseStartedAt = time.Time{}
	n.clock.Resume()
	n.logger.Debug("resumed", "beat", string(n.currentID))
}

// IsHolding reports whether the current pause has lasted at least the
// configured hold threshold. It distinguishes a deliberate hold from a
// quick tap when routing a release.
func (n *Navigator) IsHolding() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.isHoldingLocked()
}

func (n *Navigator) isHoldingLocked() bool {
	if !n.paused || n.pauseStartedAt.IsZero() {
		return false
	}
	return n.now().Sub(n.pauseStartedAt) >= n.settings.PauseHoldThreshold
}

// Handle routes a semantic input command. A pause release resumes and, when
// the hold was shorter than the threshold, also advances (tap semantics).
func (n *Navigator) Handle(ctx context.Context, cmd domain.Command) {
	switch cmd {
	case domain.CommandAdvance:
		n.Advance(ctx, 1)
	case domain.CommandRetreat:
		n.Retreat(ctx, 1)
	case domain.CommandPauseStart:
		n.Pause()
	case domain.CommandPauseEnd:
		n.mu.Lock()
		held := n.isHoldingLocked()
		n.unpauseLocked()
		if !held {
			n.advanceLocked(ctx, 1)
		}
		n.mu.Unlock()
	default:
		n.logger.Warn("unknown command ignored", "command", string(cmd))
	}
}

// Snapshot returns a read-only view of the navigator state.
func (n *Navigator) Snapshot() domain.StateSnapshot {
	n.mu.Lock()
	defer n.mu.Unlock()

	progress := n.progress
	if !n.autoLocked() || n.status == domain.StatusEnded {
		progress = 100
	}
	return domain.StateSnapshot{
		CurrentIndex: n.currentIndex,
		CurrentID:    n.currentID,
		Status:       n.status,
		Paused:       n.paused,
		ForcedManual: n.forcedManual,
		AutoAdvance:  n.autoLocked(),
		Size:         n.registry.Size(),
		Progress:     progress,
	}
}

// Indicators returns the current projection, one fill per beat.
func (n *Navigator) Indicators() []float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fills == nil {
		return make([]float64, n.registry.Size())
	}
	return cloneFills(n.fills)
}

// Close cancels the progress clock and any scheduled end affordance. The
// navigator is not reusable afterwards.
func (n *Navigator) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.clock.Cancel()
	if n.endTimer != nil {
		n.endTimer.Stop()
		n.endTimer = nil
	}
}

// showLocked is the central operation: resolve, apply skip policy in the
// given direction (+1 forward, -1 backward), move the pointers, replace the
// clock. Returns whether a beat was shown. Callers hold n.mu.
func (n *Navigator) showLocked(ctx context.Context, ref domain.BeatRef, direction int) bool {
	index, beat, err := n.registry.Resolve(ref)
	if err != nil {
		n.logger.Warn("beat resolution failed", "ref", ref.String(), "err", err)
		return false
	}

	// Bounded skip scan; running past the bounds means no valid target and
	// the story stays where it is.
	for beat.State.Skip() {
		index += direction
		if index < 0 || index >= n.registry.Size() {
			n.logger.Debug("skip scan ran past bounds", "ref", ref.String(), "direction", direction)
			return false
		}
		beat, _ = n.registry.At(index)
	}

	n.clock.Cancel()
	n.currentIndex = index
	n.currentID = beat.ID
	n.progress = 0
	n.paused = false
	n.pauseStartedAt = time.Time{}

	if t := n.settings.ForceManualAfter; t >= 0 && index >= t && !n.forcedManual {
		n.forcedManual = true
		n.logger.Debug("manual control forced", "beat", string(beat.ID), "index", index)
	}

	if err := n.hooks.Dispatch(ctx, domain.HookPreShowBeat, beat.ID, index); err != nil {
		// Escalate loudly but keep navigating; a broken observer must not
		// make the story unresponsive.
		n.logger.Error("pre_show_beat hook failed", "beat", string(beat.ID), "err", err)
	}

	n.presenter.ApplyBeatState(beat.State, beat.ID, index)

	auto := n.autoLocked()
	n.fills = Project(n.registry.Size(), index, 0, auto)
	n.presenter.RenderIndicators(cloneFills(n.fills))

	if auto {
		n.armClockLocked(index)
	}

	n.logger.Debug("beat shown", "beat", string(beat.ID), "index", index, "auto", auto)
	return true
}

// armClockLocked starts the progress clock for the beat at index. The
// callbacks are bound to that index and re-validate it, so ticks from a
// replaced run never touch newer state.
func (n *Navigator) armClockLocked(index int) {
	n.clock.Start(index, n.settings.BeatDuration,
		func(progress float64) { n.handleTick(index, progress) },
		func() { n.handleComplete(index) },
	)
}

func (n *Navigator) handleTick(index int, progress float64) {
	n.mu.Lock()
	if n.status != domain.StatusActive || n.currentIndex != index {
		n.mu.Unlock()
		return
	}
	n.progress = progress
	UpdateActive(n.fills, index, progress)
	fills := cloneFills(n.fills)
	p := n.presenter
	n.mu.Unlock()

	p.RenderIndicators(fills)
}

func (n *Navigator) handleComplete(index int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.status != domain.StatusActive || n.currentIndex != index || n.paused || !n.autoLocked() {
		return
	}
	n.logger.Debug("beat duration reached", "index", index)
	n.advanceLocked(context.Background(), 1)
}

// autoLocked reports whether the story advances automatically right now.
func (n *Navigator) autoLocked() bool {
	return n.settings.AutoAdvance && !n.forcedManual
}

func cloneFills(fills []float64) []float64 {
	out := make([]float64, len(fills))
	copy(out, fills)
	return out
}
