package runtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/cadence/pkg/domain"
)

type appliedBeat struct {
	id    domain.BeatID
	index int
}

// recordingPresenter captures every callback for assertions. Safe for the
// clock goroutine and the test goroutine to hit concurrently.
type recordingPresenter struct {
	mu           sync.Mutex
	applied      []appliedBeat
	indicators   [][]float64
	showRestart  int
	hideRestart  int
	showContinue int
	hideContinue int
	enableInput  int
	disableInput int
}

func (p *recordingPresenter) ApplyBeatState(_ domain.BeatState, id domain.BeatID, index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applied = append(p.applied, appliedBeat{id: id, index: index})
}

func (p *recordingPresenter) RenderIndicators(fills []float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.indicators = append(p.indicators, fills)
}

func (p *recordingPresenter) ShowRestartControl() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.showRestart++
}

func (p *recordingPresenter) HideRestartControl() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hideRestart++
}

func (p *recordingPresenter) ShowContinueAffordance() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.showContinue++
}

func (p *recordingPresenter) HideContinueAffordance() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hideContinue++
}

func (p *recordingPresenter) EnableInput() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enableInput++
}

func (p *recordingPresenter) DisableInput() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disableInput++
}

func (p *recordingPresenter) appliedIDs() []domain.BeatID {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]domain.BeatID, len(p.applied))
	for i, a := range p.applied {
		ids[i] = a.id
	}
	return ids
}

func (p *recordingPresenter) lastApplied() (appliedBeat, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.applied) == 0 {
		return appliedBeat{}, false
	}
	return p.applied[len(p.applied)-1], true
}

func (p *recordingPresenter) lastIndicators() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.indicators) == 0 {
		return nil
	}
	return p.indicators[len(p.indicators)-1]
}

func (p *recordingPresenter) counts() (showRestart, hideRestart, enable, disable int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.showRestart, p.hideRestart, p.enableInput, p.disableInput
}

// navHarness bundles a navigator with a recording presenter and a
// deterministic clock.
type navHarness struct {
	nav       *Navigator
	presenter *recordingPresenter
	now       *fakeNow

	mu      sync.Mutex
	tickers []*fakeTicker
}

type beatSpec struct {
	id   domain.BeatID
	skip bool
}

func newNavHarness(t *testing.T, settings domain.Settings, beats ...beatSpec) *navHarness {
	t.Helper()
	reg := NewRegistry()
	for _, b := range beats {
		state := domain.BeatState{}
		if b.skip {
			state[domain.KeySkip] = true
		}
		require.NoError(t, reg.Register(b.id, state))
	}

	h := &navHarness{
		presenter: &recordingPresenter{},
		now:       newFakeNow(),
	}
	clock := NewClock(settings.TickInterval,
		WithNow(h.now.Now),
		WithTickerFactory(func(time.Duration) ticker {
			tk := newFakeTicker()
			h.mu.Lock()
			h.tickers = append(h.tickers, tk)
			h.mu.Unlock()
			return tk
		}),
	)
	h.nav = NewNavigator(reg, h.presenter, settings,
		WithClock(clock),
		WithNavigatorNow(h.now.Now),
	)
	t.Cleanup(h.nav.Close)
	return h
}

func (h *navHarness) lastTicker(t *testing.T) *fakeTicker {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	require.NotEmpty(t, h.tickers, "no clock run was armed")
	return h.tickers[len(h.tickers)-1]
}

func (h *navHarness) tickerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.tickers)
}

// completeBeat advances fake time past the beat duration and delivers a tick,
// letting the clock goroutine run the completion cascade.
func (h *navHarness) completeBeat(t *testing.T, d time.Duration) {
	t.Helper()
	h.now.Advance(d)
	h.lastTicker(t).ch <- time.Time{}
}

func manualSettings() domain.Settings {
	s := domain.DefaultSettings()
	s.AutoAdvance = false
	return s
}

func TestNavigatorStartShowsConfiguredBeat(t *testing.T) {
	s := manualSettings()
	s.Start = domain.RefID("middle")
	h := newNavHarness(t, s, beatSpec{id: "intro"}, beatSpec{id: "middle"}, beatSpec{id: "outro"})

	h.nav.Start(context.Background())

	last, ok := h.presenter.lastApplied()
	require.True(t, ok)
	assert.Equal(t, domain.BeatID("middle"), last.id)
	assert.Equal(t, 1, last.index)

	snap := h.nav.Snapshot()
	assert.Equal(t, domain.StatusActive, snap.Status)
	assert.Equal(t, 1, snap.CurrentIndex)

	_, _, enable, _ := h.presenter.counts()
	assert.Equal(t, 1, enable)
}

func TestNavigatorStartFallsBackToFirstBeat(t *testing.T) {
	s := manualSettings()
	s.Start = domain.RefID("missing")
	h := newNavHarness(t, s, beatSpec{id: "intro"}, beatSpec{id: "outro"})

	h.nav.Start(context.Background())

	last, ok := h.presenter.lastApplied()
	require.True(t, ok)
	assert.Equal(t, domain.BeatID("intro"), last.id)
	assert.Equal(t, domain.StatusActive, h.nav.Snapshot().Status)
}

func TestNavigatorStartWithoutBeatsIsANoOp(t *testing.T) {
	h := newNavHarness(t, manualSettings())

	h.nav.Start(context.Background())

	assert.Equal(t, domain.StatusNotStarted, h.nav.Snapshot().Status)
	assert.Empty(t, h.presenter.appliedIDs())
}

func TestNavigatorStartIsOneShot(t *testing.T) {
	h := newNavHarness(t, manualSettings(), beatSpec{id: "intro"})

	h.nav.Start(context.Background())
	h.nav.Start(context.Background())

	assert.Equal(t, []domain.BeatID{"intro"}, h.presenter.appliedIDs())
}

func TestNavigatorStaysInBounds(t *testing.T) {
	h := newNavHarness(t, manualSettings(),
		beatSpec{id: "a"}, beatSpec{id: "b"}, beatSpec{id: "c"})
	ctx := context.Background()
	h.nav.Start(ctx)

	// Hammer the edges; the pointer must never leave [0, size).
	ops := []func(){
		func() { h.nav.Retreat(ctx, 1) },
		func() { h.nav.Retreat(ctx, 1) },
		func() { h.nav.Advance(ctx, 1) },
		func() { h.nav.Advance(ctx, 1) },
		func() { h.nav.Advance(ctx, 1) },
		func() { h.nav.Advance(ctx, 1) },
		func() { h.nav.Retreat(ctx, 1) },
	}
	for i, op := range ops {
		op()
		snap := h.nav.Snapshot()
		assert.GreaterOrEqual(t, snap.CurrentIndex, 0, "op %d", i)
		assert.Less(t, snap.CurrentIndex, snap.Size, "op %d", i)
	}

	snap := h.nav.Snapshot()
	assert.Equal(t, 1, snap.CurrentIndex)
	assert.Equal(t, domain.BeatID("b"), snap.CurrentID)
}

func TestNavigatorAdvanceAtLastBeatIsANoOp(t *testing.T) {
	h := newNavHarness(t, manualSettings(), beatSpec{id: "a"}, beatSpec{id: "b"})
	ctx := context.Background()
	h.nav.Start(ctx)
	h.nav.Advance(ctx, 1)

	h.nav.Advance(ctx, 1)

	snap := h.nav.Snapshot()
	assert.Equal(t, 1, snap.CurrentIndex)
	assert.Equal(t, domain.StatusActive, snap.Status, "no wraparound, no implicit end")
}

func TestNavigatorSkipResolvesInTravelDirection(t *testing.T) {
	h := newNavHarness(t, manualSettings(),
		beatSpec{id: "a"}, beatSpec{id: "b", skip: true}, beatSpec{id: "c"})
	ctx := context.Background()
	h.nav.Start(ctx)

	h.nav.Advance(ctx, 1)
	last, _ := h.presenter.lastApplied()
	assert.Equal(t, domain.BeatID("c"), last.id, "forward skip lands past b")

	h.nav.Retreat(ctx, 1)
	last, _ = h.presenter.lastApplied()
	assert.Equal(t, domain.BeatID("a"), last.id, "backward skip lands before b")

	h.nav.ShowBeat(ctx, domain.RefID("b"))
	last, _ = h.presenter.lastApplied()
	assert.Equal(t, domain.BeatID("c"), last.id, "direct shows resolve forward")

	assert.Equal(t, []domain.BeatID{"a", "c", "a", "c"}, h.presenter.appliedIDs())
}

func TestNavigatorSkipScanPastBoundsStaysPut(t *testing.T) {
	t.Run("forward", func(t *testing.T) {
		h := newNavHarness(t, manualSettings(),
			beatSpec{id: "a"}, beatSpec{id: "b", skip: true})
		ctx := context.Background()
		h.nav.Start(ctx)

		h.nav.Advance(ctx, 1)

		snap := h.nav.Snapshot()
		assert.Equal(t, 0, snap.CurrentIndex)
		assert.Equal(t, domain.BeatID("a"), snap.CurrentID)
	})

	t.Run("backward", func(t *testing.T) {
		s := manualSettings()
		s.Start = domain.RefID("b")
		h := newNavHarness(t, s,
			beatSpec{id: "a", skip: true}, beatSpec{id: "b"})
		ctx := context.Background()
		h.nav.Start(ctx)

		h.nav.Retreat(ctx, 1)

		snap := h.nav.Snapshot()
		assert.Equal(t, 1, snap.CurrentIndex)
	})
}

func TestNavigatorStartSkipsFlaggedFirstBeat(t *testing.T) {
	h := newNavHarness(t, manualSettings(),
		beatSpec{id: "a", skip: true}, beatSpec{id: "b"})

	h.nav.Start(context.Background())

	last, ok := h.presenter.lastApplied()
	require.True(t, ok)
	assert.Equal(t, domain.BeatID("b"), last.id)
}

func TestNavigatorShowBeatUnknownRefIsANoOp(t *testing.T) {
	h := newNavHarness(t, manualSettings(), beatSpec{id: "a"}, beatSpec{id: "b"})
	ctx := context.Background()
	h.nav.Start(ctx)

	h.nav.ShowBeat(ctx, domain.RefID("missing"))
	h.nav.ShowBeat(ctx, domain.RefIndex(9))

	snap := h.nav.Snapshot()
	assert.Equal(t, 0, snap.CurrentIndex)
	assert.Equal(t, []domain.BeatID{"a"}, h.presenter.appliedIDs())
}

func TestNavigatorEndIsIdempotent(t *testing.T) {
	h := newNavHarness(t, manualSettings(), beatSpec{id: "a"}, beatSpec{id: "b"})
	ctx := context.Background()
	h.nav.Start(ctx)

	h.nav.End(ctx)
	h.nav.End(ctx)

	showRestart, _, _, disable := h.presenter.counts()
	assert.Equal(t, 1, showRestart, "end side effects fire once")
	assert.Equal(t, 1, disable)
	assert.Equal(t, domain.StatusEnded, h.nav.Snapshot().Status)
	assert.Equal(t, []float64{100, 100}, h.nav.Indicators())
}

func TestNavigatorEndBeforeStartIsANoOp(t *testing.T) {
	h := newNavHarness(t, manualSettings(), beatSpec{id: "a"})

	h.nav.End(context.Background())

	assert.Equal(t, domain.StatusNotStarted, h.nav.Snapshot().Status)
	showRestart, _, _, _ := h.presenter.counts()
	assert.Zero(t, showRestart)
}

func TestNavigatorNavigationIgnoredAfterEnd(t *testing.T) {
	h := newNavHarness(t, manualSettings(),
		beatSpec{id: "a"}, beatSpec{id: "b"}, beatSpec{id: "c"})
	ctx := context.Background()
	h.nav.Start(ctx)
	h.nav.End(ctx)

	h.nav.Advance(ctx, 1)
	h.nav.Retreat(ctx, 1)
	h.nav.ShowBeat(ctx, domain.RefID("c"))

	snap := h.nav.Snapshot()
	assert.Equal(t, domain.StatusEnded, snap.Status)
	assert.Equal(t, 0, snap.CurrentIndex)
}

func TestNavigatorEndOnLastBeat(t *testing.T) {
	s := manualSettings()
	s.EndOnLastBeat = true
	h := newNavHarness(t, s, beatSpec{id: "a"}, beatSpec{id: "b"})
	ctx := context.Background()
	h.nav.Start(ctx)

	h.nav.Advance(ctx, 1)

	last, _ := h.presenter.lastApplied()
	assert.Equal(t, domain.BeatID("b"), last.id, "the last beat renders before the story ends")
	assert.Equal(t, domain.StatusEnded, h.nav.Snapshot().Status)

	showRestart, _, _, _ := h.presenter.counts()
	assert.Equal(t, 1, showRestart)
}

func TestNavigatorRestartResetsLatchAndControls(t *testing.T) {
	s := domain.DefaultSettings()
	s.ForceManualAfter = 1
	h := newNavHarness(t, s,
		beatSpec{id: "a"}, beatSpec{id: "b"}, beatSpec{id: "c"})
	ctx := context.Background()
	h.nav.Start(ctx)
	require.True(t, h.nav.Snapshot().AutoAdvance)

	h.nav.Advance(ctx, 1)
	snap := h.nav.Snapshot()
	require.True(t, snap.ForcedManual, "crossing the threshold latches manual control")
	require.False(t, snap.AutoAdvance)

	h.nav.End(ctx)
	h.nav.Restart(ctx)

	snap = h.nav.Snapshot()
	assert.Equal(t, domain.StatusActive, snap.Status)
	assert.False(t, snap.ForcedManual, "restart releases the latch")
	assert.True(t, snap.AutoAdvance)
	assert.Equal(t, 0, snap.CurrentIndex)

	_, hideRestart, enable, _ := h.presenter.counts()
	assert.Equal(t, 1, hideRestart)
	assert.Equal(t, 2, enable, "start and restart both re-enable input")

	running := h.nav.clock.Running()
	assert.True(t, running, "auto cadence resumes after restart")
}

func TestNavigatorRestartBeforeStartIsANoOp(t *testing.T) {
	h := newNavHarness(t, manualSettings(), beatSpec{id: "a"})

	h.nav.Restart(context.Background())

	assert.Equal(t, domain.StatusNotStarted, h.nav.Snapshot().Status)
	assert.Empty(t, h.presenter.appliedIDs())
}

func TestNavigatorRestartHonorsConfiguredTarget(t *testing.T) {
	s := manualSettings()
	s.RestartTarget = domain.RefID("b")
	h := newNavHarness(t, s, beatSpec{id: "a"}, beatSpec{id: "b"})
	ctx := context.Background()
	h.nav.Start(ctx)
	h.nav.End(ctx)

	h.nav.Restart(ctx)

	last, _ := h.presenter.lastApplied()
	assert.Equal(t, domain.BeatID("b"), last.id)
}

func TestNavigatorPauseEndRoutesTapVersusHold(t *testing.T) {
	h := newNavHarness(t, manualSettings(),
		beatSpec{id: "a"}, beatSpec{id: "b"}, beatSpec{id: "c"})
	ctx := context.Background()
	h.nav.Start(ctx)

	// A release under the hold threshold is a tap: resume and advance.
	h.nav.Handle(ctx, domain.CommandPauseStart)
	require.True(t, h.nav.Snapshot().Paused)
	h.now.Advance(100 * time.Millisecond)
	h.nav.Handle(ctx, domain.CommandPauseEnd)

	snap := h.nav.Snapshot()
	assert.False(t, snap.Paused)
	assert.Equal(t, 1, snap.CurrentIndex, "tap advances")

	// A release at or past the threshold only resumes.
	h.nav.Handle(ctx, domain.CommandPauseStart)
	h.now.Advance(domain.DefaultPauseHoldThreshold)
	h.nav.Handle(ctx, domain.CommandPauseEnd)

	snap = h.nav.Snapshot()
	assert.False(t, snap.Paused)
	assert.Equal(t, 1, snap.CurrentIndex, "hold release does not advance")
}

func TestNavigatorPauseIsIdempotentAndActiveOnly(t *testing.T) {
	h := newNavHarness(t, manualSettings(), beatSpec{id: "a"}, beatSpec{id: "b"})
	ctx := context.Background()

	h.nav.Pause()
	assert.False(t, h.nav.Snapshot().Paused, "pause before start is ignored")

	h.nav.Start(ctx)
	h.nav.Pause()
	h.now.Advance(time.Second)
	h.nav.Pause()
	assert.True(t, h.nav.IsHolding(), "a second pause does not reset the hold origin")

	h.nav.Unpause()
	h.nav.Unpause()
	assert.False(t, h.nav.Snapshot().Paused)
}

func TestNavigatorHandleUnknownCommandIsIgnored(t *testing.T) {
	h := newNavHarness(t, manualSettings(), beatSpec{id: "a"}, beatSpec{id: "b"})
	ctx := context.Background()
	h.nav.Start(ctx)

	h.nav.Handle(ctx, domain.Command("jump"))

	assert.Equal(t, 0, h.nav.Snapshot().CurrentIndex)
}

func TestNavigatorSnapshotProgressReflectsControlMode(t *testing.T) {
	t.Run("manual mode reports full progress", func(t *testing.T) {
		h := newNavHarness(t, manualSettings(), beatSpec{id: "a"})
		h.nav.Start(context.Background())
		assert.Equal(t, float64(100), h.nav.Snapshot().Progress)
	})

	t.Run("ended story reports full progress", func(t *testing.T) {
		h := newNavHarness(t, domain.DefaultSettings(), beatSpec{id: "a"})
		ctx := context.Background()
		h.nav.Start(ctx)
		h.nav.End(ctx)
		assert.Equal(t, float64(100), h.nav.Snapshot().Progress)
	})
}

func TestNavigatorIndicatorsBeforeStart(t *testing.T) {
	h := newNavHarness(t, manualSettings(), beatSpec{id: "a"}, beatSpec{id: "b"})
	assert.Equal(t, []float64{0, 0}, h.nav.Indicators())
}

func TestNavigatorIndicatorProjectionAroundSkips(t *testing.T) {
	h := newNavHarness(t, domain.DefaultSettings(),
		beatSpec{id: "a"}, beatSpec{id: "b", skip: true}, beatSpec{id: "c"})
	ctx := context.Background()
	h.nav.Start(ctx)
	assert.Equal(t, []float64{0, 0, 0}, h.nav.Indicators())

	h.nav.Advance(ctx, 1)

	// Position moves straight to c; everything behind it reads as complete.
	assert.Equal(t, []float64{100, 100, 0}, h.nav.Indicators())
}

func TestNavigatorForceManualFromTheFirstBeat(t *testing.T) {
	s := domain.DefaultSettings()
	s.ForceManualAfter = 0
	h := newNavHarness(t, s, beatSpec{id: "a"}, beatSpec{id: "b"})

	h.nav.Start(context.Background())

	snap := h.nav.Snapshot()
	assert.True(t, snap.ForcedManual)
	assert.False(t, snap.AutoAdvance)
	assert.False(t, h.nav.clock.Running(), "no cadence under forced manual control")
	assert.Equal(t, 0, h.tickerCount())
}

func TestNavigatorAutoAdvanceCascade(t *testing.T) {
	s := domain.DefaultSettings()
	s.BeatDuration = 100 * time.Millisecond
	h := newNavHarness(t, s, beatSpec{id: "a"}, beatSpec{id: "b"})
	ctx := context.Background()

	h.nav.Start(ctx)
	require.Equal(t, 1, h.tickerCount(), "auto mode arms the clock on show")

	h.completeBeat(t, 150*time.Millisecond)

	require.Eventually(t, func() bool {
		last, ok := h.presenter.lastApplied()
		return ok && last.id == "b"
	}, 2*time.Second, 5*time.Millisecond, "beat duration elapsing advances the story")

	snap := h.nav.Snapshot()
	assert.Equal(t, 1, snap.CurrentIndex)
	assert.Equal(t, domain.StatusActive, snap.Status)
	assert.Equal(t, 2, h.tickerCount(), "the next beat armed its own run")

	// Completion on the final beat parks there; no wraparound.
	h.completeBeat(t, 150*time.Millisecond)
	assert.Never(t, func() bool {
		return h.nav.Snapshot().CurrentIndex != 1
	}, 100*time.Millisecond, 10*time.Millisecond)
}

func TestNavigatorTickRepaintsTheActiveSegment(t *testing.T) {
	s := domain.DefaultSettings()
	s.BeatDuration = 100 * time.Millisecond
	h := newNavHarness(t, s, beatSpec{id: "a"}, beatSpec{id: "b"})
	h.nav.Start(context.Background())

	h.nav.handleTick(0, 42)

	assert.Equal(t, []float64{42, 0}, h.presenter.lastIndicators())
	assert.Equal(t, float64(42), h.nav.Snapshot().Progress)
}

func TestNavigatorStaleClockCallbacksAreIgnored(t *testing.T) {
	s := domain.DefaultSettings()
	h := newNavHarness(t, s, beatSpec{id: "a"}, beatSpec{id: "b"}, beatSpec{id: "c"})
	ctx := context.Background()
	h.nav.Start(ctx)
	h.nav.Advance(ctx, 1)

	// Callbacks armed for beat 0 fire after the story moved on.
	h.nav.handleTick(0, 90)
	h.nav.handleComplete(0)

	snap := h.nav.Snapshot()
	assert.Equal(t, 1, snap.CurrentIndex, "a replaced run cannot move the story")
	assert.Equal(t, float64(0), snap.Progress)
}

func TestNavigatorCompletionWhilePausedDoesNotAdvance(t *testing.T) {
	s := domain.DefaultSettings()
	h := newNavHarness(t, s, beatSpec{id: "a"}, beatSpec{id: "b"})
	ctx := context.Background()
	h.nav.Start(ctx)
	h.nav.Pause()

	h.nav.handleComplete(0)

	assert.Equal(t, 0, h.nav.Snapshot().CurrentIndex)
}

func TestNavigatorHookErrorDoesNotBlockNavigation(t *testing.T) {
	h := newNavHarness(t, manualSettings(), beatSpec{id: "a"}, beatSpec{id: "b"})
	ctx := context.Background()
	require.NoError(t, h.nav.Hooks().Register(domain.HookPreShowBeat,
		func(context.Context, *domain.HookEvent) error { return errors.New("observer broke") }))

	h.nav.Start(ctx)
	h.nav.Advance(ctx, 1)

	assert.Equal(t, []domain.BeatID{"a", "b"}, h.presenter.appliedIDs())
}

func TestNavigatorHooksSeeTheLifecycle(t *testing.T) {
	h := newNavHarness(t, manualSettings(), beatSpec{id: "a"}, beatSpec{id: "b"})
	ctx := context.Background()

	var mu sync.Mutex
	var seen []string
	record := func(name string) domain.HookFunc {
		return func(_ context.Context, ev *domain.HookEvent) error {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, name+":"+string(ev.BeatID))
			return nil
		}
	}
	require.NoError(t, h.nav.Hooks().Register(domain.HookStoryStart, record("start")))
	require.NoError(t, h.nav.Hooks().Register(domain.HookPreShowBeat, record("show")))
	require.NoError(t, h.nav.Hooks().Register(domain.HookStoryEnd, record("end")))
	require.NoError(t, h.nav.Hooks().Register(domain.HookStoryRestart, record("restart")))

	h.nav.Start(ctx)
	h.nav.Advance(ctx, 1)
	h.nav.End(ctx)
	h.nav.Restart(ctx)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"start:",
		"show:a",
		"show:b",
		"end:b",
		"restart:b",
		"show:a",
	}, seen)
}
