package runtime

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTicker delivers ticks only when the test sends them.
type fakeTicker struct {
	ch chan time.Time
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               {}

func newFakeTicker() *fakeTicker {
	return &fakeTicker{ch: make(chan time.Time, 4)}
}

// fakeNow is a manually advanced time source.
type fakeNow struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeNow() *fakeNow {
	return &fakeNow{t: time.Unix(1700000000, 0)}
}

func (f *fakeNow) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeNow) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

// clockHarness wires a clock to deterministic time and tickers and records
// callback invocations.
type clockHarness struct {
	clock   *Clock
	now     *fakeNow
	tickers []*fakeTicker
	ticks   chan float64
	dones   chan struct{}
}

func newClockHarness(t *testing.T) *clockHarness {
	t.Helper()
	h := &clockHarness{
		now:   newFakeNow(),
		ticks: make(chan float64, 16),
		dones: make(chan struct{}, 4),
	}
	h.clock = NewClock(15*time.Millisecond,
		WithNow(h.now.Now),
		WithTickerFactory(func(time.Duration) ticker {
			tk := newFakeTicker()
			h.tickers = append(h.tickers, tk)
			return tk
		}),
	)
	return h
}

func (h *clockHarness) start(beat int, duration time.Duration) {
	h.clock.Start(beat, duration,
		func(p float64) { h.ticks <- p },
		func() { h.dones <- struct{}{} },
	)
}

func (h *clockHarness) lastTicker() *fakeTicker {
	return h.tickers[len(h.tickers)-1]
}

// tick advances fake time, delivers one tick, and returns the reported
// progress.
func (h *clockHarness) tick(t *testing.T, advance time.Duration) float64 {
	t.Helper()
	h.now.Advance(advance)
	h.lastTicker().ch <- time.Time{}
	select {
	case p := <-h.ticks:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tick callback")
		return 0
	}
}

func (h *clockHarness) assertNoCompletion(t *testing.T) {
	t.Helper()
	select {
	case <-h.dones:
		t.Fatal("unexpected completion")
	default:
	}
}

func (h *clockHarness) waitCompletion(t *testing.T) {
	t.Helper()
	select {
	case <-h.dones:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion")
	}
}

func TestClockProgressAccumulatesByTimestampDelta(t *testing.T) {
	h := newClockHarness(t)
	h.start(0, 100*time.Millisecond)

	assert.InDelta(t, 30.0, h.tick(t, 30*time.Millisecond), 0.001)
	assert.InDelta(t, 60.0, h.tick(t, 30*time.Millisecond), 0.001)
	h.assertNoCompletion(t)

	running := h.clock.Running()
	assert.True(t, running)
	beat, ok := h.clock.ActiveBeat()
	require.True(t, ok)
	assert.Equal(t, 0, beat)
}

func TestClockPauseExcludesPausedTime(t *testing.T) {
	// With duration D and a pause of P starting at accumulated T, completion
	// lands at T + (D - T) + P of wall time: the paused span counts for
	// nothing.
	h := newClockHarness(t)
	h.start(0, 100*time.Millisecond)

	assert.InDelta(t, 40.0, h.tick(t, 40*time.Millisecond), 0.001)

	h.clock.Pause()
	// A long throttled gap while paused changes nothing.
	assert.InDelta(t, 40.0, h.tick(t, 500*time.Millisecond), 0.001)
	h.assertNoCompletion(t)

	h.clock.Resume()
	assert.InDelta(t, 100.0, h.tick(t, 60*time.Millisecond), 0.001)
	h.waitCompletion(t)
	assert.False(t, h.clock.Running(), "completed run self-cancels")
}

func TestClockPauseAndResumeAreIdempotent(t *testing.T) {
	h := newClockHarness(t)
	h.start(0, 100*time.Millisecond)

	h.clock.Pause()
	h.clock.Pause()
	h.now.Advance(300 * time.Millisecond)
	h.clock.Resume()
	h.clock.Resume()

	assert.InDelta(t, 20.0, h.tick(t, 20*time.Millisecond), 0.001)
}

func TestClockCompletionFiresExactlyOnce(t *testing.T) {
	h := newClockHarness(t)
	h.start(0, 50*time.Millisecond)

	assert.InDelta(t, 100.0, h.tick(t, 80*time.Millisecond), 0.001, "progress clamps at 100")
	h.waitCompletion(t)

	// The run returned; further ticks on its ticker are dead.
	h.lastTicker().ch <- time.Time{}
	select {
	case <-h.dones:
		t.Fatal("completion fired twice")
	case p := <-h.ticks:
		t.Fatalf("tick after completion: %v", p)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestClockStartReplacesPriorRun(t *testing.T) {
	h := newClockHarness(t)
	h.start(0, 100*time.Millisecond)
	first := h.lastTicker()

	h.start(1, 100*time.Millisecond)
	require.Len(t, h.tickers, 2)

	// Ticks for the replaced run are ignored even if its goroutine is still
	// draining.
	first.ch <- time.Time{}

	assert.InDelta(t, 10.0, h.tick(t, 10*time.Millisecond), 0.001)
	beat, ok := h.clock.ActiveBeat()
	require.True(t, ok)
	assert.Equal(t, 1, beat, "only the newest run is live")

	select {
	case p := <-h.ticks:
		t.Fatalf("stale run reported progress %v", p)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestClockCancelIsSafeWhenIdle(t *testing.T) {
	h := newClockHarness(t)
	h.clock.Cancel()
	h.clock.Cancel()
	assert.False(t, h.clock.Running())
	assert.Equal(t, time.Duration(0), h.clock.Elapsed())

	h.start(0, 100*time.Millisecond)
	h.now.Advance(30 * time.Millisecond)
	h.clock.Cancel()
	assert.False(t, h.clock.Running())
	assert.Equal(t, float64(0), h.clock.Progress(), "cancel discards run state")
}
