package runtime

import (
	"sync"
	"time"
)

// ticker abstracts time.Ticker so tests can drive ticks deterministically.
type ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// tickerFactory builds the ticker a clock run uses.
type tickerFactory func(interval time.Duration) ticker

func newRealTicker(interval time.Duration) ticker {
	return realTicker{t: time.NewTicker(interval)}
}

// Clock is the pausable, cancelable progress timer for the active beat. It
// accumulates elapsed time by timestamp delta, so pause and resume stay
// exact even when ticks are coalesced or delivered late; the tick interval
// only governs refresh cadence, never the correctness of completion.
//
// At most one run is live per Clock: Start cancels any prior run before
// arming a new one, and a generation counter guarantees that a stale run can
// never fire callbacks once replaced.
type Clock struct {
	interval  time.Duration
	now       func() time.Time
	newTicker tickerFactory

	mu           sync.Mutex
	generation   uint64
	running      bool
	paused       bool
	beatIndex    int
	duration     time.Duration
	accumulated  time.Duration
	segmentStart time.Time
	stop         chan struct{}
}

// ClockOption configures a Clock.
type ClockOption func(*Clock)

// WithNow injects the time source. Used by tests.
func WithNow(now func() time.Time) ClockOption {
	return func(c *Clock) {
		c.now = now
	}
}

// WithTickerFactory injects the ticker constructor. Used by tests.
func WithTickerFactory(f tickerFactory) ClockOption {
	return func(c *Clock) {
		c.newTicker = f
	}
}

// NewClock creates a stopped clock ticking at the given interval.
func NewClock(interval time.Duration, opts ...ClockOption) *Clock {
	c := &Clock{
		interval:  interval,
		now:       time.Now,
		newTicker: newRealTicker,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins a fresh timer for beatIndex, replacing any previous run.
// onTick receives normalized progress (0..100, clamped) at tick granularity;
// onComplete fires exactly once when accumulated active time reaches
// duration, after which the run self-cancels. Callbacks run on the clock
// goroutine without internal locks held.
func (c *Clock) Start(beatIndex int, duration time.Duration, onTick func(float64), onComplete func()) {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.cancelLocked()
	c.running = true
	c.paused = false
	c.beatIndex = beatIndex
	c.duration = duration
	c.accumulated = 0
	c.segmentStart = c.now()
	stop := make(chan struct{})
	c.stop = stop
	tk := c.newTicker(c.interval)
	c.mu.Unlock()

	go c.run(gen, tk, stop, duration, onTick, onComplete)
}

func (c *Clock) run(gen uint64, tk ticker, stop chan struct{}, duration time.Duration, onTick func(float64), onComplete func()) {
	defer tk.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tk.C():
			c.mu.Lock()
			if gen != c.generation || !c.running {
				c.mu.Unlock()
				return
			}
			elapsed := c.elapsedLocked()
			done := elapsed >= duration
			if done {
				// Self-cancel before the callback so a Start issued from
				// inside onComplete sees a clean clock.
				c.accumulated = elapsed
				c.running = false
			}
			c.mu.Unlock()

			if onTick != nil {
				onTick(clampPercent(float64(elapsed) / float64(duration) * 100))
			}
			if done {
				if onComplete != nil {
					onComplete()
				}
				return
			}
		}
	}
}

// Pause freezes accumulation and is idempotent while paused. Time spent
// paused is excluded from the duration count, not merely hidden.
func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || c.paused {
		return
	}
	c.accumulated += c.now().Sub(c.segmentStart)
	c.paused = true
}

// Resume unfreezes accumulation, preserving the elapsed time already
// counted.
func (c *Clock) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || !c.paused {
		return
	}
	c.segmentStart = c.now()
	c.paused = false
}

// Cancel stops ticking and discards run state. Safe to call when idle.
func (c *Clock) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.cancelLocked()
}

func (c *Clock) cancelLocked() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	c.running = false
	c.paused = false
	c.accumulated = 0
	c.duration = 0
}

// Running reports whether a run is live (armed and not completed/canceled).
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// ActiveBeat returns the beat index of the live run, if any.
func (c *Clock) ActiveBeat() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.beatIndex, c.running
}

// Elapsed returns the accumulated active time of the current run.
func (c *Clock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsedLocked()
}

// Progress returns the normalized progress (0..100) of the current run.
func (c *Clock) Progress() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.duration <= 0 {
		return 0
	}
	return clampPercent(float64(c.elapsedLocked()) / float64(c.duration) * 100)
}

func (c *Clock) elapsedLocked() time.Duration {
	if !c.running || c.paused {
		return c.accumulated
	}
	return c.accumulated + c.now().Sub(c.segmentStart)
}
