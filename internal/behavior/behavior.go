// Package behavior implements the universal behavioral instrumentation:
// scroll-depth milestones, time-on-page milestones, and a one-shot
// exit-intent signal. Each milestone fires at most once per page life.
package behavior

import (
	"sync"
	"time"
)

// Milestone thresholds, fixed across platforms.
var (
	ScrollMilestones = []int{25, 50, 75, 90}   // percent
	TimeMilestones   = []int{30, 60, 120, 300} // seconds
)

// Emitter receives milestone signals.
type Emitter func(eventType string, props map[string]any)

// Milestones tracks which thresholds have fired for the current page life.
type Milestones struct {
	emit Emitter

	mu          sync.Mutex
	scrollFired map[int]bool
	timeFired   map[int]bool
	exitFired   bool
	maxScroll   int
}

// NewMilestones creates a fresh per-page-life milestone tracker.
func NewMilestones(emit Emitter) *Milestones {
	return &Milestones{
		emit:        emit,
		scrollFired: make(map[int]bool),
		timeFired:   make(map[int]bool),
	}
}

// OnScroll reports the current scroll depth percentage. Crossing a
// threshold emits scroll_depth once for that threshold; depth regressions
// (scrolling back up) never un-fire.
func (m *Milestones) OnScroll(percent int) {
	m.mu.Lock()
	if percent > m.maxScroll {
		m.maxScroll = percent
	}
	var fire []int
	for _, threshold := range ScrollMilestones {
		if percent >= threshold && !m.scrollFired[threshold] {
			m.scrollFired[threshold] = true
			fire = append(fire, threshold)
		}
	}
	m.mu.Unlock()

	for _, threshold := range fire {
		m.emit("scroll_depth", map[string]any{"depth_percent": threshold})
	}
}

// OnTimeElapsed reports seconds since page load, emitting time_on_page once
// per crossed threshold.
func (m *Milestones) OnTimeElapsed(seconds int) {
	m.mu.Lock()
	var fire []int
	for _, threshold := range TimeMilestones {
		if seconds >= threshold && !m.timeFired[threshold] {
			m.timeFired[threshold] = true
			fire = append(fire, threshold)
		}
	}
	m.mu.Unlock()

	for _, threshold := range fire {
		m.emit("time_on_page", map[string]any{"seconds": threshold})
	}
}

// OnExitIntent fires the one-shot exit_intent signal (mouse leaving the top
// edge of the viewport).
func (m *Milestones) OnExitIntent() {
	m.mu.Lock()
	fired := m.exitFired
	m.exitFired = true
	maxScroll := m.maxScroll
	m.mu.Unlock()

	if !fired {
		m.emit("exit_intent", map[string]any{"max_scroll_percent": maxScroll})
	}
}

// Throttle enforces a minimum interval between handler invocations. It is a
// resource-protection measure for high-frequency signals (scroll, click),
// not a correctness requirement.
type Throttle struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

// NewThrottle creates a Throttle with the given minimum interval.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{interval: interval, now: time.Now}
}

// SetClock overrides the wall clock, for tests.
func (t *Throttle) SetClock(now func() time.Time) { t.now = now }

// Allow reports whether a new invocation may proceed, consuming the slot
// when it does.
func (t *Throttle) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	if !t.last.IsZero() && now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}
