// Package scoring is an optional downstream consumer of emitted events that
// classifies the visitor into a coarse behavioral segment and re-emits a
// derived event when the segment changes.
//
// It holds no durable state and has no protocol contract; it is a
// subscriber on the tracker's emit path, not a system boundary.
package scoring

import "sync"

// Segment labels, ordered by engagement.
const (
	SegmentBrowser = "browser"
	SegmentEngaged = "engaged"
	SegmentShopper = "shopper"
	SegmentBuyer   = "buyer"
	SegmentAtRisk  = "at_risk"
)

// Emitter receives the derived behavioral_segment events.
type Emitter func(eventType string, props map[string]any)

// Scorer accumulates per-page-life behavioral signals.
type Scorer struct {
	emit Emitter

	mu           sync.Mutex
	scrollDepth  int
	timeOnPage   int
	checkoutSeen bool
	abandoned    bool
	purchased    bool
	current      string
}

// New creates a Scorer.
func New(emit Emitter) *Scorer {
	return &Scorer{emit: emit}
}

// Observe feeds one emitted event into the heuristic. Cheap and
// non-blocking; called inline on the emit path.
func (s *Scorer) Observe(eventType string, props map[string]any) {
	s.mu.Lock()
	switch eventType {
	case "scroll_depth":
		if d, ok := props["depth_percent"].(int); ok && d > s.scrollDepth {
			s.scrollDepth = d
		}
	case "time_on_page":
		if t, ok := props["seconds"].(int); ok && t > s.timeOnPage {
			s.timeOnPage = t
		}
	case "checkout_started", "checkout_step_started":
		s.checkoutSeen = true
	case "checkout_abandoned", "exit_intent":
		s.abandoned = true
	case "purchase_completed":
		s.purchased = true
	}
	segment := s.classify()
	changed := segment != s.current
	s.current = segment
	s.mu.Unlock()

	if changed {
		s.emit("behavioral_segment", map[string]any{"segment": segment})
	}
}

// classify derives the segment from accumulated signals. Pure heuristic;
// thresholds mirror the hosted scoring model's defaults.
func (s *Scorer) classify() string {
	switch {
	case s.purchased:
		return SegmentBuyer
	case s.abandoned && s.checkoutSeen:
		return SegmentAtRisk
	case s.checkoutSeen:
		return SegmentShopper
	case s.scrollDepth >= 50 || s.timeOnPage >= 60:
		return SegmentEngaged
	default:
		return SegmentBrowser
	}
}
