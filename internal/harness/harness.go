// Package harness replays scripted tracking sessions against a real
// tracker pipeline and captures the emitted event stream for assertion and
// golden-trace comparison.
//
// Runs are deterministic: a manual clock, a sequential id generator, an
// in-memory environment, and an in-process capturing sender replace every
// ambient dependency. Batching is configured so that events stay queued
// until the final drain, preserving emission order in the captured trace.
package harness

import (
	"fmt"
	"time"

	"github.com/beacon-analytics/beacon-go/internal/browser"
	"github.com/beacon-analytics/beacon-go/internal/core"
	"github.com/beacon-analytics/beacon-go/internal/storage"
	"github.com/beacon-analytics/beacon-go/internal/testutil"
	"github.com/beacon-analytics/beacon-go/internal/wire"
)

// scenarioEpoch is the fixed wall-clock start of every run.
var scenarioEpoch = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

// startupWait bounds how long Run waits for the tracker's asynchronous
// startup page view before replaying steps.
const startupWait = 5 * time.Second

// Result is the outcome of one scenario run.
type Result struct {
	Scenario *Scenario
	// Events is the full emitted stream, in emission order.
	Events []wire.Event
	// Failures lists expectation mismatches; empty means the run passed.
	Failures []string
}

// Passed reports whether the run met every expectation.
func (r *Result) Passed() bool { return len(r.Failures) == 0 }

// EventTypes returns the emitted event types in order.
func (r *Result) EventTypes() []string {
	out := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		out = append(out, e.EventType)
	}
	return out
}

// Run executes a scenario against a fresh tracker and returns the captured
// trace with expectation results.
func Run(scenario *Scenario) (*Result, error) {
	sender := testutil.NewCaptureSender()
	env := testutil.NewFakeEnvironment()
	env.SetSnapshot(scenario.StartPage.snapshot())
	clock := testutil.NewManualClock(scenarioEpoch)
	gen := testutil.NewIDGenerator()

	cfg := core.Config{
		APIEndpoint: "https://collect.invalid/events",
		ProjectID:   "harness",
		Platform:    scenario.Platform,
		// Batching sized so nothing flushes mid-run; Close drains the
		// queue in order at the end.
		BatchSize:        1000,
		BatchTimeout:     time.Hour,
		SkipConsentCheck: true,
	}

	tracker := core.New(cfg, env,
		core.WithSender(sender),
		core.WithStores(storage.NewMemory(), storage.NewMemory()),
		core.WithClock(clock.Now),
		core.WithIDGenerator(gen.Next),
	)
	if err := tracker.Init(); err != nil {
		return nil, fmt.Errorf("tracker init: %w", err)
	}
	if err := awaitStartup(tracker); err != nil {
		tracker.Close()
		return nil, err
	}

	for i, step := range scenario.Steps {
		if err := applyStep(tracker, env, step); err != nil {
			tracker.Close()
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	tracker.Close()

	result := &Result{Scenario: scenario, Events: sender.Events()}
	result.Failures = checkExpectations(scenario, result.EventTypes())
	return result, nil
}

// awaitStartup blocks until the startup page view is queued, so scenario
// steps never race the tracker's first page life.
func awaitStartup(tracker *core.Tracker) error {
	deadline := time.Now().Add(startupWait)
	for tracker.QueueLen() == 0 {
		if time.Now().After(deadline) {
			return fmt.Errorf("tracker startup page view never queued")
		}
		time.Sleep(time.Millisecond)
	}
	return nil
}

func applyStep(tracker *core.Tracker, env *testutil.FakeEnvironment, step Step) error {
	switch {
	case step.Page != nil:
		env.SetSnapshot(step.Page.snapshot())
		tracker.PageChanged()
	case step.Snapshot != nil:
		env.SetSnapshot(step.Snapshot.snapshot())
		tracker.Observe()
	case step.Track != nil:
		tracker.Track(step.Track.Type, step.Track.Props)
	case step.Scroll != nil:
		tracker.Scroll(*step.Scroll)
	case step.Field != "":
		tracker.FieldInteraction(step.Field)
	case step.Unload:
		tracker.PageUnloading()
	case step.Purchase != nil:
		tracker.PurchaseCompleted(browserOrder(*step.Purchase))
	default:
		return fmt.Errorf("empty step")
	}
	return nil
}

func browserOrder(p PurchaseStep) browser.OrderData {
	return browser.OrderData{
		OrderID:  p.OrderID,
		Total:    p.Total,
		Currency: p.Currency,
		Items:    p.Items,
	}
}

func checkExpectations(scenario *Scenario, got []string) []string {
	var failures []string
	if len(got) != len(scenario.ExpectEvents) {
		failures = append(failures, fmt.Sprintf(
			"expected %d events, got %d: %v", len(scenario.ExpectEvents), len(got), got))
		return failures
	}
	for i, want := range scenario.ExpectEvents {
		if got[i] != want {
			failures = append(failures, fmt.Sprintf(
				"event[%d]: expected %q, got %q", i, want, got[i]))
		}
	}
	return failures
}
