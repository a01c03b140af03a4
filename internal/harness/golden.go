package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/beacon-analytics/beacon-go/internal/wire"
)

// TraceSnapshot is the deterministic projection of a run's event stream
// used for golden comparison. Only fields that are stable across runs
// appear: event ids are random and timestamps depend on queue scheduling,
// so the snapshot carries the type and page of each event.
type TraceSnapshot struct {
	ScenarioName string
	Events       []TraceEvent
}

// TraceEvent is one emitted event in the snapshot.
type TraceEvent struct {
	Type    string
	PageURL string
}

// Snapshot projects the result's event stream.
func (r *Result) Snapshot() TraceSnapshot {
	snap := TraceSnapshot{ScenarioName: r.Scenario.Name}
	for _, e := range r.Events {
		snap.Events = append(snap.Events, TraceEvent{Type: e.EventType, PageURL: e.PageURL})
	}
	return snap
}

// toCanonicalMap converts the snapshot to the canonical-JSON vocabulary.
func (s TraceSnapshot) toCanonicalMap() map[string]any {
	events := make([]any, len(s.Events))
	for i, e := range s.Events {
		events[i] = map[string]any{
			"type":     e.Type,
			"page_url": e.PageURL,
		}
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"events":        events,
	}
}

// RunWithGolden executes a scenario and compares its trace snapshot against
// testdata/golden/{scenario.Name}.golden. Regenerate goldens with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	data, err := wire.MarshalCanonical(result.Snapshot().toCanonicalMap())
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return result, nil
}
