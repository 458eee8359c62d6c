package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/livestore/internal/value"
)

// TraceSnapshot is the golden form of a scenario run.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []TraceEvent
}

// toCanonicalMap converts the snapshot into plain maps and slices, the
// shapes value.MarshalCanonical accepts.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		m := map[string]any{
			"seq":     ev.Seq,
			"op":      ev.Op,
			"target":  ev.Target,
			"present": ev.Present,
		}
		notified := make([]any, len(ev.Notified))
		for j, id := range ev.Notified {
			notified[j] = id
		}
		m["notified"] = notified
		if ev.Identifier != "" {
			m["identifier"] = ev.Identifier
		}
		if ev.Count != nil {
			m["count"] = *ev.Count
		}
		if ev.Rows != nil {
			rows := make([]any, len(ev.Rows))
			for j, r := range ev.Rows {
				rows[j] = r
			}
			m["rows"] = rows
		}
		if ev.Error != "" {
			m["error"] = ev.Error
		}
		trace[i] = m
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         trace,
	}
}

// MarshalTrace renders a result's trace as canonical JSON.
func MarshalTrace(name string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{ScenarioName: name, Trace: result.Trace}
	return value.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden runs scenario and compares its trace with
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	data, err := MarshalTrace(scenario.Name, result)
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
