package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/exposure/internal/ir"
)

// Snapshot renders the parts of a run that golden files pin down: the
// dispatch trace, the final state and the warning codes. Output is
// canonical JSON, so identical runs give identical bytes.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, event := range result.Trace {
		eventMap := map[string]any{
			"seq":           event.Seq,
			"mode":          event.Mode,
			"event_params":  nonNilObject(event.EventParams),
			"action_params": nonNilObject(event.ActionParams),
		}
		if event.Event != nil {
			eventMap["event"] = event.Event
		}
		trace[i] = eventMap
	}

	snapshot := map[string]any{
		"scenario_name": scenarioName,
		"instance_id":   result.InstanceID,
		"trace":         trace,
		"state":         nonNilObject(result.State),
	}
	if len(result.Warnings) > 0 {
		warnings := make([]any, len(result.Warnings))
		for i, w := range result.Warnings {
			warnings[i] = w
		}
		snapshot["warnings"] = warnings
	}

	return ir.MarshalCanonical(snapshot)
}

// RunWithGolden executes a scenario and compares the snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}

func nonNilObject(obj ir.IRObject) ir.IRObject {
	if obj == nil {
		return ir.IRObject{}
	}
	return obj
}
