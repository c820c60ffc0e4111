package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_ViewAndTime(t *testing.T) {
	scenario := &Scenario{
		Name:        "golden_view_and_time",
		Description: "view and time together",
		Target:      "banner",
		Modes:       []string{"view", "time"},
		InstanceID:  "inst-golden",
		Payload: map[string]any{
			"evt":           "1001",
			"evt_params":    map[string]any{"uicode": "banner"},
			"action_params": map[string]any{"slot": 1},
		},
		Steps: []Step{
			step(0, ActionActivate),
			step(100, ActionEnter),
			step(600, ActionExit),
			step(2100, ActionDeactivate),
		},
		Assertions: []Assertion{{Type: AssertDispatchOrder, Modes: []string{"time", "view"}}},
	}

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRunWithGolden_Inert(t *testing.T) {
	scenario := &Scenario{
		Name:        "golden_inert",
		Description: "no sink registered",
		Target:      "banner",
		Modes:       []string{"normal"},
		Registered:  boolPtr(false),
		InstanceID:  "inst-inert",
		Steps:       []Step{step(0, ActionActivate), step(50, ActionDeactivate)},
		Assertions:  []Assertion{{Type: AssertWarning, Code: "SINK_UNREGISTERED"}},
	}

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRunWithGolden_TimeSinceView(t *testing.T) {
	scenario := &Scenario{
		Name:        "golden_time_since_view",
		Description: "timeSinceView with viewonce, time suppressed",
		Target:      "feed",
		Modes:       []string{"timeSinceView", "time", "viewonce"},
		Payload: map[string]any{
			"evt":        42,
			"evt_params": map[string]any{"uicode": "feed"},
		},
		Steps: []Step{
			step(0, ActionActivate),
			step(1500, ActionEnter),
			step(4000, ActionDeactivate),
		},
		Assertions: []Assertion{{Type: AssertDispatchOrder, Modes: []string{"viewonce", "timeSinceView"}}},
	}

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestSnapshotIsDeterministic(t *testing.T) {
	scenario := &Scenario{
		Name:        "snapshot",
		Description: "two runs, same bytes",
		Target:      "banner",
		Modes:       []string{"normal", "view", "time"},
		Payload:     map[string]any{"evt": "1001", "evt_params": map[string]any{"uicode": "b"}},
		Steps:       []Step{step(0, ActionActivate), step(10, ActionEnter), step(2010, ActionDeactivate)},
		Assertions:  []Assertion{{Type: AssertDispatchCount, Count: 3}},
	}

	r1, err := Run(scenario)
	require.NoError(t, err)
	r2, err := Run(scenario)
	require.NoError(t, err)

	s1, err := Snapshot(scenario.Name, r1)
	require.NoError(t, err)
	s2, err := Snapshot(scenario.Name, r2)
	require.NoError(t, err)
	assert.Equal(t, string(s1), string(s2))
	assert.NotContains(t, string(s1), `"warnings"`)
}
