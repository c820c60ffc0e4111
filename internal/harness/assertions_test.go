package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/exposure/internal/ir"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{
			Seq:          1,
			Mode:         "normal",
			Event:        ir.IRString("1001"),
			EventParams:  ir.IRObject{"uicode": ir.IRString("b")},
			ActionParams: ir.IRObject{"slot": ir.IRInt(1)},
		},
		{
			Seq:          2,
			Mode:         "view",
			Event:        ir.IRString("1001"),
			EventParams:  ir.IRObject{"uicode": ir.IRString("b")},
			ActionParams: ir.IRObject{"slot": ir.IRInt(1), "times": ir.IRInt(3)},
		},
	}
}

func TestAssertDispatchCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertDispatchCount(trace, Assertion{Count: 2}))
	assert.NoError(t, assertDispatchCount(trace, Assertion{Mode: "view", Count: 1}))
	assert.NoError(t, assertDispatchCount(trace, Assertion{Mode: "time", Count: 0}))

	err := assertDispatchCount(trace, Assertion{Mode: "view", Count: 2})
	assert.ErrorContains(t, err, "2 view dispatches")
}

func TestAssertDispatchContains(t *testing.T) {
	trace := sampleTrace()

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   bool
	}{
		{"mode only", Assertion{Mode: "view"}, false},
		{"event", Assertion{Event: "1001"}, false},
		{"int event mismatch", Assertion{Event: 1001}, true},
		{"params subset", Assertion{Mode: "view", ActionParams: map[string]any{"times": 3}}, false},
		{"params mismatch", Assertion{Mode: "view", ActionParams: map[string]any{"times": 4}}, true},
		{"params on wrong mode", Assertion{Mode: "normal", ActionParams: map[string]any{"times": 3}}, true},
		{"event params", Assertion{EventParams: map[string]any{"uicode": "b"}}, false},
		{"missing key", Assertion{EventParams: map[string]any{"stt": 1}}, true},
		{"float expectation", Assertion{ActionParams: map[string]any{"x": 0.5}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertDispatchContains(trace, tt.assertion)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAssertDispatchOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertDispatchOrder(trace, Assertion{Modes: []string{"normal", "view"}}))
	assert.Error(t, assertDispatchOrder(trace, Assertion{Modes: []string{"view", "normal"}}))
	assert.Error(t, assertDispatchOrder(trace, Assertion{Modes: []string{"normal"}}))
	assert.NoError(t, assertDispatchOrder(nil, Assertion{Modes: []string{}}))
}

func TestAssertFinalState(t *testing.T) {
	state := ir.IRObject{
		"phase":         ir.IRString("closed"),
		"in_view_count": ir.IRInt(2),
		"in_view":       ir.IRBool(false),
	}

	assert.NoError(t, assertFinalState(state, Assertion{Expect: map[string]any{"phase": "closed", "in_view_count": 2}}))

	err := assertFinalState(state, Assertion{Expect: map[string]any{"in_view": true}})
	assert.ErrorContains(t, err, `field "in_view" = true`)

	err = assertFinalState(state, Assertion{Expect: map[string]any{"nope": 1}})
	assert.ErrorContains(t, err, "not present")
}

func TestAssertWarning(t *testing.T) {
	assert.NoError(t, assertWarning([]string{"INVALID_MODE", "SOURCE_MISSING"}, Assertion{Code: "SOURCE_MISSING"}))
	assert.Error(t, assertWarning(nil, Assertion{Code: "SOURCE_MISSING"}))
}

func TestAssertionErrorIncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertDispatchCount,
		Expected: "1 dispatches",
		Actual:   "2 dispatches",
		Trace:    sampleTrace(),
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: dispatch_count")
	assert.Contains(t, msg, `[2] view event="1001"`)
	assert.Contains(t, msg, `"times":3`)
}

func TestEvaluateAssertionsUnknownType(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{{Type: "bogus"}})
	assert.Len(t, errs, 1)
	assert.Contains(t, errs[0], "unknown assertion type")
}
