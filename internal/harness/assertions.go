package harness

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/roach88/exposure/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s event=%s event_params=%s action_params=%s\n",
				event.Seq, event.Mode, formatValue(event.Event),
				formatValue(event.EventParams), formatValue(event.ActionParams))
		}
	}
	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertDispatchCount:
			err = assertDispatchCount(result.Trace, assertion)
		case AssertDispatchContains:
			err = assertDispatchContains(result.Trace, assertion)
		case AssertDispatchOrder:
			err = assertDispatchOrder(result.Trace, assertion)
		case AssertFinalState:
			err = assertFinalState(result.State, assertion)
		case AssertWarning:
			err = assertWarning(result.Warnings, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertDispatchCount checks the number of dispatches, optionally for one mode.
func assertDispatchCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if assertion.Mode == "" || event.Mode == assertion.Mode {
			count++
		}
	}

	if count != assertion.Count {
		what := "dispatches"
		if assertion.Mode != "" {
			what = assertion.Mode + " dispatches"
		}
		return &AssertionError{
			Type:     AssertDispatchCount,
			Expected: fmt.Sprintf("%d %s", assertion.Count, what),
			Actual:   fmt.Sprintf("%d %s", count, what),
			Trace:    trace,
		}
	}
	return nil
}

// assertDispatchContains checks that some dispatch matches every given field.
func assertDispatchContains(trace []TraceEvent, assertion Assertion) error {
	expectedEvent, expectedEvtParams, expectedActParams, err := expectedFields(assertion)
	if err != nil {
		return fmt.Errorf("dispatch_contains: %w", err)
	}

	for _, event := range trace {
		if assertion.Mode != "" && event.Mode != assertion.Mode {
			continue
		}
		if expectedEvent != nil && !reflect.DeepEqual(event.Event, expectedEvent) {
			continue
		}
		if !matchSubset(event.EventParams, expectedEvtParams) {
			continue
		}
		if !matchSubset(event.ActionParams, expectedActParams) {
			continue
		}
		return nil
	}

	parts := []string{}
	if assertion.Mode != "" {
		parts = append(parts, "mode "+assertion.Mode)
	}
	if expectedEvent != nil {
		parts = append(parts, "event "+formatValue(expectedEvent))
	}
	if expectedEvtParams != nil {
		parts = append(parts, "event_params ⊇ "+formatValue(expectedEvtParams))
	}
	if expectedActParams != nil {
		parts = append(parts, "action_params ⊇ "+formatValue(expectedActParams))
	}
	return &AssertionError{
		Type:     AssertDispatchContains,
		Expected: "dispatch with " + strings.Join(parts, ", "),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertDispatchOrder checks the exact sequence of dispatch modes.
func assertDispatchOrder(trace []TraceEvent, assertion Assertion) error {
	actual := make([]string, len(trace))
	for i, event := range trace {
		actual[i] = event.Mode
	}

	if !slices.Equal(actual, assertion.Modes) {
		return &AssertionError{
			Type:     AssertDispatchOrder,
			Expected: fmt.Sprintf("modes %v", assertion.Modes),
			Actual:   fmt.Sprintf("modes %v", actual),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks the listed state fields (subset semantics).
func assertFinalState(state ir.IRObject, assertion Assertion) error {
	expected, err := ir.ObjectFromAny(assertion.Expect)
	if err != nil {
		return fmt.Errorf("final_state: %w", err)
	}

	for _, key := range expected.SortedKeys() {
		actualValue, exists := state[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in state: %v", key, state.SortedKeys()),
			}
		}
		if !reflect.DeepEqual(actualValue, expected[key]) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %s", key, formatValue(expected[key])),
				Actual:   fmt.Sprintf("field %q = %s", key, formatValue(actualValue)),
			}
		}
	}
	return nil
}

// assertWarning checks that the tracker recorded a warning with the code.
func assertWarning(warnings []string, assertion Assertion) error {
	for _, w := range warnings {
		if w == assertion.Code {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertWarning,
		Expected: fmt.Sprintf("warning %s", assertion.Code),
		Actual:   fmt.Sprintf("warnings %v", warnings),
	}
}

// expectedFields converts the YAML-decoded expectations to ir values.
func expectedFields(a Assertion) (ir.IRValue, ir.IRObject, ir.IRObject, error) {
	var (
		event                   ir.IRValue
		evtParams, actionParams ir.IRObject
		err                     error
	)
	if a.Event != nil {
		if event, err = ir.FromAny(a.Event); err != nil {
			return nil, nil, nil, fmt.Errorf("event: %w", err)
		}
	}
	if a.EventParams != nil {
		if evtParams, err = ir.ObjectFromAny(a.EventParams); err != nil {
			return nil, nil, nil, fmt.Errorf("event_params: %w", err)
		}
	}
	if a.ActionParams != nil {
		if actionParams, err = ir.ObjectFromAny(a.ActionParams); err != nil {
			return nil, nil, nil, fmt.Errorf("action_params: %w", err)
		}
	}
	return event, evtParams, actionParams, nil
}

// matchSubset reports whether actual contains every key of expected with an
// equal value. Extra keys in actual are ignored. A nil expected matches.
func matchSubset(actual, expected ir.IRObject) bool {
	for key, want := range expected {
		got, ok := actual[key]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// formatValue renders v as canonical JSON, falling back to %v.
func formatValue(v ir.IRValue) string {
	if v == nil {
		return "<none>"
	}
	b, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
