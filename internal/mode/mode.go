// Package mode parses tracking modes and resolves a raw mode list into the
// canonical plan a tracker executes.
//
// Resolution happens once, before any subscription is made. The two
// suppression rules (view subsumes viewonce, timeSinceView subsumes time)
// live here and nowhere else.
package mode

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Mode selects one dispatch policy.
type Mode string

const (
	// Normal dispatches the payload once at activation.
	Normal Mode = "normal"
	// ViewOnce dispatches the payload the first time the element enters the viewport.
	ViewOnce Mode = "viewonce"
	// View counts viewport entries and dispatches the count at teardown.
	View Mode = "view"
	// Time dispatches the render duration at teardown.
	Time Mode = "time"
	// TimeSinceView dispatches the duration since first viewport entry at teardown.
	TimeSinceView Mode = "timeSinceView"
)

// All lists every mode in declaration order.
var All = []Mode{Normal, ViewOnce, View, Time, TimeSinceView}

// Default is the mode set used when none (or nothing valid) is given.
var Default = []Mode{Normal}

// ErrUnknownMode is wrapped by ParseError for names outside All.
var ErrUnknownMode = errors.New("unknown mode")

// ParseError reports an unrecognised mode name.
type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v: %q (want one of %s)", ErrUnknownMode, e.Input, strings.Join(Names(All), ", "))
}

func (e *ParseError) Unwrap() error {
	return ErrUnknownMode
}

// Parse converts a name to a Mode. Names are NFC normalized and trimmed;
// matching is case-sensitive like the host prop values.
func Parse(s string) (Mode, error) {
	name := strings.TrimSpace(norm.NFC.String(s))
	for _, m := range All {
		if string(m) == name {
			return m, nil
		}
	}
	return "", &ParseError{Input: s}
}

// Valid reports whether m is one of All.
func (m Mode) Valid() bool {
	for _, known := range All {
		if m == known {
			return true
		}
	}
	return false
}

// Observes reports whether the mode needs intersection signals.
func (m Mode) Observes() bool {
	switch m {
	case ViewOnce, View, TimeSinceView:
		return true
	}
	return false
}

func (m Mode) String() string {
	return string(m)
}

// Names converts modes to their string names.
func Names(modes []Mode) []string {
	out := make([]string, len(modes))
	for i, m := range modes {
		out[i] = string(m)
	}
	return out
}

// ParseAll parses every name. Unknown names are skipped and reported in the
// returned error slice; the caller decides whether to warn.
func ParseAll(names []string) ([]Mode, []error) {
	var (
		modes []Mode
		errs  []error
	)
	for _, n := range names {
		m, err := Parse(n)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		modes = append(modes, m)
	}
	return modes, errs
}
