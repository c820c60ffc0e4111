package mode

import "slices"

// Suppression names a rule that removed a mode during resolution.
type Suppression struct {
	Removed Mode `json:"removed"`
	By      Mode `json:"by"`
}

// Plan is the canonical, resolved set of behaviors for one tracker.
// It never changes after Resolve returns.
type Plan struct {
	// Activation lists modes in input order, deduplicated, with suppressed
	// modes removed. Behaviors are instantiated in this order, so a normal
	// dispatch lands at its position relative to the others.
	Activation []Mode `json:"activation"`

	// Teardown lists the modes that dispatch on deactivation, in fixed order:
	// time, view, timeSinceView.
	Teardown []Mode `json:"teardown"`

	// Suppressed records which suppression rules fired.
	Suppressed []Suppression `json:"suppressed,omitempty"`

	// Defaulted is true when the input held no valid mode and Default was used.
	Defaulted bool `json:"defaulted,omitempty"`
}

// teardownOrder is the fixed order of teardown dispatches.
var teardownOrder = []Mode{Time, View, TimeSinceView}

// subsumes maps a mode to the mode whose presence suppresses it.
var subsumes = []Suppression{
	{Removed: ViewOnce, By: View},
	{Removed: Time, By: TimeSinceView},
}

// Resolve turns a raw mode list into a Plan.
//
// Invalid entries are ignored. Duplicates keep their first position. If
// nothing valid remains the Default set is used.
func Resolve(modes []Mode) Plan {
	var plan Plan

	seen := make(map[Mode]bool, len(modes))
	var uniq []Mode
	for _, m := range modes {
		if !m.Valid() || seen[m] {
			continue
		}
		seen[m] = true
		uniq = append(uniq, m)
	}
	if len(uniq) == 0 {
		uniq = slices.Clone(Default)
		plan.Defaulted = true
		for _, m := range uniq {
			seen[m] = true
		}
	}

	removed := make(map[Mode]bool)
	for _, s := range subsumes {
		if seen[s.Removed] && seen[s.By] {
			removed[s.Removed] = true
			plan.Suppressed = append(plan.Suppressed, s)
		}
	}

	for _, m := range uniq {
		if !removed[m] {
			plan.Activation = append(plan.Activation, m)
		}
	}
	for _, m := range teardownOrder {
		if plan.Has(m) {
			plan.Teardown = append(plan.Teardown, m)
		}
	}
	return plan
}

// ResolveNames parses and resolves in one step. Parse errors are returned so
// the caller can warn; they never prevent a usable plan.
func ResolveNames(names []string) (Plan, []error) {
	modes, errs := ParseAll(names)
	return Resolve(modes), errs
}

// Has reports whether m survived resolution.
func (p Plan) Has(m Mode) bool {
	return slices.Contains(p.Activation, m)
}

// Observed returns the activated modes that need intersection signals, in
// activation order.
func (p Plan) Observed() []Mode {
	var out []Mode
	for _, m := range p.Activation {
		if m.Observes() {
			out = append(out, m)
		}
	}
	return out
}
