// Package harness runs exposure scenarios deterministically.
//
// A scenario configures one element, drives its tracker through a timeline of
// lifecycle and intersection steps, and asserts on the dispatches that reached
// the dispatch log.
//
// # Scenario Format
//
//	name: view_counts_entries
//	description: "Two separate entries report times=2"
//	target: banner
//	modes: [view]
//	payload:
//	  evt: "1001"
//	  evt_params: { uicode: banner }
//	steps:
//	  - { at_ms: 0,    action: activate }
//	  - { at_ms: 100,  action: enter }
//	  - { at_ms: 200,  action: exit }
//	  - { at_ms: 300,  action: enter }
//	  - { at_ms: 1000, action: deactivate }
//	assertions:
//	  - type: dispatch_contains
//	    mode: view
//	    action_params: { times: 2 }
//
// Instead of inline element fields a scenario may reference a CUE element
// configuration with config (a directory, relative to the scenario file) and
// element (the element name).
//
// # Steps
//
//   - activate, deactivate: lifecycle calls on the tracker
//   - enter, exit: intersection entries delivered to live subscriptions
//   - late_enter, late_exit: entries delivered to every subscription ever
//     made, including released ones, as a queued callback would be
//
// at_ms is the wall time offset from testutil.Epoch at which the step runs.
//
// # Assertion Types
//
//   - dispatch_count: number of dispatches, optionally for one mode
//   - dispatch_contains: a dispatch matching mode, event and params (subset match)
//   - dispatch_order: the exact sequence of dispatch modes
//   - final_state: tracker state after the last step (subset match)
//   - warning: the tracker recorded a configuration warning with the given code
//
// # Deterministic Testing
//
// Every run uses a manual clock, a manual intersection source, a fixed
// instance ID and a fresh dispatch log, so identical scenarios produce
// byte-identical traces suitable for golden file comparison.
package harness
