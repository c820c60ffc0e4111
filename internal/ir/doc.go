// Package ir holds the value model shared by every other package: payload
// parameter values, tracking payloads, dispatch records and their canonical
// JSON form.
//
// ir imports nothing internal. All other packages import ir, never the
// reverse.
//
// Constraints:
//   - No float values anywhere; numbers are int64
//   - Canonical JSON (RFC 8785) is the only serialization used for IDs,
//     stored params and golden traces
//   - JSON tags use snake_case
package ir
