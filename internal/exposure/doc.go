// Package exposure implements viewport exposure tracking for a single UI
// element.
//
// A Tracker owns the per-instance state machine. The host activates it when
// the element mounts and deactivates it when the element unmounts; between
// the two, an intersection Source reports visibility changes and the tracker
// decides when to hand a dispatch to the registered Sink.
//
// ARCHITECTURE:
//
// Capabilities are injected, never looked up:
//   - Sink: where dispatches go. Held by a Registry; first registration wins.
//   - Source: the host's intersection primitive (subscribe/unsubscribe).
//   - Clock: wall time for activation, first entry and teardown.
//
// Mode resolution (view subsumes viewonce, timeSinceView subsumes time)
// happens once in mode.Resolve before any subscription is made.
//
// Event Processing:
//  1. Activate records the activation time, sends normal dispatches and
//     subscribes one callback per observing mode
//  2. Each callback runs under the tracker mutex and mutates InstanceState
//  3. Deactivate closes the tracker, computes teardown dispatches, releases
//     every subscription, then sends
//
// Sink calls are always made with the mutex released.
//
// Late callbacks: a callback that fires after Deactivate (queued by the
// source before unsubscription took effect) is a no-op. It neither mutates
// state nor dispatches.
package exposure
