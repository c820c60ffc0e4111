// Package store provides a SQLite-backed append-only log of emitted
// dispatches.
//
// The log is an audit trail: it records what the trackers sent, in order.
// It never restores tracker state.
//
// # Ordering
//
//   - Every row carries seq, a logical clock value assigned at append time
//   - All reads use ORDER BY seq ASC, id ASC COLLATE BINARY
//   - sent_at is wall time for humans only and never used for ordering
//
// # Identity
//
// Row IDs are content-addressed (ir.DispatchID over the canonical dispatch
// and its seq), so writing the same record twice is a no-op.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - single open connection (single writer)
package store
