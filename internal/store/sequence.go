package store

import "sync/atomic"

// Sequence is the logical clock that orders dispatch log rows.
//
// Every appended row is stamped with a strictly increasing seq. Replaying the
// same dispatches in the same order yields the same seqs, and therefore the
// same content-addressed IDs.
//
// Thread-safety: safe for concurrent use (atomic operations).
type Sequence struct {
	seq atomic.Int64
}

// NewSequence creates a sequence starting at 0. The first Next() returns 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// NewSequenceAt creates a sequence that resumes after start.
// Used when reopening an existing log.
func NewSequenceAt(start int64) *Sequence {
	s := &Sequence{}
	s.seq.Store(start)
	return s
}

// Next returns the next sequence number.
func (s *Sequence) Next() int64 {
	return s.seq.Add(1)
}

// Current returns the last issued sequence number without incrementing.
func (s *Sequence) Current() int64 {
	return s.seq.Load()
}
