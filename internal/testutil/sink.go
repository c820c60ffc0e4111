package testutil

import (
	"sync"

	"github.com/roach88/exposure/internal/ir"
)

// RecordingSink records every dispatch it receives.
//
// Thread-safety: all methods are safe for concurrent use.
type RecordingSink struct {
	mu         sync.Mutex
	dispatches []ir.Dispatch
}

// NewRecordingSink creates an empty sink.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

// Send implements exposure.Sink.
func (s *RecordingSink) Send(d ir.Dispatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatches = append(s.dispatches, d)
}

// Dispatches returns a copy of everything received so far.
func (s *RecordingSink) Dispatches() []ir.Dispatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ir.Dispatch, len(s.dispatches))
	copy(out, s.dispatches)
	return out
}

// Len returns the number of dispatches received.
func (s *RecordingSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dispatches)
}

// ByMode returns the dispatches produced by mode m.
func (s *RecordingSink) ByMode(m string) []ir.Dispatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ir.Dispatch
	for _, d := range s.dispatches {
		if d.Mode == m {
			out = append(out, d)
		}
	}
	return out
}
