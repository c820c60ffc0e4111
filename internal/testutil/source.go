package testutil

import (
	"errors"
	"sync"

	"github.com/roach88/exposure/internal/exposure"
)

// ErrSubscribeRefused is returned by ManualSource.Subscribe after RefuseNext.
var ErrSubscribeRefused = errors.New("subscription refused")

// ManualSource is an intersection source driven by the test.
//
// Subscriptions are never forgotten: after Unsubscribe the callback is kept
// so DeliverLate can simulate a callback that was queued before teardown.
//
// Thread-safety: all methods are safe for concurrent use. Callbacks are
// invoked without the internal lock held.
type ManualSource struct {
	mu     sync.Mutex
	next   int
	subs   []*manualSub
	refuse int
}

type manualSub struct {
	handle int
	target exposure.Target
	opts   exposure.ObserverOptions
	cb     exposure.Callback
	active bool
}

// NewManualSource creates a source with no subscriptions.
func NewManualSource() *ManualSource {
	return &ManualSource{}
}

// Subscribe implements exposure.Source. Handles are ints starting at 1.
func (s *ManualSource) Subscribe(target exposure.Target, opts exposure.ObserverOptions, cb exposure.Callback) (exposure.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refuse > 0 {
		s.refuse--
		return nil, ErrSubscribeRefused
	}
	s.next++
	s.subs = append(s.subs, &manualSub{
		handle: s.next,
		target: target,
		opts:   opts,
		cb:     cb,
		active: true,
	})
	return s.next, nil
}

// Unsubscribe implements exposure.Source.
func (s *ManualSource) Unsubscribe(sub exposure.Subscription) {
	h, ok := sub.(int)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ms := range s.subs {
		if ms.handle == h {
			ms.active = false
		}
	}
}

// RefuseNext makes the next n Subscribe calls fail.
func (s *ManualSource) RefuseNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refuse = n
}

// Enter reports the target as intersecting to every active subscription.
func (s *ManualSource) Enter(target exposure.Target) {
	s.Emit(target, exposure.Entry{IsIntersecting: true})
}

// Exit reports the target as not intersecting to every active subscription.
func (s *ManualSource) Exit(target exposure.Target) {
	s.Emit(target, exposure.Entry{IsIntersecting: false})
}

// Emit delivers entries to every active subscription for target.
func (s *ManualSource) Emit(target exposure.Target, entries ...exposure.Entry) {
	for _, cb := range s.callbacks(target, false) {
		cb(entries)
	}
}

// DeliverLate delivers entries to every subscription for target, including
// ones already unsubscribed.
func (s *ManualSource) DeliverLate(target exposure.Target, entries ...exposure.Entry) {
	for _, cb := range s.callbacks(target, true) {
		cb(entries)
	}
}

// Active returns the number of live subscriptions for target.
func (s *ManualSource) Active(target exposure.Target) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ms := range s.subs {
		if ms.target == target && ms.active {
			n++
		}
	}
	return n
}

// Options returns the observer options of every subscription made for target.
func (s *ManualSource) Options(target exposure.Target) []exposure.ObserverOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []exposure.ObserverOptions
	for _, ms := range s.subs {
		if ms.target == target {
			out = append(out, ms.opts)
		}
	}
	return out
}

func (s *ManualSource) callbacks(target exposure.Target, includeInactive bool) []exposure.Callback {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []exposure.Callback
	for _, ms := range s.subs {
		if ms.target == target && (ms.active || includeInactive) {
			out = append(out, ms.cb)
		}
	}
	return out
}
