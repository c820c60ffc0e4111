package exposure

import (
	"fmt"
	"math"
)

// Target is the host's handle for the element being observed.
type Target string

// Entry is one intersection change reported by a Source.
type Entry struct {
	IsIntersecting bool
}

// Callback receives intersection entries. A source may batch several entries
// into one call; they are processed in order.
type Callback func(entries []Entry)

// Subscription is an opaque handle returned by Source.Subscribe.
type Subscription any

// Source is the host's viewport intersection primitive.
//
// Subscribe must not block. It may invoke cb from any goroutine at a time of
// its own choosing, including after Unsubscribe has returned if a callback
// was already queued; the tracker ignores such late calls.
type Source interface {
	Subscribe(target Target, opts ObserverOptions, cb Callback) (Subscription, error)
	Unsubscribe(sub Subscription)
}

// ObserverOptions configures intersection detection.
type ObserverOptions struct {
	// RootMargin grows or shrinks the root bounds, CSS margin syntax.
	RootMargin string `json:"root_margin" yaml:"root_margin"`

	// Threshold is the visible fraction (0..1) at which an element counts as intersecting.
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// DefaultObserverOptions requires the element to be fully visible with no margin.
func DefaultObserverOptions() ObserverOptions {
	return ObserverOptions{RootMargin: "0px", Threshold: 1.0}
}

// Validate checks the threshold range and that a margin is present.
func (o ObserverOptions) Validate() error {
	if math.IsNaN(o.Threshold) || o.Threshold < 0 || o.Threshold > 1 {
		return fmt.Errorf("threshold %v out of range [0, 1]", o.Threshold)
	}
	if o.RootMargin == "" {
		return fmt.Errorf("root margin is empty")
	}
	return nil
}
