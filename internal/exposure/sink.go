package exposure

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/exposure/internal/ir"
)

// Sink receives dispatches. The tracker never inspects a result and never
// retries; a panicking sink propagates to the caller of Activate, Deactivate
// or the source callback.
type Sink interface {
	Send(d ir.Dispatch)
}

// SinkFunc adapts the three-argument send(eventId, eventParams, actionParams)
// contract to Sink. Instance, target and mode are dropped.
type SinkFunc func(evt ir.IRValue, evtParams, actionParams ir.IRObject)

// Send calls f.
func (f SinkFunc) Send(d ir.Dispatch) {
	f(d.Event, d.EventParams, d.ActionParams)
}

// DispatchFunc adapts a function taking the full dispatch record to Sink.
type DispatchFunc func(d ir.Dispatch)

// Send calls f.
func (f DispatchFunc) Send(d ir.Dispatch) {
	f(d)
}

// Registry holds the single dispatch sink trackers send to.
//
// The sink is assigned at most once: the first successful Register wins and
// later calls are no-ops. Trackers created against an empty registry warn
// once per registry and never dispatch.
//
// Thread-safety: safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	sink   Sink
	warned atomic.Bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register stores s if no sink is registered yet. It returns true when s
// became the registered sink. Nil sinks are rejected.
func (r *Registry) Register(s Sink) bool {
	if isNilSink(s) {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sink != nil {
		return false
	}
	r.sink = s
	return true
}

// Registered reports whether a sink has been registered.
func (r *Registry) Registered() bool {
	_, ok := r.Sink()
	return ok
}

// Sink returns the registered sink.
func (r *Registry) Sink() (Sink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sink, r.sink != nil
}

// warnUnregistered logs the missing-sink warning the first time it is called
// on r. It returns true if this call emitted the warning.
func (r *Registry) warnUnregistered(logger *slog.Logger, err error) bool {
	if !r.warned.CompareAndSwap(false, true) {
		return false
	}
	logger.Warn("dispatch sink not registered; exposure tracking will not dispatch",
		"error", err,
	)
	return true
}

func isNilSink(s Sink) bool {
	switch f := s.(type) {
	case nil:
		return true
	case SinkFunc:
		return f == nil
	case DispatchFunc:
		return f == nil
	}
	return false
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry used by trackers created
// without WithRegistry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register registers s on the process-wide registry. First registration wins.
func Register(s Sink) bool {
	return defaultRegistry.Register(s)
}
