package harness

import "github.com/roach88/exposure/internal/ir"

// TraceEvent is one dispatch as read back from the dispatch log.
type TraceEvent struct {
	Seq          int64       `json:"seq"`
	Mode         string      `json:"mode"`
	Event        ir.IRValue  `json:"event,omitempty"`
	EventParams  ir.IRObject `json:"event_params"`
	ActionParams ir.IRObject `json:"action_params"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every assertion held.
	Pass bool `json:"pass"`

	// InstanceID is the tracker instance the trace belongs to.
	InstanceID string `json:"instance_id"`

	// Trace lists the dispatches of this run in seq order.
	Trace []TraceEvent `json:"trace"`

	// State is the tracker state after the last step.
	State ir.IRObject `json:"state"`

	// Warnings lists the configuration warning codes the tracker recorded.
	Warnings []string `json:"warnings,omitempty"`

	// Errors contains assertion failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		State:    ir.IRObject{},
		Warnings: []string{},
		Errors:   []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Modes returns the mode of every trace event, in order.
func (r *Result) Modes() []string {
	out := make([]string, len(r.Trace))
	for i, e := range r.Trace {
		out[i] = e.Mode
	}
	return out
}
