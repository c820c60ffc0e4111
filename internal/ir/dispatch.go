package ir

// Dispatch is one tracking event handed to the dispatch sink.
type Dispatch struct {
	// InstanceID identifies the tracker instance that produced the dispatch.
	InstanceID string `json:"instance_id"`

	// Target is the host's handle for the instrumented element.
	Target string `json:"target"`

	// Mode is the behavior that produced the dispatch ("normal", "view", ...).
	Mode string `json:"mode"`

	Event        IRValue  `json:"event"`
	EventParams  IRObject `json:"event_params"`
	ActionParams IRObject `json:"action_params"`
}

func (d Dispatch) toObject() IRObject {
	obj := IRObject{
		"instance_id":   IRString(d.InstanceID),
		"target":        IRString(d.Target),
		"mode":          IRString(d.Mode),
		"event_params":  nonNil(d.EventParams),
		"action_params": nonNil(d.ActionParams),
	}
	if d.Event != nil {
		obj["event"] = d.Event
	}
	return obj
}

// Canonical returns the dispatch as canonical JSON.
func (d Dispatch) Canonical() ([]byte, error) {
	return MarshalCanonical(d.toObject())
}
