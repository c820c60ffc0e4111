package ir

import "fmt"

// DefaultTimeEvent is the event identifier used by duration dispatches when
// the payload does not name one.
const DefaultTimeEvent = IRString("2")

// Payload identifies which event to dispatch and with what parameters.
// It is owned by the host and treated as immutable; the tracker copies
// ActionParams before adding a times count.
type Payload struct {
	// Evt is the event identifier, an IRString or IRInt.
	Evt IRValue `json:"evt"`

	// EvtParams are the event parameters. Duration dispatches read "uicode" from here.
	EvtParams IRObject `json:"evt_params"`

	// ActionParams are forwarded unchanged, except for the view mode's times count.
	ActionParams IRObject `json:"action_params"`
}

// EventOr returns p.Evt, or def when Evt is unset (nil, "", 0).
func (p Payload) EventOr(def IRValue) IRValue {
	if IsZero(p.Evt) {
		return def
	}
	return p.Evt
}

// Validate checks that Evt, when present, is a string or an integer.
func (p Payload) Validate() error {
	switch p.Evt.(type) {
	case nil, IRString, IRInt:
		return nil
	default:
		return fmt.Errorf("payload evt must be a string or integer, got %T", p.Evt)
	}
}

func (p Payload) toObject() IRObject {
	obj := IRObject{
		"evt_params":    nonNil(p.EvtParams),
		"action_params": nonNil(p.ActionParams),
	}
	if p.Evt != nil {
		obj["evt"] = p.Evt
	}
	return obj
}

// PayloadFromAny builds a Payload from decoded YAML/JSON values.
// Accepted keys mirror the host props: evt, evtParams/evt_params,
// actionParams/action_params.
func PayloadFromAny(m map[string]any) (Payload, error) {
	var p Payload
	if raw, ok := m["evt"]; ok && raw != nil {
		evt, err := FromAny(raw)
		if err != nil {
			return Payload{}, fmt.Errorf("evt: %w", err)
		}
		p.Evt = evt
	}

	var err error
	if p.EvtParams, err = objectField(m, "evt_params", "evtParams"); err != nil {
		return Payload{}, err
	}
	if p.ActionParams, err = objectField(m, "action_params", "actionParams"); err != nil {
		return Payload{}, err
	}
	return p, p.Validate()
}

func objectField(m map[string]any, keys ...string) (IRObject, error) {
	for _, k := range keys {
		raw, ok := m[k]
		if !ok || raw == nil {
			continue
		}
		sub, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s: expected object, got %T", k, raw)
		}
		obj, err := ObjectFromAny(sub)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		return obj, nil
	}
	return IRObject{}, nil
}

func nonNil(obj IRObject) IRObject {
	if obj == nil {
		return IRObject{}
	}
	return obj
}
