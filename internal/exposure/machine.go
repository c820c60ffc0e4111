package exposure

import (
	"time"

	"github.com/roach88/exposure/internal/ir"
	"github.com/roach88/exposure/internal/mode"
)

// Per-mode state machines. Every function here runs with t.mu held and only
// touches t.state; sending is left to the caller.

// observe applies one intersection entry for mode m.
func (t *Tracker) observe(m mode.Mode, e Entry, now time.Time) (ir.Dispatch, bool) {
	switch m {
	case mode.ViewOnce:
		if e.IsIntersecting && !t.state.HadSentOnce {
			t.state.HadSentOnce = true
			return t.payloadDispatch(m, t.cfg.Payload.ActionParams), true
		}

	case mode.View:
		if e.IsIntersecting && !t.state.InView {
			t.state.InView = true
			t.state.InViewCount++
		} else if !e.IsIntersecting && t.state.InView {
			t.state.InView = false
		}

	case mode.TimeSinceView:
		if e.IsIntersecting && t.state.FirstEntryAt.IsZero() {
			t.state.FirstEntryAt = now
		}
	}
	return ir.Dispatch{}, false
}

// teardown returns the deactivation dispatch for mode m, if it has one.
func (t *Tracker) teardown(m mode.Mode, now time.Time) (ir.Dispatch, bool) {
	switch m {
	case mode.Time:
		if !t.state.SendDurationOnTeardown {
			return ir.Dispatch{}, false
		}
		return t.durationDispatch(m, now.Sub(t.state.ActivatedAt)), true

	case mode.View:
		// Fires even when the element never entered view (times = 0).
		params := t.cfg.Payload.ActionParams.Clone()
		params["times"] = ir.IRInt(t.state.InViewCount)
		return t.payloadDispatch(m, params), true

	case mode.TimeSinceView:
		if t.state.FirstEntryAt.IsZero() {
			t.logger.Debug("element never entered view, skipping duration dispatch", "mode", string(m))
			return ir.Dispatch{}, false
		}
		return t.durationDispatch(m, now.Sub(t.state.FirstEntryAt)), true
	}
	return ir.Dispatch{}, false
}

// payloadDispatch dispatches the payload as configured, with actionParams
// substituted.
func (t *Tracker) payloadDispatch(m mode.Mode, actionParams ir.IRObject) ir.Dispatch {
	return ir.Dispatch{
		InstanceID:   t.id,
		Target:       string(t.target),
		Mode:         string(m),
		Event:        t.cfg.Payload.Evt,
		EventParams:  t.cfg.Payload.EvtParams,
		ActionParams: actionParams,
	}
}

// durationDispatch builds a {uicode, stt} dispatch. stt is whole seconds,
// truncated toward zero.
func (t *Tracker) durationDispatch(m mode.Mode, elapsed time.Duration) ir.Dispatch {
	params := ir.IRObject{"stt": ir.IRInt(wholeSeconds(elapsed))}
	if uicode, ok := t.cfg.Payload.EvtParams["uicode"]; ok && !isNull(uicode) {
		params["uicode"] = uicode
	}
	return ir.Dispatch{
		InstanceID:   t.id,
		Target:       string(t.target),
		Mode:         string(m),
		Event:        t.cfg.Payload.EventOr(ir.DefaultTimeEvent),
		EventParams:  params,
		ActionParams: t.cfg.Payload.ActionParams,
	}
}

func isNull(v ir.IRValue) bool {
	switch v.(type) {
	case nil, ir.IRNull:
		return true
	}
	return false
}
