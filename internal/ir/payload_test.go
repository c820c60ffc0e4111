package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadEventOr(t *testing.T) {
	assert.Equal(t, IRValue(IRString("1001")), Payload{Evt: IRString("1001")}.EventOr(DefaultTimeEvent))
	assert.Equal(t, IRValue(IRInt(9)), Payload{Evt: IRInt(9)}.EventOr(DefaultTimeEvent))
	assert.Equal(t, IRValue(DefaultTimeEvent), Payload{}.EventOr(DefaultTimeEvent))
	assert.Equal(t, IRValue(DefaultTimeEvent), Payload{Evt: IRString("")}.EventOr(DefaultTimeEvent))
	assert.Equal(t, IRValue(DefaultTimeEvent), Payload{Evt: IRInt(0)}.EventOr(DefaultTimeEvent))
}

func TestPayloadFromAny(t *testing.T) {
	p, err := PayloadFromAny(map[string]any{
		"evt":           1001,
		"evtParams":     map[string]any{"uicode": "banner"},
		"action_params": map[string]any{"page": "home"},
	})
	require.NoError(t, err)

	assert.Equal(t, IRValue(IRInt(1001)), p.Evt)
	assert.Equal(t, IRObject{"uicode": IRString("banner")}, p.EvtParams)
	assert.Equal(t, IRObject{"page": IRString("home")}, p.ActionParams)
}

func TestPayloadFromAny_Defaults(t *testing.T) {
	p, err := PayloadFromAny(map[string]any{})
	require.NoError(t, err)

	assert.Nil(t, p.Evt)
	assert.NotNil(t, p.EvtParams)
	assert.NotNil(t, p.ActionParams)
}

func TestPayloadFromAny_Errors(t *testing.T) {
	_, err := PayloadFromAny(map[string]any{"evt": []any{"x"}})
	assert.Error(t, err, "evt must be scalar")

	_, err = PayloadFromAny(map[string]any{"evt_params": "nope"})
	assert.Error(t, err)

	_, err = PayloadFromAny(map[string]any{"action_params": map[string]any{"f": 0.5}})
	assert.Error(t, err)
}

func TestPayloadHash(t *testing.T) {
	a := Payload{Evt: IRString("1"), EvtParams: IRObject{"uicode": IRString("x")}}
	b := Payload{Evt: IRString("1"), EvtParams: IRObject{"uicode": IRString("x")}, ActionParams: IRObject{}}

	ha, err := PayloadHash(a)
	require.NoError(t, err)
	hb, err := PayloadHash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb, "nil and empty params hash the same")
}
