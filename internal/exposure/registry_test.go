package exposure_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/exposure/internal/exposure"
	"github.com/roach88/exposure/internal/ir"
	"github.com/roach88/exposure/internal/testutil"
)

func TestRegistry_FirstRegistrationWins(t *testing.T) {
	reg := exposure.NewRegistry()
	first := testutil.NewRecordingSink()
	second := testutil.NewRecordingSink()

	assert.False(t, reg.Registered())
	assert.True(t, reg.Register(first))
	assert.False(t, reg.Register(second), "later registration is a no-op")

	sink, ok := reg.Sink()
	require.True(t, ok)
	sink.Send(ir.Dispatch{Mode: "normal"})
	assert.Equal(t, 1, first.Len())
	assert.Equal(t, 0, second.Len())
}

func TestRegistry_RejectsNilSinks(t *testing.T) {
	reg := exposure.NewRegistry()

	assert.False(t, reg.Register(nil))
	assert.False(t, reg.Register(exposure.SinkFunc(nil)))
	assert.False(t, reg.Register(exposure.DispatchFunc(nil)))
	assert.False(t, reg.Registered())

	assert.True(t, reg.Register(exposure.DispatchFunc(func(ir.Dispatch) {})))
}

func TestDefaultRegistry(t *testing.T) {
	assert.Same(t, exposure.DefaultRegistry(), exposure.DefaultRegistry())
}

func TestFixedGenerator(t *testing.T) {
	gen := exposure.NewFixedGenerator("a", "b")
	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

func TestUUIDv7Generator(t *testing.T) {
	gen := exposure.UUIDv7Generator{}
	a, b := gen.Generate(), gen.Generate()

	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestObserverOptionsValidate(t *testing.T) {
	assert.NoError(t, exposure.DefaultObserverOptions().Validate())
	assert.NoError(t, exposure.ObserverOptions{RootMargin: "0px", Threshold: 0}.Validate())
	assert.Error(t, exposure.ObserverOptions{RootMargin: "0px", Threshold: -0.1}.Validate())
	assert.Error(t, exposure.ObserverOptions{RootMargin: "", Threshold: 1}.Validate())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "idle", exposure.PhaseIdle.String())
	assert.Equal(t, "active", exposure.PhaseActive.String())
	assert.Equal(t, "inert", exposure.PhaseInert.String())
	assert.Equal(t, "closed", exposure.PhaseClosed.String())
}
