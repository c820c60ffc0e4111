package exposure_test

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/exposure/internal/exposure"
	"github.com/roach88/exposure/internal/ir"
	"github.com/roach88/exposure/internal/mode"
	"github.com/roach88/exposure/internal/testutil"
)

const target exposure.Target = "banner"

type fixture struct {
	clock *testutil.ManualClock
	src   *testutil.ManualSource
	sink  *testutil.RecordingSink
	reg   *exposure.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock: testutil.NewManualClock(time.Time{}),
		src:   testutil.NewManualSource(),
		sink:  testutil.NewRecordingSink(),
		reg:   exposure.NewRegistry(),
	}
	require.True(t, f.reg.Register(f.sink))
	return f
}

func (f *fixture) tracker(cfg exposure.Config, opts ...exposure.Option) *exposure.Tracker {
	base := []exposure.Option{
		exposure.WithRegistry(f.reg),
		exposure.WithSource(f.src),
		exposure.WithClock(f.clock),
		exposure.WithIDGenerator(testutil.NewFixedIDGenerator("inst-1")),
		exposure.WithLogger(discardLogger()),
	}
	return exposure.New(target, cfg, append(base, opts...)...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPayload() ir.Payload {
	return ir.Payload{
		Evt:          ir.IRString("1001"),
		EvtParams:    ir.IRObject{"uicode": ir.IRString("home_banner"), "pos": ir.IRInt(1)},
		ActionParams: ir.IRObject{"page": ir.IRString("home")},
	}
}

func TestNormal_DispatchesOnceAtActivation(t *testing.T) {
	f := newFixture(t)
	tr := f.tracker(exposure.NewConfig(testPayload(), mode.Normal))

	tr.Activate()
	require.Equal(t, 1, f.sink.Len())

	d := f.sink.Dispatches()[0]
	assert.Equal(t, "normal", d.Mode)
	assert.Equal(t, "inst-1", d.InstanceID)
	assert.Equal(t, "banner", d.Target)
	assert.Equal(t, ir.IRValue(ir.IRString("1001")), d.Event)
	assert.Equal(t, testPayload().EvtParams, d.EventParams)
	assert.Equal(t, testPayload().ActionParams, d.ActionParams)

	tr.Deactivate()
	assert.Equal(t, 1, f.sink.Len(), "deactivation adds nothing for normal")
	assert.Equal(t, 0, f.src.Active(target), "normal never subscribes")
}

func TestDefaultModeIsNormal(t *testing.T) {
	f := newFixture(t)
	tr := f.tracker(exposure.NewConfig(testPayload()))

	tr.Activate()
	tr.Deactivate()

	require.Equal(t, 1, f.sink.Len())
	assert.Equal(t, "normal", f.sink.Dispatches()[0].Mode)
	assert.True(t, tr.Plan().Defaulted)
}

func TestViewOnce_SingleDispatchRegardlessOfEntries(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		f := newFixture(t)
		tr := f.tracker(exposure.NewConfig(testPayload(), mode.ViewOnce))
		tr.Activate()

		for i := 0; i < n; i++ {
			f.src.Enter(target)
			f.src.Exit(target)
		}
		tr.Deactivate()

		require.Equal(t, 1, f.sink.Len(), "n=%d", n)
		d := f.sink.Dispatches()[0]
		assert.Equal(t, "viewonce", d.Mode)
		assert.Equal(t, testPayload().ActionParams, d.ActionParams)
		assert.True(t, tr.Snapshot().HadSentOnce)
	}
}

func TestViewOnce_NoEntryNoDispatch(t *testing.T) {
	f := newFixture(t)
	tr := f.tracker(exposure.NewConfig(testPayload(), mode.ViewOnce))

	tr.Activate()
	f.src.Exit(target)
	tr.Deactivate()

	assert.Equal(t, 0, f.sink.Len())
}

func TestView_CountsEntriesAndDispatchesAtTeardown(t *testing.T) {
	f := newFixture(t)
	payload := testPayload()
	tr := f.tracker(exposure.NewConfig(payload, mode.View))

	tr.Activate()
	f.src.Enter(target)
	f.src.Exit(target)
	f.src.Enter(target)
	f.src.Enter(target) // already in view: not counted
	f.src.Exit(target)
	f.src.Enter(target)

	snap := tr.Snapshot()
	assert.Equal(t, uint(3), snap.InViewCount)
	assert.True(t, snap.InView)
	assert.Equal(t, 0, f.sink.Len(), "view never dispatches before teardown")

	tr.Deactivate()
	require.Equal(t, 1, f.sink.Len())

	d := f.sink.Dispatches()[0]
	assert.Equal(t, "view", d.Mode)
	assert.Equal(t, ir.IRObject{"page": ir.IRString("home"), "times": ir.IRInt(3)}, d.ActionParams)
	assert.Equal(t, payload.EvtParams, d.EventParams)
	assert.NotContains(t, payload.ActionParams, "times", "host payload must not be mutated")
}

func TestView_BatchedEntries(t *testing.T) {
	f := newFixture(t)
	tr := f.tracker(exposure.NewConfig(testPayload(), mode.View))

	tr.Activate()
	f.src.Emit(target,
		exposure.Entry{IsIntersecting: true},
		exposure.Entry{IsIntersecting: false},
		exposure.Entry{IsIntersecting: true},
	)

	assert.Equal(t, uint(2), tr.Snapshot().InViewCount)
}

func TestView_NeverEnteredStillDispatchesZero(t *testing.T) {
	f := newFixture(t)
	tr := f.tracker(exposure.NewConfig(testPayload(), mode.View))

	tr.Activate()
	tr.Deactivate()

	require.Equal(t, 1, f.sink.Len())
	assert.Equal(t, ir.IRValue(ir.IRInt(0)), f.sink.Dispatches()[0].ActionParams["times"])
}

func TestTime_TruncatesToWholeSeconds(t *testing.T) {
	f := newFixture(t)
	tr := f.tracker(exposure.NewConfig(testPayload(), mode.Time))

	tr.Activate()
	f.clock.Advance(2500 * time.Millisecond)
	tr.Deactivate()

	require.Equal(t, 1, f.sink.Len())
	d := f.sink.Dispatches()[0]
	assert.Equal(t, "time", d.Mode)
	assert.Equal(t, ir.IRValue(ir.IRString("1001")), d.Event)
	assert.Equal(t, ir.IRObject{"uicode": ir.IRString("home_banner"), "stt": ir.IRInt(2)}, d.EventParams)
	assert.Equal(t, testPayload().ActionParams, d.ActionParams)
	assert.Equal(t, 0, f.src.Active(target), "time never subscribes")
}

func TestTime_DefaultEventAndMissingUICode(t *testing.T) {
	f := newFixture(t)
	tr := f.tracker(exposure.NewConfig(ir.Payload{}, mode.Time))

	tr.Activate()
	f.clock.Advance(999 * time.Millisecond)
	tr.Deactivate()

	require.Equal(t, 1, f.sink.Len())
	d := f.sink.Dispatches()[0]
	assert.Equal(t, ir.IRValue(ir.DefaultTimeEvent), d.Event)
	assert.Equal(t, ir.IRObject{"stt": ir.IRInt(0)}, d.EventParams)
}

func TestTimeSinceView_MeasuresFromFirstEntry(t *testing.T) {
	f := newFixture(t)
	tr := f.tracker(exposure.NewConfig(testPayload(), mode.TimeSinceView))

	tr.Activate()
	f.clock.Advance(500 * time.Millisecond)
	f.src.Enter(target)
	f.clock.Advance(1000 * time.Millisecond)
	f.src.Exit(target)
	f.src.Enter(target) // later entries do not move the start
	f.clock.Advance(1500 * time.Millisecond)
	tr.Deactivate()

	require.Equal(t, 1, f.sink.Len())
	d := f.sink.Dispatches()[0]
	assert.Equal(t, "timeSinceView", d.Mode)
	assert.Equal(t, ir.IRObject{"uicode": ir.IRString("home_banner"), "stt": ir.IRInt(2)}, d.EventParams)
	assert.Equal(t, testutil.Epoch.Add(500*time.Millisecond), tr.Snapshot().FirstEntryAt)
}

func TestTimeSinceView_NeverEnteredSkipsDispatch(t *testing.T) {
	f := newFixture(t)
	tr := f.tracker(exposure.NewConfig(testPayload(), mode.TimeSinceView))

	tr.Activate()
	f.clock.Advance(10 * time.Second)
	tr.Deactivate()

	assert.Equal(t, 0, f.sink.Len())
}

func TestViewSubsumesViewOnce(t *testing.T) {
	f := newFixture(t)
	tr := f.tracker(exposure.NewConfig(testPayload(), mode.ViewOnce, mode.View))

	tr.Activate()
	assert.Equal(t, 1, f.src.Active(target), "only view subscribes")
	f.src.Enter(target)
	assert.Equal(t, 0, f.sink.Len(), "no single-shot dispatch")

	tr.Deactivate()
	require.Equal(t, 1, f.sink.Len())
	assert.Equal(t, "view", f.sink.Dispatches()[0].Mode)
	assert.False(t, tr.Snapshot().HadSentOnce)
}

func TestTimeSinceViewSubsumesTime(t *testing.T) {
	f := newFixture(t)
	tr := f.tracker(exposure.NewConfig(testPayload(), mode.Time, mode.TimeSinceView))

	tr.Activate()
	f.src.Enter(target)
	f.clock.Advance(3 * time.Second)
	tr.Deactivate()

	require.Equal(t, 1, f.sink.Len())
	assert.Equal(t, "timeSinceView", f.sink.Dispatches()[0].Mode)
	assert.False(t, tr.Snapshot().SendDurationOnTeardown)
}

func TestNormalIsAdditive(t *testing.T) {
	f := newFixture(t)
	tr := f.tracker(exposure.NewConfig(testPayload(), mode.View, mode.Normal, mode.Time))

	tr.Activate()
	require.Equal(t, 1, f.sink.Len())
	assert.Equal(t, "normal", f.sink.Dispatches()[0].Mode)

	f.src.Enter(target)
	f.clock.Advance(1 * time.Second)
	tr.Deactivate()

	modes := make([]string, 0, f.sink.Len())
	for _, d := range f.sink.Dispatches() {
		modes = append(modes, d.Mode)
	}
	assert.Equal(t, []string{"normal", "time", "view"}, modes, "teardown order is time, view, timeSinceView")
}

func TestDeactivate_Idempotent(t *testing.T) {
	f := newFixture(t)
	tr := f.tracker(exposure.NewConfig(testPayload(), mode.View, mode.Time))

	tr.Activate()
	f.src.Enter(target)
	tr.Deactivate()
	first := f.sink.Len()
	tr.Deactivate()

	assert.Equal(t, 2, first)
	assert.Equal(t, first, f.sink.Len(), "second deactivate must not dispatch")
	assert.Equal(t, exposure.PhaseClosed, tr.Phase())
}

func TestDeactivate_NeverActivated(t *testing.T) {
	f := newFixture(t)
	tr := f.tracker(exposure.NewConfig(testPayload(), mode.View, mode.Time))

	assert.NotPanics(t, tr.Deactivate)
	assert.Equal(t, 0, f.sink.Len())
	assert.Equal(t, exposure.PhaseIdle, tr.Phase())
}

func TestActivate_Twice(t *testing.T) {
	f := newFixture(t)
	tr := f.tracker(exposure.NewConfig(testPayload(), mode.Normal, mode.View))

	tr.Activate()
	tr.Activate()

	assert.Equal(t, 1, f.sink.Len())
	assert.Equal(t, 1, f.src.Active(target))
}

func TestActivate_AfterDeactivateIsIgnored(t *testing.T) {
	f := newFixture(t)
	tr := f.tracker(exposure.NewConfig(testPayload(), mode.Normal))

	tr.Activate()
	tr.Deactivate()
	tr.Activate()

	assert.Equal(t, 1, f.sink.Len())
	assert.Equal(t, exposure.PhaseClosed, tr.Phase())
}

func TestDeactivate_ReleasesSubscriptions(t *testing.T) {
	f := newFixture(t)
	tr := f.tracker(exposure.NewConfig(testPayload(), mode.ViewOnce, mode.TimeSinceView))

	tr.Activate()
	assert.Equal(t, 2, f.src.Active(target), "one subscription per observing mode")

	tr.Deactivate()
	assert.Equal(t, 0, f.src.Active(target))
}

func TestLateCallbacksAreNoOps(t *testing.T) {
	f := newFixture(t)
	tr := f.tracker(exposure.NewConfig(testPayload(), mode.ViewOnce, mode.View, mode.Time))

	tr.Activate()
	tr.Deactivate()
	before := tr.Snapshot()

	f.src.DeliverLate(target, exposure.Entry{IsIntersecting: true})

	assert.Equal(t, 2, f.sink.Len(), "only the time and view teardown dispatches")
	assert.Equal(t, before, tr.Snapshot(), "late callbacks must not mutate state")
	assert.Equal(t, uint(0), tr.Snapshot().InViewCount)
}

func TestNoSinkRegistered(t *testing.T) {
	f := newFixture(t)
	empty := exposure.NewRegistry()
	tr := f.tracker(exposure.NewConfig(testPayload(), mode.All...), exposure.WithRegistry(empty))

	assert.NotPanics(t, func() {
		tr.Activate()
		f.src.Enter(target)
		f.clock.Advance(3 * time.Second)
		tr.Deactivate()
		tr.Deactivate()
	})

	assert.Equal(t, 0, f.sink.Len())
	assert.Equal(t, 0, f.src.Active(target), "inert trackers never subscribe")
	assert.Equal(t, exposure.PhaseClosed, tr.Phase())

	warnings := tr.Warnings()
	require.Len(t, warnings, 1)
	assert.True(t, exposure.IsSinkUnregistered(warnings[0]))
}

func TestNoSinkRegistered_WarnsOncePerRegistry(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	empty := exposure.NewRegistry()

	for i := 0; i < 3; i++ {
		tr := exposure.New(target, exposure.NewConfig(testPayload()),
			exposure.WithRegistry(empty),
			exposure.WithLogger(logger),
		)
		tr.Activate()
		tr.Deactivate()
	}

	assert.Equal(t, 1, strings.Count(buf.String(), "dispatch sink not registered"))
}

func TestDispatchDisabled_StateStillUpdates(t *testing.T) {
	f := newFixture(t)
	cfg := exposure.NewConfig(testPayload(), mode.Normal, mode.ViewOnce, mode.TimeSinceView)
	cfg.DispatchEnabled = false
	tr := f.tracker(cfg)

	tr.Activate()
	f.src.Enter(target)
	f.clock.Advance(2 * time.Second)

	snap := tr.Snapshot()
	assert.True(t, snap.HadSentOnce)
	assert.False(t, snap.FirstEntryAt.IsZero())

	tr.Deactivate()
	assert.Equal(t, 0, f.sink.Len())
}

func TestSubscribeFailure_OtherModesContinue(t *testing.T) {
	f := newFixture(t)
	f.src.RefuseNext(1)
	tr := f.tracker(exposure.NewConfig(testPayload(), mode.ViewOnce, mode.View))
	// viewonce is suppressed, so the refused subscription is view's.
	tr.Activate()
	tr.Deactivate()

	warnings := tr.Warnings()
	require.Len(t, warnings, 1)
	assert.True(t, exposure.IsSubscribeError(warnings[0]))
	assert.ErrorIs(t, warnings[0], testutil.ErrSubscribeRefused)

	require.Equal(t, 1, f.sink.Len(), "view teardown still fires with times=0")
	assert.Equal(t, ir.IRValue(ir.IRInt(0)), f.sink.Dispatches()[0].ActionParams["times"])
}

func TestNoSource_ObservingModesDisabled(t *testing.T) {
	f := newFixture(t)
	tr := exposure.New(target, exposure.NewConfig(testPayload(), mode.Normal, mode.ViewOnce),
		exposure.WithRegistry(f.reg),
		exposure.WithClock(f.clock),
		exposure.WithLogger(discardLogger()),
	)

	tr.Activate()
	tr.Deactivate()

	assert.Equal(t, 1, f.sink.Len(), "normal still dispatches")
	warnings := tr.Warnings()
	require.Len(t, warnings, 1)
	assert.True(t, exposure.IsSubscribeError(warnings[0]))
}

func TestObserverOptions(t *testing.T) {
	f := newFixture(t)
	tr := f.tracker(exposure.NewConfig(testPayload(), mode.View))
	tr.Activate()
	assert.Equal(t, []exposure.ObserverOptions{{RootMargin: "0px", Threshold: 1.0}}, f.src.Options(target))

	f2 := newFixture(t)
	cfg := exposure.NewConfig(testPayload(), mode.View)
	cfg.Observer = &exposure.ObserverOptions{RootMargin: "10px", Threshold: 0.5}
	f2.tracker(cfg).Activate()
	assert.Equal(t, []exposure.ObserverOptions{{RootMargin: "10px", Threshold: 0.5}}, f2.src.Options(target))
}

func TestObserverOptions_InvalidFallsBack(t *testing.T) {
	f := newFixture(t)
	cfg := exposure.NewConfig(testPayload(), mode.View)
	cfg.Observer = &exposure.ObserverOptions{RootMargin: "0px", Threshold: 1.5}
	tr := f.tracker(cfg)
	tr.Activate()

	assert.Equal(t, []exposure.ObserverOptions{exposure.DefaultObserverOptions()}, f.src.Options(target))
	require.Len(t, tr.Warnings(), 1)
}

func TestInvalidModeIsDroppedWithWarning(t *testing.T) {
	f := newFixture(t)
	tr := f.tracker(exposure.NewConfig(testPayload(), mode.Mode("bogus")))

	assert.Equal(t, []mode.Mode{mode.Normal}, tr.Plan().Activation)
	require.Len(t, tr.Warnings(), 1)
	assert.Contains(t, tr.Warnings()[0].Error(), "INVALID_MODE")
}

func TestSinkFuncReceivesThreeArguments(t *testing.T) {
	f := newFixture(t)
	reg := exposure.NewRegistry()

	var (
		gotEvt    ir.IRValue
		gotParams ir.IRObject
		gotAction ir.IRObject
	)
	reg.Register(exposure.SinkFunc(func(evt ir.IRValue, evtParams, actionParams ir.IRObject) {
		gotEvt, gotParams, gotAction = evt, evtParams, actionParams
	}))

	tr := f.tracker(exposure.NewConfig(testPayload(), mode.View), exposure.WithRegistry(reg))
	tr.Activate()
	f.src.Enter(target)
	tr.Deactivate()

	assert.Equal(t, ir.IRValue(ir.IRString("1001")), gotEvt)
	assert.Equal(t, testPayload().EvtParams, gotParams)
	assert.Equal(t, ir.IRValue(ir.IRInt(1)), gotAction["times"])
}
