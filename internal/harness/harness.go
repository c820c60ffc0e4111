package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/exposure/internal/config"
	"github.com/roach88/exposure/internal/exposure"
	"github.com/roach88/exposure/internal/ir"
	"github.com/roach88/exposure/internal/mode"
	"github.com/roach88/exposure/internal/store"
	"github.com/roach88/exposure/internal/testutil"
)

// Harness holds the deterministic collaborators of one scenario run.
type Harness struct {
	store   *store.Store
	clock   *testutil.ManualClock
	source  *testutil.ManualSource
	tracker *exposure.Tracker
	target  exposure.Target
	logger  *slog.Logger
}

// Option configures a run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
}

// WithLogger routes tracker and sink logs to l. Runs are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = l
	}
}

// Run executes a scenario against a fresh in-memory dispatch log.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	return RunWithStore(context.Background(), scenario, st, opts...)
}

// RunWithStore executes a scenario, appending its dispatches to st.
// Only rows written by this run appear in the result trace.
//
// Execution flow:
//  1. Build the element configuration (inline or from CUE)
//  2. Register the dispatch log as sink, unless the scenario says otherwise
//  3. Run every step at its clock offset
//  4. Read the trace back from the log and evaluate assertions
func RunWithStore(ctx context.Context, scenario *Scenario, st *store.Store, opts ...Option) (*Result, error) {
	rc := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&rc)
	}

	target, cfg, err := elementConfig(scenario)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		store:  st,
		clock:  testutil.NewManualClock(testutil.Epoch),
		source: testutil.NewManualSource(),
		target: target,
		logger: rc.logger,
	}
	h.source.RefuseNext(scenario.RefuseSubscriptions)

	registry := exposure.NewRegistry()
	if scenario.Registered == nil || *scenario.Registered {
		registry.Register(store.NewSink(st,
			store.WithSinkClock(h.clock),
			store.WithSinkContext(ctx),
			store.WithSinkLogger(h.logger),
		))
	}

	trackerOpts := []exposure.Option{
		exposure.WithRegistry(registry),
		exposure.WithClock(h.clock),
		exposure.WithLogger(h.logger),
		exposure.WithIDGenerator(testutil.NewFixedIDGenerator(scenario.InstanceID)),
	}
	if !scenario.NoSource {
		trackerOpts = append(trackerOpts, exposure.WithSource(h.source))
	}

	startSeq := st.Seq()
	h.tracker = exposure.New(target, cfg, trackerOpts...)

	for i, step := range scenario.Steps {
		h.clock.Set(testutil.Epoch.Add(time.Duration(step.At) * time.Millisecond))
		if err := h.executeStep(step); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		h.logger.Debug("step executed", "step", i, "action", step.Action, "at_ms", step.At)
	}

	result := NewResult()
	result.InstanceID = h.tracker.ID()

	if result.Trace, err = h.readTrace(ctx, startSeq); err != nil {
		return nil, err
	}
	result.State = h.state()
	for _, w := range h.tracker.Warnings() {
		var ce *exposure.ConfigError
		if errors.As(w, &ce) {
			result.Warnings = append(result.Warnings, string(ce.Code))
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) executeStep(step Step) error {
	switch step.Action {
	case ActionActivate:
		h.tracker.Activate()
	case ActionDeactivate:
		h.tracker.Deactivate()
	case ActionEnter:
		h.source.Enter(h.target)
	case ActionExit:
		h.source.Exit(h.target)
	case ActionLateEnter:
		h.source.DeliverLate(h.target, exposure.Entry{IsIntersecting: true})
	case ActionLateExit:
		h.source.DeliverLate(h.target, exposure.Entry{IsIntersecting: false})
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
	return nil
}

// readTrace returns this run's rows: those past startSeq for our instance.
func (h *Harness) readTrace(ctx context.Context, startSeq int64) ([]TraceEvent, error) {
	recs, err := h.store.ReadInstance(ctx, h.tracker.ID())
	if err != nil {
		return nil, fmt.Errorf("failed to read dispatch log: %w", err)
	}

	trace := []TraceEvent{}
	for _, rec := range recs {
		if rec.Seq <= startSeq {
			continue
		}
		trace = append(trace, TraceEvent{
			Seq:          rec.Seq,
			Mode:         rec.Dispatch.Mode,
			Event:        rec.Dispatch.Event,
			EventParams:  rec.Dispatch.EventParams,
			ActionParams: rec.Dispatch.ActionParams,
		})
	}
	return trace, nil
}

// state flattens the tracker state for final_state assertions and goldens.
func (h *Harness) state() ir.IRObject {
	snap := h.tracker.Snapshot()
	return ir.IRObject{
		"phase":                     ir.IRString(h.tracker.Phase().String()),
		"had_sent_once":             ir.IRBool(snap.HadSentOnce),
		"in_view":                   ir.IRBool(snap.InView),
		"in_view_count":             ir.IRInt(snap.InViewCount),
		"entered":                   ir.IRBool(!snap.FirstEntryAt.IsZero()),
		"send_duration_on_teardown": ir.IRBool(snap.SendDurationOnTeardown),
		"active_subscriptions":      ir.IRInt(h.source.Active(h.target)),
	}
}

// elementConfig builds the tracker target and config for a scenario.
func elementConfig(s *Scenario) (exposure.Target, exposure.Config, error) {
	if s.Config != "" {
		res, errs := config.LoadDir(s.Config, config.LoadModeCollectAll)
		if len(errs) > 0 {
			return "", exposure.Config{}, fmt.Errorf("failed to load element config: %w", errs[0])
		}
		elem, ok := res.Lookup(s.Element)
		if !ok {
			return "", exposure.Config{}, fmt.Errorf("element %q not found in %s", s.Element, s.Config)
		}
		return elem.Target, elem.Config, nil
	}

	target := s.Target
	if target == "" {
		target = s.Name
	}

	payload, err := ir.PayloadFromAny(s.Payload)
	if err != nil {
		return "", exposure.Config{}, fmt.Errorf("invalid payload: %w", err)
	}

	// Unknown names are passed through so the tracker reports them.
	modes := make([]mode.Mode, 0, len(s.Modes))
	for _, name := range s.Modes {
		m, err := mode.Parse(name)
		if err != nil {
			m = mode.Mode(name)
		}
		modes = append(modes, m)
	}

	cfg := exposure.NewConfig(payload, modes...)
	if s.CanDigSend != nil {
		cfg.DispatchEnabled = *s.CanDigSend
	}
	cfg.Observer = s.Observer
	return exposure.Target(target), cfg, nil
}
