package exposure

import (
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/exposure/internal/ir"
	"github.com/roach88/exposure/internal/mode"
)

// Phase is the tracker lifecycle position.
type Phase int

const (
	// PhaseIdle: created, not yet activated.
	PhaseIdle Phase = iota
	// PhaseActive: activated with a registered sink.
	PhaseActive
	// PhaseInert: activated without a sink. Nothing will ever be dispatched.
	PhaseInert
	// PhaseClosed: deactivated. Terminal.
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseActive:
		return "active"
	case PhaseInert:
		return "inert"
	case PhaseClosed:
		return "closed"
	}
	return "unknown"
}

// Config is the host's activation configuration.
type Config struct {
	// Modes is the requested mode set. Empty means {normal}.
	Modes []mode.Mode

	// Payload is dispatched (or used to build duration dispatches).
	Payload ir.Payload

	// DispatchEnabled gates every sink call. State still updates when false.
	DispatchEnabled bool

	// Observer overrides the intersection options. Nil means DefaultObserverOptions.
	Observer *ObserverOptions
}

// NewConfig returns a Config with dispatch enabled and default observer options.
func NewConfig(payload ir.Payload, modes ...mode.Mode) Config {
	return Config{
		Modes:           modes,
		Payload:         payload,
		DispatchEnabled: true,
	}
}

// InstanceState is the mutable per-instance state read at teardown.
type InstanceState struct {
	HadSentOnce            bool      `json:"had_sent_once"`
	InView                 bool      `json:"in_view"`
	InViewCount            uint      `json:"in_view_count"`
	ActivatedAt            time.Time `json:"activated_at"`
	FirstEntryAt           time.Time `json:"first_entry_at,omitzero"`
	SendDurationOnTeardown bool      `json:"send_duration_on_teardown"`
}

// Tracker instruments one element.
//
// Thread-safety model:
//   - Activate and Deactivate: called by the host, never concurrently with each other
//   - source callbacks: may arrive on any goroutine, serialized by mu
//   - sink calls: made after mu is released
type Tracker struct {
	mu sync.Mutex

	id       string
	target   Target
	cfg      Config
	observer ObserverOptions
	plan     mode.Plan

	registry *Registry
	source   Source
	clock    Clock
	logger   *slog.Logger

	phase    Phase
	state    InstanceState
	sink     Sink
	subs     []*subscription
	warnings []error
}

// subscription ties one observing mode to its source handle.
type subscription struct {
	mode   mode.Mode
	handle Subscription
	closed bool
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithRegistry sets the sink registry. Default: DefaultRegistry().
func WithRegistry(r *Registry) Option {
	return func(t *Tracker) {
		t.registry = r
	}
}

// WithSource sets the intersection source. Without one, observing modes are disabled.
func WithSource(s Source) Option {
	return func(t *Tracker) {
		t.source = s
	}
}

// WithClock sets the clock. Default: SystemClock.
func WithClock(c Clock) Option {
	return func(t *Tracker) {
		t.clock = c
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = l
	}
}

// WithIDGenerator sets the instance ID generator. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(t *Tracker) {
		t.id = g.Generate()
	}
}

// New creates an idle tracker for target. The mode set is resolved here,
// once; invalid modes and options are replaced by defaults with a warning.
func New(target Target, cfg Config, opts ...Option) *Tracker {
	t := &Tracker{
		target:   target,
		cfg:      cfg,
		registry: defaultRegistry,
		clock:    SystemClock{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.id == "" {
		t.id = UUIDv7Generator{}.Generate()
	}
	t.logger = t.logger.With("instance", t.id, "target", string(target))

	for _, m := range cfg.Modes {
		if !m.Valid() {
			t.warn(&ConfigError{
				Code:       ErrCodeInvalidMode,
				Message:    "unknown mode dropped",
				InstanceID: t.id,
				Mode:       string(m),
			})
		}
	}
	t.plan = mode.Resolve(cfg.Modes)

	t.observer = DefaultObserverOptions()
	if cfg.Observer != nil {
		if err := cfg.Observer.Validate(); err != nil {
			t.warn(&ConfigError{
				Code:       ErrCodeInvalidOptions,
				Message:    "observer options replaced by defaults",
				InstanceID: t.id,
				Err:        err,
			})
		} else {
			t.observer = *cfg.Observer
		}
	}

	t.logger.Debug("tracker created",
		"activation", mode.Names(t.plan.Activation),
		"teardown", mode.Names(t.plan.Teardown),
		"suppressed", len(t.plan.Suppressed),
	)
	return t
}

// ID returns the instance ID.
func (t *Tracker) ID() string {
	return t.id
}

// Plan returns the resolved mode plan.
func (t *Tracker) Plan() mode.Plan {
	return t.plan
}

// Phase returns the lifecycle phase.
func (t *Tracker) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// Snapshot returns a copy of the instance state.
func (t *Tracker) Snapshot() InstanceState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Warnings returns the configuration errors recorded for this tracker.
func (t *Tracker) Warnings() []error {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]error, len(t.warnings))
	copy(out, t.warnings)
	return out
}

// Activate starts tracking. It records the activation time, sends the normal
// dispatch if requested and subscribes every observing mode.
//
// Without a registered sink the tracker becomes inert: a warning is logged
// (once per registry) and no subscription is made. Calling Activate on a
// tracker that is not idle does nothing.
func (t *Tracker) Activate() {
	t.mu.Lock()
	if t.phase != PhaseIdle {
		phase := t.phase
		t.mu.Unlock()
		t.logger.Debug("activate ignored", "phase", phase.String())
		return
	}

	t.state.ActivatedAt = t.clock.Now()

	sink, ok := t.registry.Sink()
	if !ok {
		t.phase = PhaseInert
		err := &ConfigError{
			Code:       ErrCodeSinkUnregistered,
			Message:    "no dispatch sink registered",
			InstanceID: t.id,
		}
		t.warnings = append(t.warnings, err)
		t.mu.Unlock()
		t.registry.warnUnregistered(t.logger, err)
		return
	}
	t.sink = sink
	t.phase = PhaseActive

	var (
		out     []ir.Dispatch
		observe []*subscription
	)
	for _, m := range t.plan.Activation {
		switch {
		case m == mode.Normal:
			out = append(out, t.payloadDispatch(m, t.cfg.Payload.ActionParams))
		case m == mode.Time:
			t.state.SendDurationOnTeardown = true
		case m.Observes():
			sub := &subscription{mode: m}
			t.subs = append(t.subs, sub)
			observe = append(observe, sub)
		}
	}
	t.mu.Unlock()

	t.logger.Debug("tracker activated", "subscriptions", len(observe))

	t.emit(out)
	for _, sub := range observe {
		t.subscribe(sub)
	}
}

// subscribe registers sub with the source. Called without mu held so a
// source that delivers synchronously cannot deadlock.
func (t *Tracker) subscribe(sub *subscription) {
	if t.source == nil {
		t.warn(&ConfigError{
			Code:       ErrCodeSourceMissing,
			Message:    "observing mode requested without an intersection source",
			InstanceID: t.id,
			Mode:       string(sub.mode),
		})
		return
	}

	handle, err := t.source.Subscribe(t.target, t.observer, func(entries []Entry) {
		t.deliver(sub, entries)
	})
	if err != nil {
		t.warn(&ConfigError{
			Code:       ErrCodeSubscribeFailed,
			Message:    "intersection source refused subscription",
			InstanceID: t.id,
			Mode:       string(sub.mode),
			Err:        err,
		})
		return
	}

	t.mu.Lock()
	if sub.closed {
		// Deactivated while subscribing.
		t.mu.Unlock()
		t.source.Unsubscribe(handle)
		return
	}
	sub.handle = handle
	t.mu.Unlock()
}

// deliver is the source callback for one subscription.
func (t *Tracker) deliver(sub *subscription, entries []Entry) {
	t.mu.Lock()
	if sub.closed || t.phase != PhaseActive {
		t.mu.Unlock()
		t.logger.Debug("late intersection callback ignored", "mode", string(sub.mode))
		return
	}

	now := t.clock.Now()
	var out []ir.Dispatch
	for _, e := range entries {
		if d, ok := t.observe(sub.mode, e, now); ok {
			out = append(out, d)
		}
	}
	t.mu.Unlock()

	t.emit(out)
}

// Deactivate stops tracking: it computes teardown dispatches, releases every
// subscription and then sends. Safe to call when never activated and safe to
// call twice; neither dispatches anything.
func (t *Tracker) Deactivate() {
	t.mu.Lock()
	switch t.phase {
	case PhaseIdle, PhaseClosed:
		t.mu.Unlock()
		return
	case PhaseInert:
		t.phase = PhaseClosed
		t.mu.Unlock()
		return
	}

	t.phase = PhaseClosed
	now := t.clock.Now()

	var out []ir.Dispatch
	for _, m := range t.plan.Teardown {
		if d, ok := t.teardown(m, now); ok {
			out = append(out, d)
		}
	}

	var release []Subscription
	for _, sub := range t.subs {
		sub.closed = true
		if sub.handle != nil {
			release = append(release, sub.handle)
			sub.handle = nil
		}
	}
	t.subs = nil
	t.mu.Unlock()

	for _, h := range release {
		t.source.Unsubscribe(h)
	}
	t.logger.Debug("tracker deactivated", "released", len(release), "dispatches", len(out))

	t.emit(out)
}

// emit sends dispatches to the sink unless dispatch is disabled.
// Must be called without mu held.
func (t *Tracker) emit(ds []ir.Dispatch) {
	if len(ds) == 0 {
		return
	}
	if !t.cfg.DispatchEnabled {
		t.logger.Debug("dispatch disabled, dropping", "count", len(ds))
		return
	}
	for _, d := range ds {
		t.logger.Debug("dispatch", "mode", d.Mode)
		t.sink.Send(d)
	}
}

// warn records a config error and logs it.
func (t *Tracker) warn(err *ConfigError) {
	t.mu.Lock()
	t.warnings = append(t.warnings, err)
	t.mu.Unlock()
	t.logger.Warn("exposure configuration problem", "code", string(err.Code), "error", err)
}
