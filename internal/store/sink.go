package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/exposure/internal/ir"
)

// Clock supplies sent_at wall time for the sink.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// Sink adapts the log to the tracker's dispatch sink contract so the log can
// be registered directly. Send has no error return: write failures are logged
// and the dispatch is dropped.
type Sink struct {
	store  *Store
	ctx    context.Context
	clock  Clock
	logger *slog.Logger
	next   func(ir.Dispatch)
}

// SinkOption configures a Sink.
type SinkOption func(*Sink)

// WithSinkClock sets the clock used for sent_at.
func WithSinkClock(c Clock) SinkOption {
	return func(k *Sink) { k.clock = c }
}

// WithSinkLogger sets the logger used for write failures.
func WithSinkLogger(l *slog.Logger) SinkOption {
	return func(k *Sink) { k.logger = l }
}

// WithSinkContext sets the context used for writes.
func WithSinkContext(ctx context.Context) SinkOption {
	return func(k *Sink) { k.ctx = ctx }
}

// WithForward chains another consumer after each successful write.
func WithForward(fn func(ir.Dispatch)) SinkOption {
	return func(k *Sink) { k.next = fn }
}

// NewSink returns a sink writing to s.
func NewSink(s *Store, opts ...SinkOption) *Sink {
	k := &Sink{
		store:  s,
		ctx:    context.Background(),
		clock:  wallClock{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Send appends d to the log.
func (k *Sink) Send(d ir.Dispatch) {
	rec, err := k.store.Append(k.ctx, d, k.clock.Now())
	if err != nil {
		k.logger.Error("dispatch log write failed",
			"instance_id", d.InstanceID,
			"mode", d.Mode,
			"error", err)
		return
	}

	k.logger.Debug("dispatch logged",
		"instance_id", d.InstanceID,
		"mode", d.Mode,
		"seq", rec.Seq,
		"id", rec.ID)

	if k.next != nil {
		k.next(d)
	}
}
