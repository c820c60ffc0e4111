package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/exposure/internal/ir"
)

// nullEvent is the stored form of a dispatch without an event identifier.
const nullEvent = "null"

// Append stamps d with the next seq and writes it to the log.
// The returned record carries the assigned seq and ID.
func (s *Store) Append(ctx context.Context, d ir.Dispatch, sentAt time.Time) (Record, error) {
	seq := s.seq.Next()

	id, err := ir.DispatchID(d, seq)
	if err != nil {
		return Record{}, fmt.Errorf("compute dispatch ID: %w", err)
	}

	rec := Record{
		ID:            id,
		Seq:           seq,
		Dispatch:      d,
		SentAt:        sentAt,
		IRVersion:     ir.IRVersion,
		EngineVersion: ir.EngineVersion,
	}
	if err := s.WriteRecord(ctx, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// WriteRecord inserts a fully formed record.
//
// Idempotent: writing a record whose ID is already present is a no-op
// (ON CONFLICT DO NOTHING). The record's ID must match its content.
func (s *Store) WriteRecord(ctx context.Context, rec Record) error {
	expected, err := ir.DispatchID(rec.Dispatch, rec.Seq)
	if err != nil {
		return fmt.Errorf("compute dispatch ID: %w", err)
	}
	if rec.ID != expected {
		return fmt.Errorf("record ID %q does not match content (expected %q)", rec.ID, expected)
	}

	event := nullEvent
	if rec.Dispatch.Event != nil {
		b, err := ir.MarshalCanonical(rec.Dispatch.Event)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		event = string(b)
	}

	eventParams, err := ir.MarshalCanonical(nonNilObject(rec.Dispatch.EventParams))
	if err != nil {
		return fmt.Errorf("marshal event_params: %w", err)
	}
	actionParams, err := ir.MarshalCanonical(nonNilObject(rec.Dispatch.ActionParams))
	if err != nil {
		return fmt.Errorf("marshal action_params: %w", err)
	}

	irVersion := rec.IRVersion
	if irVersion == "" {
		irVersion = ir.IRVersion
	}
	engineVersion := rec.EngineVersion
	if engineVersion == "" {
		engineVersion = ir.EngineVersion
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO dispatches (
			id, seq, instance_id, target, mode,
			event, event_params, action_params,
			sent_at, engine_version, ir_version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.Seq,
		rec.Dispatch.InstanceID,
		rec.Dispatch.Target,
		rec.Dispatch.Mode,
		event,
		string(eventParams),
		string(actionParams),
		rec.SentAt.UnixMilli(),
		engineVersion,
		irVersion,
	)
	if err != nil {
		return fmt.Errorf("insert dispatch seq=%d: %w", rec.Seq, err)
	}
	return nil
}

func nonNilObject(obj ir.IRObject) ir.IRObject {
	if obj == nil {
		return ir.IRObject{}
	}
	return obj
}
