package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/roach88/exposure/internal/ir"
)

const selectRecord = `
	SELECT id, seq, instance_id, target, mode,
	       event, event_params, action_params,
	       sent_at, engine_version, ir_version
	FROM dispatches`

// ReadDispatches returns the whole log.
// Returns an empty slice (not nil) when the log is empty.
// Ordered by seq ASC, id ASC COLLATE BINARY.
func (s *Store) ReadDispatches(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, selectRecord+`
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query dispatches: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ReadInstance returns the log rows of one tracker instance.
// Returns an empty slice (not nil) if the instance has no rows.
func (s *Store) ReadInstance(ctx context.Context, instanceID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, selectRecord+`
		WHERE instance_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, instanceID)
	if err != nil {
		return nil, fmt.Errorf("query dispatches for instance %s: %w", instanceID, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ReadInstances summarizes every instance present in the log, ordered by the
// seq of its first dispatch.
func (s *Store) ReadInstances(ctx context.Context) ([]InstanceSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT instance_id, target, mode, seq
		FROM dispatches
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query instances: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*InstanceSummary)
	for rows.Next() {
		var instanceID, target, mode string
		var seq int64
		if err := rows.Scan(&instanceID, &target, &mode, &seq); err != nil {
			return nil, fmt.Errorf("scan instance row: %w", err)
		}

		sum, ok := byID[instanceID]
		if !ok {
			sum = &InstanceSummary{InstanceID: instanceID, Target: target, FirstSeq: seq}
			byID[instanceID] = sum
		}
		sum.Dispatches++
		sum.LastSeq = seq
		sum.Modes = append(sum.Modes, mode)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate instance rows: %w", err)
	}

	out := make([]InstanceSummary, 0, len(byID))
	for _, sum := range byID {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FirstSeq < out[j].FirstSeq })
	return out, nil
}

// Count returns the number of rows in the log.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM dispatches").Scan(&n); err != nil {
		return 0, fmt.Errorf("count dispatches: %w", err)
	}
	return n, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	out := make([]Record, 0)
	for rows.Next() {
		var (
			rec                              Record
			event, eventParams, actionParams string
			sentAt                           int64
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.Seq,
			&rec.Dispatch.InstanceID,
			&rec.Dispatch.Target,
			&rec.Dispatch.Mode,
			&event,
			&eventParams,
			&actionParams,
			&sentAt,
			&rec.EngineVersion,
			&rec.IRVersion,
		); err != nil {
			return nil, fmt.Errorf("scan dispatch row: %w", err)
		}

		if event != nullEvent {
			v, err := ir.UnmarshalIRValue([]byte(event))
			if err != nil {
				return nil, fmt.Errorf("decode event seq=%d: %w", rec.Seq, err)
			}
			rec.Dispatch.Event = v
		}
		if err := json.Unmarshal([]byte(eventParams), &rec.Dispatch.EventParams); err != nil {
			return nil, fmt.Errorf("decode event_params seq=%d: %w", rec.Seq, err)
		}
		if err := json.Unmarshal([]byte(actionParams), &rec.Dispatch.ActionParams); err != nil {
			return nil, fmt.Errorf("decode action_params seq=%d: %w", rec.Seq, err)
		}
		rec.SentAt = time.UnixMilli(sentAt).UTC()

		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispatch rows: %w", err)
	}
	return out, nil
}
