package store

import (
	"time"

	"github.com/roach88/exposure/internal/ir"
)

// Record is one row of the dispatch log.
type Record struct {
	// ID is the content-addressed identity: ir.DispatchID(Dispatch, Seq).
	ID string `json:"id"`

	// Seq is the logical clock value. Total order over the log.
	Seq int64 `json:"seq"`

	Dispatch ir.Dispatch `json:"dispatch"`

	// SentAt is wall time at append. Informational only.
	SentAt time.Time `json:"sent_at"`

	IRVersion     string `json:"ir_version"`
	EngineVersion string `json:"engine_version"`
}

// InstanceSummary aggregates the log rows of one tracker instance.
type InstanceSummary struct {
	InstanceID string   `json:"instance_id"`
	Target     string   `json:"target"`
	Dispatches int      `json:"dispatches"`
	FirstSeq   int64    `json:"first_seq"`
	LastSeq    int64    `json:"last_seq"`
	Modes      []string `json:"modes"`
}
