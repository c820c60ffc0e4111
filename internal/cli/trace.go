package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/exposure/internal/config"
	"github.com/roach88/exposure/internal/ir"
	"github.com/roach88/exposure/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Instance string // optional - show one instance's dispatches
}

// TraceEntry is one dispatch row as shown by the trace command.
type TraceEntry struct {
	Seq          int64       `json:"seq"`
	ID           string      `json:"id"`
	InstanceID   string      `json:"instance_id"`
	Target       string      `json:"target"`
	Mode         string      `json:"mode"`
	Event        ir.IRValue  `json:"event,omitempty"`
	EventParams  ir.IRObject `json:"event_params"`
	ActionParams ir.IRObject `json:"action_params"`
	SentAt       string      `json:"sent_at"`
}

// TraceResult holds the trace output. Instances is set when no instance
// filter was given; Dispatches otherwise.
type TraceResult struct {
	Instances  []store.InstanceSummary `json:"instances,omitempty"`
	Dispatches []TraceEntry            `json:"dispatches,omitempty"`
	Total      int                     `json:"total"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the dispatch log",
		Long: `Show what the dispatch log recorded.

Without --instance, lists every tracker instance with its dispatch count,
seq range and modes. With --instance, lists that instance's dispatches
in seq order.

Examples:
  exposure trace --db ./dispatch.db
  exposure trace --db ./dispatch.db --instance test-instance-default
  exposure trace --db ./dispatch.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Instance, "instance", "", "tracker instance ID to show")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	// Open would create a fresh empty log; a missing file is a usage error.
	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Instance == "" {
		return traceInstances(ctx, formatter, st)
	}
	return traceInstance(ctx, formatter, st, opts.Instance)
}

func traceInstances(ctx context.Context, formatter *OutputFormatter, st *store.Store) error {
	summaries, err := st.ReadInstances(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read dispatch log", err)
	}

	if formatter.IsJSON() {
		return formatter.Success(TraceResult{Instances: summaries, Total: len(summaries)})
	}

	w := formatter.Writer
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No dispatches recorded.")
		return nil
	}
	fmt.Fprintf(w, "Instances: %d\n\n", len(summaries))
	for _, s := range summaries {
		fmt.Fprintf(w, "%s  target=%s  dispatches=%d  seq=%d..%d  modes=%s\n",
			s.InstanceID, s.Target, s.Dispatches, s.FirstSeq, s.LastSeq, strings.Join(s.Modes, ","))
	}
	return nil
}

func traceInstance(ctx context.Context, formatter *OutputFormatter, st *store.Store, instanceID string) error {
	recs, err := st.ReadInstance(ctx, instanceID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read dispatch log", err)
	}
	if len(recs) == 0 {
		if err := formatter.Error(config.ErrCodeNotFound, fmt.Sprintf("no dispatches for instance %s", instanceID), nil); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("no dispatches for instance %s", instanceID))
	}

	entries := make([]TraceEntry, 0, len(recs))
	for _, rec := range recs {
		entries = append(entries, TraceEntry{
			Seq:          rec.Seq,
			ID:           rec.ID,
			InstanceID:   rec.Dispatch.InstanceID,
			Target:       rec.Dispatch.Target,
			Mode:         rec.Dispatch.Mode,
			Event:        rec.Dispatch.Event,
			EventParams:  rec.Dispatch.EventParams,
			ActionParams: rec.Dispatch.ActionParams,
			SentAt:       rec.SentAt.Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}

	if formatter.IsJSON() {
		return formatter.Success(TraceResult{Dispatches: entries, Total: len(entries)})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Instance: %s (target %s)\n\n", instanceID, entries[0].Target)
	for _, e := range entries {
		fmt.Fprintf(w, "[%d] %-13s event=%s event_params=%s action_params=%s\n",
			e.Seq, e.Mode, canonicalOrNone(e.Event), canonicalOrNone(e.EventParams), canonicalOrNone(e.ActionParams))
		formatter.VerboseLog("  id=%s sent_at=%s", e.ID, e.SentAt)
	}
	fmt.Fprintf(w, "\nTotal: %d dispatch(es)\n", len(entries))
	return nil
}

// canonicalOrNone renders v as canonical JSON for text output.
func canonicalOrNone(v ir.IRValue) string {
	if v == nil {
		return "-"
	}
	if obj, ok := v.(ir.IRObject); ok && obj == nil {
		return "{}"
	}
	b, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
