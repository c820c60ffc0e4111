package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/exposure/internal/harness"
	"github.com/roach88/exposure/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
}

// RunResult is the outcome of one scenario run against a dispatch log.
type RunResult struct {
	Scenario   string               `json:"scenario"`
	Database   string               `json:"database"`
	InstanceID string               `json:"instance_id"`
	Pass       bool                 `json:"pass"`
	Trace      []harness.TraceEvent `json:"trace"`
	Warnings   []string             `json:"warnings,omitempty"`
	Errors     []string             `json:"errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run one scenario against a dispatch log file",
		Long: `Run a single scenario and append its dispatches to a SQLite
dispatch log, creating the database if it does not exist.

Dispatches accumulate across runs; inspect them with "exposure trace".

Example:
  exposure run ./scenarios/view_counts_entries.yaml --db ./dispatch.db
  exposure run ./scenarios/teardown_order.yaml --db /tmp/log.db --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	formatter := newFormatter(opts.RootOptions, cmd)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	logger.Debug("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := harness.RunWithStore(ctx, scenario, st, harness.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "scenario execution failed", err)
	}
	logger.Debug("scenario finished", "scenario", scenario.Name, "dispatches", len(result.Trace), "pass", result.Pass)

	out := RunResult{
		Scenario:   scenario.Name,
		Database:   opts.Database,
		InstanceID: result.InstanceID,
		Pass:       result.Pass,
		Trace:      result.Trace,
		Warnings:   result.Warnings,
		Errors:     result.Errors,
	}

	if formatter.IsJSON() {
		if err := formatter.Success(out); err != nil {
			return err
		}
	} else {
		printRunText(formatter, out)
	}

	if !out.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

func printRunText(formatter *OutputFormatter, out RunResult) {
	w := formatter.Writer
	fmt.Fprintf(w, "Scenario: %s\n", out.Scenario)
	fmt.Fprintf(w, "Instance: %s\n", out.InstanceID)
	fmt.Fprintf(w, "Dispatches: %d\n", len(out.Trace))
	for _, e := range out.Trace {
		fmt.Fprintf(w, "  [%d] %s event=%s event_params=%s action_params=%s\n",
			e.Seq, e.Mode, canonicalOrNone(e.Event), canonicalOrNone(e.EventParams), canonicalOrNone(e.ActionParams))
	}
	for _, code := range out.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", code)
	}

	fmt.Fprintln(w)
	if out.Pass {
		fmt.Fprintln(w, "✓ Scenario passed")
		return
	}
	fmt.Fprintln(w, "✗ Scenario failed")
	for _, e := range out.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}
