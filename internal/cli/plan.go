package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/exposure/internal/config"
	"github.com/roach88/exposure/internal/mode"
)

// PlanEntry is the resolved plan of one configured element.
type PlanEntry struct {
	Element         string    `json:"element"`
	Target          string    `json:"target"`
	Modes           []string  `json:"modes"`
	DispatchEnabled bool      `json:"dispatch_enabled"`
	Plan            mode.Plan `json:"plan"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <config-dir>",
		Short: "Show the resolved mode plan of each element",
		Long: `Resolve the configured modes of every element and print the
activation order, the teardown order and which suppression rules fired.

Unknown mode names are dropped the same way a tracker drops them, so the
plan shown is the plan a tracker would run.

Example:
  exposure plan ./elements
  exposure plan ./elements --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runPlan(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	res, errs := config.LoadDir(dir, config.LoadModeCollectAll)
	if res == nil {
		return outputLoadFailure(formatter, errs)
	}
	for _, err := range errs {
		formatter.VerboseLog("warning: %v", err)
	}

	entries := make([]PlanEntry, 0, len(res.Elements))
	for _, e := range res.Elements {
		entries = append(entries, PlanEntry{
			Element:         e.Name,
			Target:          string(e.Target),
			Modes:           e.ModeNames,
			DispatchEnabled: e.Config.DispatchEnabled,
			Plan:            e.Plan,
		})
	}

	if formatter.IsJSON() {
		return formatter.Success(entries)
	}

	w := formatter.Writer
	for i, entry := range entries {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (target %s)\n", entry.Element, entry.Target)
		fmt.Fprintf(w, "  modes:      %s\n", joinOrDash(entry.Modes))
		fmt.Fprintf(w, "  activation: %s\n", joinOrDash(mode.Names(entry.Plan.Activation)))
		fmt.Fprintf(w, "  teardown:   %s\n", joinOrDash(mode.Names(entry.Plan.Teardown)))
		fmt.Fprintf(w, "  suppressed: %s\n", formatSuppressions(entry.Plan.Suppressed))
		if entry.Plan.Defaulted {
			fmt.Fprintln(w, "  (no valid mode configured, default applied)")
		}
		if !entry.DispatchEnabled {
			fmt.Fprintln(w, "  (dispatch disabled)")
		}
	}
	return nil
}

func formatSuppressions(sups []mode.Suppression) string {
	parts := make([]string, 0, len(sups))
	for _, s := range sups {
		parts = append(parts, fmt.Sprintf("%s by %s", s.Removed, s.By))
	}
	return joinOrDash(parts)
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
