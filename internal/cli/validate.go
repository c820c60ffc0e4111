package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/exposure/internal/config"
)

// ValidationIssue is one problem found in an element configuration.
type ValidationIssue struct {
	Code    string `json:"code"`
	Element string `json:"element,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Files    int               `json:"files"`
	Elements []string          `json:"elements"`
	Errors   []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config-dir>",
		Short: "Validate element configurations",
		Long: `Load the CUE element configurations in a directory, apply the
schema defaults and report every problem found.

Exit codes:
  0 - All elements valid
  1 - One or more elements invalid
  2 - Command error (directory missing, no CUE files, syntax errors)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	res, errs := config.LoadDir(dir, config.LoadModeCollectAll)
	if res == nil {
		return outputLoadFailure(formatter, errs)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", res.FileCount, dir)

	result := ValidationResult{
		Valid:    len(errs) == 0,
		Files:    res.FileCount,
		Elements: make([]string, 0, len(res.Elements)),
	}
	for _, e := range res.Elements {
		result.Elements = append(result.Elements, e.Name)
		formatter.VerboseLog("Validated element: %s", e.Name)
	}
	for _, err := range errs {
		result.Errors = append(result.Errors, toIssue(err))
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}

	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	return formatter.Success(fmt.Sprintf("✓ All elements valid (%d element(s) in %d file(s))",
		len(result.Elements), result.Files))
}

// outputLoadFailure reports an error that prevented loading anything.
func outputLoadFailure(formatter *OutputFormatter, errs []error) error {
	if len(errs) == 0 {
		return NewExitError(ExitCommandError, "config load failed")
	}
	issue := toIssue(errs[0])
	if err := formatter.Error(issue.Code, issue.Message, nil); err != nil {
		return err
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", issue.Code, issue.Message))
}

func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	first := result.Errors[0]
	summary := fmt.Sprintf("%d validation error(s)", len(result.Errors))

	if formatter.IsJSON() {
		if err := formatter.Error(first.Code, summary, result.Errors); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", first.Code, summary))
	}

	w := formatter.Writer
	for _, issue := range result.Errors {
		fmt.Fprintf(w, "✗ %s\n", formatIssue(issue))
	}
	fmt.Fprintf(w, "\n%s\n", summary)
	return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", first.Code, summary))
}

func toIssue(err error) ValidationIssue {
	var le *config.LoadError
	if !errors.As(err, &le) {
		return ValidationIssue{Code: config.ErrCodeGeneric, Message: err.Error()}
	}
	issue := ValidationIssue{
		Code:    le.Code,
		Element: le.Element,
		Field:   le.Field,
		Message: le.Message,
	}
	if le.Pos.IsValid() {
		issue.File = le.Pos.Filename()
		issue.Line = le.Pos.Line()
	}
	return issue
}

func formatIssue(issue ValidationIssue) string {
	var b strings.Builder
	if issue.File != "" {
		fmt.Fprintf(&b, "%s:%d: ", issue.File, issue.Line)
	}
	b.WriteString("[" + issue.Code + "] ")
	if issue.Element != "" {
		b.WriteString(issue.Element)
		if issue.Field != "" {
			b.WriteString("." + issue.Field)
		}
		b.WriteString(": ")
	}
	b.WriteString(issue.Message)
	return b.String()
}
