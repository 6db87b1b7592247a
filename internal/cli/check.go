package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/pxengine/internal/catalog"
)

// CheckResult holds catalog validation results.
type CheckResult struct {
	Valid    bool                      `json:"valid"`
	Errors   []catalog.ValidationError `json:"errors,omitempty"`
	Warnings []catalog.CycleWarning    `json:"warnings,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <catalog>",
		Short: "Validate a catalog file without importing it",
		Long: `Validate a YAML or CUE catalog file without touching a database.

Reports every validation error (duplicate keys, dangling references,
unknown operations, negative costs, ...) and warns about prerequisite
cycles. Abilities on a cycle can never become available.

Exit codes:
  0 - Catalog valid (warnings allowed)
  1 - Catalog invalid or unparseable
  2 - Command error (file not found, etc.)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runCheck(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	file, err := catalog.Load(path)
	if err != nil {
		return f.Report(err)
	}

	result := CheckResult{
		Errors:   catalog.Validate(file),
		Warnings: catalog.AnalyzeCycles(file),
	}
	result.Valid = len(result.Errors) == 0
	f.VerboseLog("Checked %s: %d error(s), %d warning(s)", path, len(result.Errors), len(result.Warnings))

	if !result.Valid {
		message := fmt.Sprintf("validation failed with %d error(s)", len(result.Errors))
		return f.Failure(result.Errors[0].Code, message, result, func(w io.Writer) {
			fmt.Fprintln(w, "✗ Validation failed")
			fmt.Fprintln(w)
			for _, e := range result.Errors {
				fmt.Fprintf(w, "  %s: %s: %s\n", e.Code, e.Field, e.Message)
			}
			writeWarnings(w, result.Warnings)
		})
	}

	return f.Success(result, func(w io.Writer) {
		fmt.Fprintln(w, "✓ Catalog valid")
		writeWarnings(w, result.Warnings)
	})
}

func writeWarnings(w io.Writer, warnings []catalog.CycleWarning) {
	for _, warn := range warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn.Message)
	}
}
