package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/pxengine/internal/catalog"
	"github.com/roach88/pxengine/internal/px"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	DB string
}

// LoadResult describes an imported catalog.
type LoadResult struct {
	Event     string                 `json:"event"`
	EventID   int64                  `json:"event_id"`
	Keys      *catalog.Keys          `json:"keys"`
	Warnings  []catalog.CycleWarning `json:"warnings,omitempty"`
	Summaries []px.Summary           `json:"summaries"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <catalog>",
		Short: "Import a catalog file as a new event",
		Long: `Import a YAML or CUE catalog file as a new event and compute the PX of
every character it defines.

The catalog is validated first; nothing is written when it is invalid.
Prerequisite cycles are reported as warnings.

Examples:
  pxengine load harrowmere.yaml --db px.db
  pxengine load harrowmere.cue --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "database path (default: PXENGINE_DB)")

	return cmd
}

func runLoad(opts *LoadOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	file, err := catalog.Load(path)
	if err != nil {
		return f.Report(err)
	}
	f.VerboseLog("Loaded %s: %d abilities, %d characters", path, len(file.Abilities), len(file.Characters))

	a, err := openApp(opts.RootOptions, opts.DB, false)
	if err != nil {
		return f.Report(err)
	}
	defer a.Close()

	keys, err := catalog.Import(ctx, a.store, file)
	if err != nil {
		return f.Report(err)
	}
	sums, err := a.calc.RecomputeEvent(ctx, keys.EventID)
	if err != nil {
		return f.Report(err)
	}

	warnings := catalog.AnalyzeCycles(file)
	for _, w := range warnings {
		slog.Warn("prerequisite cycle", "path", w.Path)
	}

	result := LoadResult{
		Event:     file.Event.Slug,
		EventID:   keys.EventID,
		Keys:      keys,
		Warnings:  warnings,
		Summaries: sums,
	}
	return f.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Loaded event %s (id %d)\n", result.Event, result.EventID)
		fmt.Fprintf(w, "  %d abilities, %d modifiers, %d rules, %d characters\n",
			len(keys.Abilities), len(keys.Modifiers), len(keys.Rules), len(keys.Characters))
		writeWarnings(w, warnings)
		for _, s := range sums {
			writeSummary(w, s)
		}
	})
}

// writeSummary prints the aggregates of one recomputed character.
func writeSummary(w io.Writer, s px.Summary) {
	if s.Skipped {
		fmt.Fprintf(w, "  character %d: px disabled\n", s.CharacterID)
		return
	}
	fmt.Fprintf(w, "  character %d: px_tot=%d px_used=%d px_avail=%d\n",
		s.CharacterID, s.Total, s.Used, s.Available)
}
