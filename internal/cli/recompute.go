package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/pxengine/internal/engine"
	"github.com/roach88/pxengine/internal/px"
)

// RecomputeOptions holds flags for the recompute command.
type RecomputeOptions struct {
	*RootOptions
	DB        string
	Event     string // event slug
	Character int64
	Async     bool
	Workers   int
}

// RecomputeResult describes a recompute run. Summaries are only known for
// inline runs; async runs report job counts.
type RecomputeResult struct {
	Event     string       `json:"event,omitempty"`
	Async     bool         `json:"async"`
	Processed int64        `json:"processed"`
	Failed    int64        `json:"failed"`
	Summaries []px.Summary `json:"summaries,omitempty"`
}

// NewRecomputeCommand creates the recompute command.
func NewRecomputeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecomputeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Rebuild PX aggregates and computed fields",
		Long: `Rebuild px_tot, px_used, px_avail, free abilities and computed fields
from stored catalog state, for one character or every character of an
event.

With --async the event's characters are queued and drained by the
background worker pool.

Examples:
  pxengine recompute --event harrowmere
  pxengine recompute --character 12 --db px.db
  pxengine recompute --event harrowmere --async --workers 8`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("async") {
				opts.Async = opts.Config.Async
			}
			if !cmd.Flags().Changed("workers") {
				opts.Workers = opts.Config.Workers
			}
			return runRecompute(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "database path (default: PXENGINE_DB)")
	cmd.Flags().StringVar(&opts.Event, "event", "", "event slug")
	cmd.Flags().Int64Var(&opts.Character, "character", 0, "character id")
	cmd.Flags().BoolVar(&opts.Async, "async", false, "recompute through the background queue (default: PXENGINE_ASYNC)")
	cmd.Flags().IntVar(&opts.Workers, "workers", engine.DefaultWorkers, "background workers (default: PXENGINE_WORKERS)")
	cmd.MarkFlagsMutuallyExclusive("event", "character")
	cmd.MarkFlagsOneRequired("event", "character")

	return cmd
}

func runRecompute(opts *RecomputeOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	a, err := openApp(opts.RootOptions, opts.DB, true,
		engine.WithAsync(opts.Async),
		engine.WithWorkers(opts.Workers),
	)
	if err != nil {
		return f.Report(err)
	}
	defer a.Close()

	result := RecomputeResult{Event: opts.Event, Async: opts.Async}

	switch {
	case opts.Character != 0:
		sum, err := a.calc.Recompute(ctx, opts.Character)
		if err != nil {
			return f.Report(err)
		}
		result.Processed = 1
		result.Summaries = []px.Summary{sum}

	case opts.Async:
		ev, err := a.store.EventBySlug(ctx, opts.Event)
		if err != nil {
			return f.Report(err)
		}
		ids, err := a.store.CharacterIDs(ctx, ev.ID)
		if err != nil {
			return f.Report(err)
		}
		for _, id := range ids {
			a.engine.Enqueue(engine.Job{CharacterID: id, EventID: ev.ID, Reason: "cli"})
		}
		f.VerboseLog("Queued %d recompute(s) for %s with %d worker(s)", len(ids), ev.Slug, opts.Workers)

		// Run returns once the closed queue is drained.
		a.engine.Stop()
		if err := a.engine.Run(ctx); err != nil {
			return f.Report(err)
		}
		result.Processed, result.Failed = a.engine.Stats()

	default:
		ev, err := a.store.EventBySlug(ctx, opts.Event)
		if err != nil {
			return f.Report(err)
		}
		sums, err := a.calc.RecomputeEvent(ctx, ev.ID)
		if err != nil {
			return f.Report(err)
		}
		result.Processed = int64(len(sums))
		result.Summaries = sums
	}

	if result.Failed > 0 {
		message := fmt.Sprintf("%d recompute(s) failed", result.Failed)
		return f.Failure(ErrCodeGeneric, message, result, func(w io.Writer) {
			fmt.Fprintf(w, "✗ %s of %d\n", message, result.Processed+result.Failed)
		})
	}

	return f.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Recomputed %d character(s)\n", result.Processed)
		for _, s := range result.Summaries {
			writeSummary(w, s)
		}
	})
}
