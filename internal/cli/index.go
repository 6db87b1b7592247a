package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// IndexOptions holds flags for the index command.
type IndexOptions struct {
	*RootOptions
	DB    string
	Event string
}

// NewIndexCommand creates the index command.
func NewIndexCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IndexOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "index",
		Short: "List the relationships of an event by name",
		Long: `List, per ability, delivery, modifier and rule of an event, the names of
the entities it is related to.

Examples:
  pxengine index --event harrowmere
  pxengine index --event harrowmere --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "database path (default: PXENGINE_DB)")
	cmd.Flags().StringVar(&opts.Event, "event", "", "event slug")
	_ = cmd.MarkFlagRequired("event")

	return cmd
}

func runIndex(opts *IndexOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	a, err := openApp(opts.RootOptions, opts.DB, true)
	if err != nil {
		return f.Report(err)
	}
	defer a.Close()

	ev, err := a.store.EventBySlug(ctx, opts.Event)
	if err != nil {
		return f.Report(err)
	}
	listing, err := a.index.Get(ctx, ev.ID)
	if err != nil {
		return f.Report(err)
	}

	return f.Success(listing, func(w io.Writer) {
		fmt.Fprintf(w, "%s (event %d)\n", ev.Name, ev.ID)

		fmt.Fprintln(w, "abilities:")
		for _, e := range listing.Abilities {
			fmt.Fprintf(w, "  %s\n", e.Name)
			writeNames(w, "prerequisites", e.Prerequisites)
			writeNames(w, "requirements", e.Requirements)
			writeNames(w, "characters", e.Characters)
		}
		fmt.Fprintln(w, "deliveries:")
		for _, e := range listing.Deliveries {
			fmt.Fprintf(w, "  %s\n", e.Name)
			writeNames(w, "characters", e.Characters)
		}
		fmt.Fprintln(w, "modifiers:")
		for _, e := range listing.Modifiers {
			fmt.Fprintf(w, "  %s\n", e.Name)
			writeNames(w, "abilities", e.Abilities)
			writeNames(w, "prerequisites", e.Prerequisites)
			writeNames(w, "requirements", e.Requirements)
		}
		fmt.Fprintln(w, "rules:")
		for _, e := range listing.Rules {
			fmt.Fprintf(w, "  %s -> %s\n", e.Name, e.Field)
			writeNames(w, "abilities", e.Abilities)
		}
	})
}

func writeNames(w io.Writer, label string, names []string) {
	if len(names) == 0 {
		return
	}
	fmt.Fprintf(w, "    %s: %s\n", label, strings.Join(names, ", "))
}
