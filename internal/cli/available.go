package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/pxengine/internal/px"
)

// AvailableOptions holds flags for the available command.
type AvailableOptions struct {
	CharacterOptions
	Budget int64
}

// AvailableResult lists the abilities a character can buy.
type AvailableResult struct {
	Character int64      `json:"character"`
	Budget    *int64     `json:"budget,omitempty"` // nil means the stored px_avail
	Offers    []px.Offer `json:"offers"`
}

// NewAvailableCommand creates the available command.
func NewAvailableCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AvailableOptions{CharacterOptions: CharacterOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "available",
		Short: "List the abilities a character can buy",
		Long: `List the visible abilities a character does not own whose prerequisites
are owned, whose requirements are selected and whose effective cost fits
the budget. The budget defaults to the character's px_avail.

Examples:
  pxengine available --character 12
  pxengine available --character 12 --budget 15`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var budget *int64
			if cmd.Flags().Changed("budget") {
				budget = &opts.Budget
			}
			return runAvailable(opts, budget, cmd)
		},
	}
	opts.bind(cmd)
	cmd.Flags().Int64Var(&opts.Budget, "budget", 0, "PX budget (default: the character's px_avail)")

	return cmd
}

func runAvailable(opts *AvailableOptions, budget *int64, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	a, err := openApp(opts.RootOptions, opts.DB, true)
	if err != nil {
		return f.Report(err)
	}
	defer a.Close()

	offers, err := a.calc.Available(cmd.Context(), opts.Character, budget)
	if err != nil {
		return f.Report(err)
	}

	result := AvailableResult{Character: opts.Character, Budget: budget, Offers: offers}
	return f.Success(result, func(w io.Writer) {
		if len(offers) == 0 {
			fmt.Fprintln(w, "No abilities available.")
			return
		}
		for _, o := range offers {
			fmt.Fprintf(w, "  %d  %s (%d PX)\n", o.Ability.ID, o.Ability.Name, o.Cost)
		}
	})
}
