package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/pxengine/internal/px"
)

// AbilityOptions holds flags for purchase and refund.
type AbilityOptions struct {
	CharacterOptions
	Ability int64
}

// AbilityResult is the outcome of a purchase or refund.
type AbilityResult struct {
	Character int64      `json:"character"`
	Ability   int64      `json:"ability"`
	Removed   []int64    `json:"removed,omitempty"` // refund only: the ability and its dependents
	Summary   px.Summary `json:"summary"`
}

// abilityAction performs the purchase or refund on a wired app.
type abilityAction func(ctx context.Context, a *app, characterID, abilityID int64) (AbilityResult, error)

// NewPurchaseCommand creates the purchase command.
func NewPurchaseCommand(rootOpts *RootOptions) *cobra.Command {
	return newAbilityCommand(rootOpts, &cobra.Command{
		Use:   "purchase",
		Short: "Buy an ability for a character",
		Long: `Buy an ability the character can currently afford, then recompute.

Fails with ABILITY_UNAVAILABLE when the ability is not on offer within
the character's px_avail.

Examples:
  pxengine purchase --character 12 --ability 40`,
	}, "Purchased", func(ctx context.Context, a *app, characterID, abilityID int64) (AbilityResult, error) {
		sum, err := a.writer.Purchase(ctx, characterID, abilityID)
		if err != nil {
			return AbilityResult{}, err
		}
		return AbilityResult{Character: characterID, Ability: abilityID, Summary: sum}, nil
	})
}

// NewRefundCommand creates the refund command.
func NewRefundCommand(rootOpts *RootOptions) *cobra.Command {
	return newAbilityCommand(rootOpts, &cobra.Command{
		Use:   "refund",
		Short: "Remove an ability and everything that depends on it",
		Long: `Remove an owned ability together with every owned ability whose
prerequisites no longer hold, then recompute. Refunded free abilities are
not granted again.

Examples:
  pxengine refund --character 12 --ability 40`,
	}, "Refunded", func(ctx context.Context, a *app, characterID, abilityID int64) (AbilityResult, error) {
		removed, sum, err := a.writer.Refund(ctx, characterID, abilityID)
		if err != nil {
			return AbilityResult{}, err
		}
		return AbilityResult{Character: characterID, Ability: abilityID, Removed: removed.Sorted(), Summary: sum}, nil
	})
}

func newAbilityCommand(rootOpts *RootOptions, cmd *cobra.Command, verb string, action abilityAction) *cobra.Command {
	opts := &AbilityOptions{CharacterOptions: CharacterOptions{RootOptions: rootOpts}}

	cmd.Args = cobra.NoArgs
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		f := newFormatter(opts.RootOptions, cmd)

		a, err := openApp(opts.RootOptions, opts.DB, true)
		if err != nil {
			return f.Report(err)
		}
		defer a.Close()

		result, err := action(cmd.Context(), a, opts.Character, opts.Ability)
		if err != nil {
			return f.Report(err)
		}
		return f.Success(result, func(w io.Writer) {
			fmt.Fprintf(w, "✓ %s ability %d\n", verb, result.Ability)
			if len(result.Removed) > 1 {
				fmt.Fprintf(w, "  removed: %v\n", result.Removed)
			}
			writeSummary(w, result.Summary)
		})
	}

	opts.bind(cmd)
	cmd.Flags().Int64Var(&opts.Ability, "ability", 0, "ability id")
	_ = cmd.MarkFlagRequired("ability")

	return cmd
}
