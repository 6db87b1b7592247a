package cli

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/pxengine/internal/model"
	"github.com/roach88/pxengine/internal/settings"
)

// CharacterOptions holds flags shared by the character commands.
type CharacterOptions struct {
	*RootOptions
	DB        string
	Character int64
}

func (o *CharacterOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.DB, "db", "", "database path (default: PXENGINE_DB)")
	cmd.Flags().Int64Var(&o.Character, "character", 0, "character id")
	_ = cmd.MarkFlagRequired("character")
}

// NamedID is an entity reference for display.
type NamedID struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CharacterView is the stored PX state of a character.
type CharacterView struct {
	ID        int64             `json:"id"`
	EventID   int64             `json:"event_id"`
	Name      string            `json:"name"`
	Total     int64             `json:"px_tot"`
	Used      int64             `json:"px_used"`
	Available int64             `json:"px_avail"`
	Abilities []NamedID         `json:"abilities"`
	Free      []NamedID         `json:"free_abilities"`
	Fields    map[string]string `json:"fields,omitempty"` // question name -> answer text
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CharacterOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the PX state of a character",
		Long: `Show the stored PX aggregates, owned and free abilities and answers of
a character. Aggregates that were never computed are rebuilt first.

Examples:
  pxengine show --character 12
  pxengine show --character 12 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, cmd)
		},
	}
	opts.bind(cmd)

	return cmd
}

func runShow(opts *CharacterOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	a, err := openApp(opts.RootOptions, opts.DB, true)
	if err != nil {
		return f.Report(err)
	}
	defer a.Close()

	view, err := a.characterView(ctx, opts.Character)
	if err != nil {
		return f.Report(err)
	}

	return f.Success(view, func(w io.Writer) {
		fmt.Fprintf(w, "%s (character %d, event %d)\n", view.Name, view.ID, view.EventID)
		fmt.Fprintf(w, "  px_tot:   %d\n", view.Total)
		fmt.Fprintf(w, "  px_used:  %d\n", view.Used)
		fmt.Fprintf(w, "  px_avail: %d\n", view.Available)
		writeNamed(w, "abilities", view.Abilities)
		writeNamed(w, "free", view.Free)
		for _, q := range slices.Sorted(maps.Keys(view.Fields)) {
			fmt.Fprintf(w, "  %s: %s\n", q, view.Fields[q])
		}
	})
}

func (a *app) characterView(ctx context.Context, characterID int64) (CharacterView, error) {
	ch, err := a.store.Character(ctx, characterID)
	if err != nil {
		return CharacterView{}, err
	}
	ref := model.CharacterRef(ch.ID)

	view := CharacterView{ID: ch.ID, EventID: ch.EventID, Name: ch.Name}
	if _, ok, err := a.settings.Int(ctx, ref, settings.KeyPXTotal); err != nil {
		return CharacterView{}, err
	} else if !ok {
		if _, err := a.calc.Recompute(ctx, ch.ID); err != nil {
			return CharacterView{}, err
		}
	}
	for name, dst := range map[string]*int64{
		settings.KeyPXTotal:     &view.Total,
		settings.KeyPXUsed:      &view.Used,
		settings.KeyPXAvailable: &view.Available,
	} {
		if *dst, _, err = a.settings.Int(ctx, ref, name); err != nil {
			return CharacterView{}, err
		}
	}

	names, err := a.store.EventNames(ctx, ch.EventID)
	if err != nil {
		return CharacterView{}, err
	}
	owned, err := a.store.CharacterAbilities(ctx, ch.ID)
	if err != nil {
		return CharacterView{}, err
	}
	free, _, err := a.settings.IDList(ctx, ref, settings.KeyFreeAbilities)
	if err != nil {
		return CharacterView{}, err
	}
	view.Abilities = named(owned, names.Abilities)
	view.Free = named(free, names.Abilities)

	answers, err := a.store.Answers(ctx, ch.ID)
	if err != nil {
		return CharacterView{}, err
	}
	if len(answers) > 0 {
		view.Fields = make(map[string]string, len(answers))
		for _, ans := range answers {
			view.Fields[names.Questions[ans.QuestionID]] = ans.Text
		}
	}
	return view, nil
}

// named resolves ids to names in id order.
func named(ids model.IDSet, names map[int64]string) []NamedID {
	out := make([]NamedID, 0, len(ids))
	for _, id := range ids.Sorted() {
		out = append(out, NamedID{ID: id, Name: names[id]})
	}
	return out
}

func writeNamed(w io.Writer, label string, items []NamedID) {
	fmt.Fprintf(w, "  %s:", label)
	if len(items) == 0 {
		fmt.Fprintln(w, " none")
		return
	}
	fmt.Fprintln(w)
	for _, it := range items {
		fmt.Fprintf(w, "    %d  %s\n", it.ID, it.Name)
	}
}
