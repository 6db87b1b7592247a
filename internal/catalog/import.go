package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/pxengine/internal/model"
	"github.com/roach88/pxengine/internal/settings"
	"github.com/roach88/pxengine/internal/store"
)

// Keys maps catalog keys to the row ids assigned on import.
type Keys struct {
	EventID    int64            `json:"event_id"`
	Questions  map[string]int64 `json:"questions"`
	Options    map[string]int64 `json:"options"` // "question.option"
	Abilities  map[string]int64 `json:"abilities"`
	Modifiers  map[string]int64 `json:"modifiers"`
	Rules      map[string]int64 `json:"rules"`
	Characters map[string]int64 `json:"characters"`
	Deliveries map[string]int64 `json:"deliveries"`
}

func newKeys() *Keys {
	return &Keys{
		Questions:  make(map[string]int64),
		Options:    make(map[string]int64),
		Abilities:  make(map[string]int64),
		Modifiers:  make(map[string]int64),
		Rules:      make(map[string]int64),
		Characters: make(map[string]int64),
		Deliveries: make(map[string]int64),
	}
}

func (k *Keys) abilitySet(keys []string) model.IDSet {
	return resolve(keys, k.Abilities)
}

func (k *Keys) optionSet(refs []string) model.IDSet {
	return resolve(refs, k.Options)
}

func resolve(keys []string, ids map[string]int64) model.IDSet {
	set := model.NewIDSet()
	for _, key := range keys {
		set.Add(ids[key])
	}
	return set
}

// InvalidError is returned by Import when the file fails validation.
type InvalidError struct {
	Errors []ValidationError
}

func (e *InvalidError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Error()
	}
	return fmt.Sprintf("invalid catalog: %s", strings.Join(msgs, "; "))
}

// Import validates f and writes it to the store as a new event.
//
// Names are normalized to NFC. Prerequisite edges are added after every
// ability exists, so forward references and cycles import cleanly.
// Import writes rows only; callers recompute the event afterwards.
//
// A failed import deletes the partially written event, so the slug stays
// free for a retry.
func Import(ctx context.Context, st *store.Store, f *File) (*Keys, error) {
	if errs := Validate(f); len(errs) > 0 {
		return nil, &InvalidError{Errors: errs}
	}

	keys := newKeys()
	eventID, err := st.CreateEvent(ctx, model.Event{
		Slug:     f.Event.Slug,
		Name:     nfc(f.Event.Name),
		Features: f.Event.Features,
	})
	if err != nil {
		return nil, err
	}
	keys.EventID = eventID

	if err := importRows(ctx, st, f, keys); err != nil {
		// The import context may be what failed.
		if derr := st.DeleteEvent(context.WithoutCancel(ctx), eventID); derr != nil {
			slog.Error("rollback of failed import", "event", f.Event.Slug, "event_id", eventID, "error", derr)
		}
		return nil, err
	}

	slog.Info("catalog imported",
		"event", f.Event.Slug,
		"event_id", eventID,
		"abilities", len(keys.Abilities),
		"characters", len(keys.Characters))
	return keys, nil
}

// importRows writes everything below the event row.
func importRows(ctx context.Context, st *store.Store, f *File, keys *Keys) error {
	if f.Event.PXStart != nil {
		err := st.SaveSettings(ctx, model.EventRef(keys.EventID), map[string]string{
			settings.KeyPXStart: settings.FormatInt(*f.Event.PXStart),
		})
		if err != nil {
			return fmt.Errorf("import event %q: %w", f.Event.Slug, err)
		}
	}

	steps := []func(context.Context, *store.Store, *File, *Keys) error{
		importQuestions,
		importAbilities,
		importModifiers,
		importRules,
		importCharacters,
		importDeliveries,
	}
	for _, step := range steps {
		if err := step(ctx, st, f, keys); err != nil {
			return fmt.Errorf("import event %q: %w", f.Event.Slug, err)
		}
	}
	return nil
}

func importQuestions(ctx context.Context, st *store.Store, f *File, keys *Keys) error {
	for _, q := range f.Questions {
		id, err := st.CreateQuestion(ctx, model.Question{
			EventID: keys.EventID,
			Name:    nfc(q.Name),
			Type:    model.QuestionType(q.Type),
		})
		if err != nil {
			return err
		}
		keys.Questions[q.Key] = id
		for _, o := range q.Options {
			oid, err := st.CreateOption(ctx, model.Option{QuestionID: id, Name: nfc(o.Name)})
			if err != nil {
				return err
			}
			keys.Options[OptionRef(q.Key, o.Key)] = oid
		}
	}
	return nil
}

func importAbilities(ctx context.Context, st *store.Store, f *File, keys *Keys) error {
	for _, a := range f.Abilities {
		id, err := st.CreateAbility(ctx, model.Ability{
			EventID:      keys.EventID,
			Name:         nfc(a.Name),
			Cost:         a.Cost,
			Visible:      a.IsVisible(),
			Requirements: keys.optionSet(a.Requirements),
		})
		if err != nil {
			return err
		}
		keys.Abilities[a.Key] = id
	}
	for _, a := range f.Abilities {
		if len(a.Prerequisites) == 0 {
			continue
		}
		err := st.AddEdges(ctx, store.EdgeAbilityPrerequisites, keys.Abilities[a.Key], keys.abilitySet(a.Prerequisites))
		if err != nil {
			return err
		}
	}
	return nil
}

func importModifiers(ctx context.Context, st *store.Store, f *File, keys *Keys) error {
	for _, m := range f.Modifiers {
		id, err := st.CreateModifier(ctx, model.Modifier{
			EventID:       keys.EventID,
			Name:          nfc(m.Name),
			Order:         m.Order,
			Cost:          m.Cost,
			Abilities:     keys.abilitySet(m.Abilities),
			Prerequisites: keys.abilitySet(m.Prerequisites),
			Requirements:  keys.optionSet(m.Requirements),
		})
		if err != nil {
			return err
		}
		keys.Modifiers[m.Key] = id
	}
	return nil
}

func importRules(ctx context.Context, st *store.Store, f *File, keys *Keys) error {
	for _, r := range f.Rules {
		op, err := model.ParseOperation(r.Operation)
		if err != nil {
			return err
		}
		name := r.Name
		if name == "" {
			name = r.Key
		}
		id, err := st.CreateRule(ctx, model.Rule{
			EventID:    keys.EventID,
			Name:       nfc(name),
			Order:      r.Order,
			QuestionID: keys.Questions[r.Field],
			Operation:  op,
			Amount:     r.Amount,
			Abilities:  keys.abilitySet(r.Abilities),
		})
		if err != nil {
			return err
		}
		keys.Rules[r.Key] = id
	}
	return nil
}

func importCharacters(ctx context.Context, st *store.Store, f *File, keys *Keys) error {
	for _, c := range f.Characters {
		id, err := st.CreateCharacter(ctx, model.Character{EventID: keys.EventID, Name: nfc(c.Name)})
		if err != nil {
			return err
		}
		keys.Characters[c.Key] = id
		if len(c.Abilities) > 0 {
			if err := st.AddCharacterAbilities(ctx, id, keys.abilitySet(c.Abilities)); err != nil {
				return err
			}
		}
		for _, ref := range c.Options {
			if err := st.SelectOption(ctx, id, keys.Options[ref]); err != nil {
				return err
			}
		}
	}
	return nil
}

func importDeliveries(ctx context.Context, st *store.Store, f *File, keys *Keys) error {
	for _, d := range f.Deliveries {
		id, err := st.CreateDelivery(ctx, model.Delivery{
			EventID:    keys.EventID,
			Name:       nfc(d.Name),
			Amount:     d.Amount,
			Characters: resolve(d.Characters, keys.Characters),
		})
		if err != nil {
			return err
		}
		keys.Deliveries[d.Key] = id
	}
	return nil
}

func nfc(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
