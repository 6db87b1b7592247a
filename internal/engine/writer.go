package engine

import (
	"context"
	"fmt"

	"github.com/roach88/pxengine/internal/model"
	"github.com/roach88/pxengine/internal/px"
	"github.com/roach88/pxengine/internal/settings"
	"github.com/roach88/pxengine/internal/store"
)

// Ownership changes the abilities a character owns under the character's
// lock. Revocation removes dependents with their prerequisites.
// *px.Calculator satisfies it.
type Ownership interface {
	GrantAbilities(ctx context.Context, characterID int64, abilities model.IDSet) error
	RevokeAbilities(ctx context.Context, characterID int64, roots model.IDSet) (model.IDSet, error)
	Purchase(ctx context.Context, characterID, abilityID int64) (px.Summary, error)
	Refund(ctx context.Context, characterID, abilityID int64) (model.IDSet, px.Summary, error)
}

// Writer applies data mutations and signals the engine afterwards, so every
// relationship change schedules the recomputes it requires.
type Writer struct {
	store  *store.Store
	config *settings.Service
	owners Ownership
	engine *Engine
}

// NewWriter creates a writer over the store and settings that changes
// ownership through owners and notifies eng.
func NewWriter(s *store.Store, cfg *settings.Service, owners Ownership, eng *Engine) *Writer {
	return &Writer{store: s, config: cfg, owners: owners, engine: eng}
}

// GrantAbilities adds abilities to a character with no affordability check.
func (w *Writer) GrantAbilities(ctx context.Context, characterID int64, abilities model.IDSet) error {
	ch, err := w.store.Character(ctx, characterID)
	if err != nil {
		return err
	}
	if err := w.owners.GrantAbilities(ctx, characterID, abilities); err != nil {
		return err
	}
	return w.notifyCharacters(ctx, store.EdgeAbilityCharacters.Relation, ch.EventID, characterID)
}

// RevokeAbilities removes abilities from a character together with every
// owned ability depending on them. Returns the removed ids.
func (w *Writer) RevokeAbilities(ctx context.Context, characterID int64, abilities model.IDSet) (model.IDSet, error) {
	ch, err := w.store.Character(ctx, characterID)
	if err != nil {
		return nil, err
	}
	removed, err := w.owners.RevokeAbilities(ctx, characterID, abilities)
	if err != nil {
		return nil, err
	}
	return removed, w.notifyCharacters(ctx, store.EdgeAbilityCharacters.Relation, ch.EventID, characterID)
}

// Purchase buys an ability for a character and announces the ownership
// change. The purchase recomputes the character itself.
func (w *Writer) Purchase(ctx context.Context, characterID, abilityID int64) (px.Summary, error) {
	sum, err := w.owners.Purchase(ctx, characterID, abilityID)
	if err != nil {
		return px.Summary{}, err
	}
	if err := w.announceOwnership(ctx, characterID); err != nil {
		return px.Summary{}, err
	}
	return sum, nil
}

// Refund removes an ability with its dependents and announces the
// ownership change. The refund recomputes the character itself.
func (w *Writer) Refund(ctx context.Context, characterID, abilityID int64) (model.IDSet, px.Summary, error) {
	removed, sum, err := w.owners.Refund(ctx, characterID, abilityID)
	if err != nil {
		return nil, px.Summary{}, err
	}
	if err := w.announceOwnership(ctx, characterID); err != nil {
		return nil, px.Summary{}, err
	}
	return removed, sum, nil
}

func (w *Writer) announceOwnership(ctx context.Context, characterID int64) error {
	ch, err := w.store.Character(ctx, characterID)
	if err != nil {
		return err
	}
	w.engine.Announce(Change{
		Relation:     store.EdgeAbilityCharacters.Relation,
		EventID:      ch.EventID,
		CharacterIDs: []int64{characterID},
	})
	return nil
}

// SelectOption records a character choice.
func (w *Writer) SelectOption(ctx context.Context, characterID, optionID int64) error {
	ch, err := w.store.Character(ctx, characterID)
	if err != nil {
		return err
	}
	if err := w.store.SelectOption(ctx, characterID, optionID); err != nil {
		return err
	}
	return w.notifyCharacters(ctx, RelationCharacterOptions, ch.EventID, characterID)
}

// DeselectOption removes a character choice.
func (w *Writer) DeselectOption(ctx context.Context, characterID, optionID int64) error {
	ch, err := w.store.Character(ctx, characterID)
	if err != nil {
		return err
	}
	if err := w.store.DeselectOption(ctx, characterID, optionID); err != nil {
		return err
	}
	return w.notifyCharacters(ctx, RelationCharacterOptions, ch.EventID, characterID)
}

// AddEdges links owner to targets on the given relationship.
func (w *Writer) AddEdges(ctx context.Context, e store.Edge, owner int64, targets model.IDSet) error {
	if e == store.EdgeAbilityCharacters {
		return w.mutateOwnership(ctx, owner, targets, nil, nil)
	}
	return w.mutateEdges(ctx, e, owner, targets, nil, w.store.AddEdges)
}

// RemoveEdges unlinks owner from targets on the given relationship.
// Removing characters from an ability also removes, per character, every
// owned ability depending on it.
func (w *Writer) RemoveEdges(ctx context.Context, e store.Edge, owner int64, targets model.IDSet) error {
	if e == store.EdgeAbilityCharacters {
		return w.mutateOwnership(ctx, owner, nil, targets, nil)
	}
	return w.mutateEdges(ctx, e, owner, targets, nil, w.store.RemoveEdges)
}

// SetEdges replaces every link of owner on the given relationship.
// For character-scoped relations both former and new characters are
// recomputed.
func (w *Writer) SetEdges(ctx context.Context, e store.Edge, owner int64, targets model.IDSet) error {
	previous, err := w.store.Targets(ctx, e, owner)
	if err != nil {
		return err
	}
	if e == store.EdgeAbilityCharacters {
		grant, revoke := model.NewIDSet(), model.NewIDSet()
		for id := range targets {
			if !previous.Has(id) {
				grant.Add(id)
			}
		}
		for id := range previous {
			if !targets.Has(id) {
				revoke.Add(id)
			}
		}
		return w.mutateOwnership(ctx, owner, grant, revoke, previous)
	}
	return w.mutateEdges(ctx, e, owner, targets, previous, w.store.SetEdges)
}

// mutateOwnership grants ability to the grant characters and revokes it,
// with its dependents, from the revoke characters.
func (w *Writer) mutateOwnership(ctx context.Context, ability int64, grant, revoke, previous model.IDSet) error {
	eventID, err := w.store.OwnerEvent(ctx, store.EdgeAbilityCharacters, ability)
	if err != nil {
		return err
	}
	roots := model.NewIDSet(ability)
	for _, ch := range grant.Sorted() {
		if err := w.owners.GrantAbilities(ctx, ch, roots); err != nil {
			return err
		}
	}
	for _, ch := range revoke.Sorted() {
		if _, err := w.owners.RevokeAbilities(ctx, ch, roots); err != nil {
			return fmt.Errorf("revoke ability %d from character %d: %w", ability, ch, err)
		}
	}
	return w.engine.Notify(ctx, Change{
		Relation:     store.EdgeAbilityCharacters.Relation,
		EventID:      eventID,
		CharacterIDs: grant.Union(revoke).Union(previous).Sorted(),
	})
}

type edgeMutation func(ctx context.Context, e store.Edge, owner int64, targets model.IDSet) error

func (w *Writer) mutateEdges(ctx context.Context, e store.Edge, owner int64, targets, previous model.IDSet, apply edgeMutation) error {
	eventID, err := w.store.OwnerEvent(ctx, e, owner)
	if err != nil {
		return err
	}
	if err := apply(ctx, e, owner, targets); err != nil {
		return err
	}

	change := Change{Relation: e.Relation, EventID: eventID}
	if change.CharacterScoped() {
		change.CharacterIDs = targets.Union(previous).Sorted()
	}
	return w.engine.Notify(ctx, change)
}

// CreateDelivery stores a delivery and recomputes its recipients.
func (w *Writer) CreateDelivery(ctx context.Context, d model.Delivery) (int64, error) {
	id, err := w.store.CreateDelivery(ctx, d)
	if err != nil {
		return 0, err
	}
	return id, w.notifyCharacters(ctx, store.EdgeDeliveryCharacters.Relation, d.EventID, d.Characters.Sorted()...)
}

// UpdateDeliveryAmount changes a delivery amount and recomputes its recipients.
func (w *Writer) UpdateDeliveryAmount(ctx context.Context, deliveryID, amount int64) error {
	eventID, err := w.store.OwnerEvent(ctx, store.EdgeDeliveryCharacters, deliveryID)
	if err != nil {
		return err
	}
	if err := w.store.UpdateDeliveryAmount(ctx, deliveryID, amount); err != nil {
		return err
	}
	recipients, err := w.store.Targets(ctx, store.EdgeDeliveryCharacters, deliveryID)
	if err != nil {
		return err
	}
	return w.notifyCharacters(ctx, RelationDeliveryAmount, eventID, recipients.Sorted()...)
}

// UpdateAbilityCost changes an ability's base cost and recomputes the event.
func (w *Writer) UpdateAbilityCost(ctx context.Context, abilityID, cost int64) error {
	eventID, err := w.store.OwnerEvent(ctx, store.EdgeAbilityPrerequisites, abilityID)
	if err != nil {
		return err
	}
	if err := w.store.UpdateAbilityCost(ctx, abilityID, cost); err != nil {
		return err
	}
	return w.engine.Notify(ctx, Change{Relation: RelationAbilityCost, EventID: eventID})
}

// SetStartingPX sets the event's PX baseline and recomputes the event.
func (w *Writer) SetStartingPX(ctx context.Context, eventID, px int64) error {
	if err := w.config.Save(ctx, model.EventRef(eventID), settings.KeyPXStart, settings.FormatInt(px)); err != nil {
		return fmt.Errorf("set starting px of event %d: %w", eventID, err)
	}
	return w.engine.Notify(ctx, Change{Relation: RelationEventConfig, EventID: eventID})
}

func (w *Writer) notifyCharacters(ctx context.Context, relation string, eventID int64, characterIDs ...int64) error {
	if len(characterIDs) == 0 {
		return nil
	}
	return w.engine.Notify(ctx, Change{Relation: relation, EventID: eventID, CharacterIDs: characterIDs})
}
