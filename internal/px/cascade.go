package px

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/pxengine/internal/model"
)

// DependentClosure returns root plus every owned ability that transitively
// depends on it through prerequisites. Abilities missing from the catalog
// are never pulled in.
func DependentClosure(cat *model.Catalog, owned model.IDSet, root int64) model.IDSet {
	return dependentClosure(cat, owned, model.NewIDSet(root))
}

func dependentClosure(cat *model.Catalog, owned, roots model.IDSet) model.IDSet {
	removed := roots.Clone()
	for {
		grew := false
		for _, id := range owned.Sorted() {
			if removed.Has(id) {
				continue
			}
			a, ok := cat.Ability(id)
			if !ok {
				continue
			}
			if a.Prerequisites.Intersects(removed) {
				removed.Add(id)
				grew = true
			}
		}
		if !grew {
			return removed
		}
	}
}

// GrantAbilities adds abilities to a character with no affordability
// check. Already owned abilities are ignored.
func (c *Calculator) GrantAbilities(ctx context.Context, characterID int64, abilities model.IDSet) error {
	unlock := c.locks.Lock(characterID)
	defer unlock()

	if err := c.repo.AddCharacterAbilities(ctx, characterID, abilities); err != nil {
		return fmt.Errorf("grant abilities to character %d: %w", characterID, err)
	}
	return nil
}

// RevokeAbilities removes the owned roots and every owned ability that
// depends on one of them. Returns the removed ids; roots the character
// does not own remove nothing.
func (c *Calculator) RevokeAbilities(ctx context.Context, characterID int64, roots model.IDSet) (model.IDSet, error) {
	ch, snap, err := c.load(ctx, characterID)
	if err != nil {
		return nil, err
	}

	unlock := c.locks.Lock(ch.ID)
	defer unlock()

	pc, err := c.buildContext(ctx, ch, snap)
	if err != nil {
		return nil, err
	}
	return c.cascade(ctx, snap, pc, roots)
}

// RemoveAbility revokes root and every owned ability depending on it.
func (c *Calculator) RemoveAbility(ctx context.Context, characterID, root int64) (model.IDSet, error) {
	return c.RevokeAbilities(ctx, characterID, model.NewIDSet(root))
}

// cascade removes the dependent closure of the owned roots in one
// transaction. The closure is computed from the owned set read inside that
// transaction, and pc.Owned is replaced with what remains. The caller
// holds the character lock.
func (c *Calculator) cascade(ctx context.Context, snap *snapshot, pc *Context, roots model.IDSet) (model.IDSet, error) {
	ctx, span := c.tracer.Start(ctx, "px.Cascade",
		trace.WithAttributes(
			attribute.Int64("character.id", pc.CharacterID),
			attribute.Int64Slice("ability.roots", roots.Sorted()),
		),
	)
	defer span.End()

	var remaining model.IDSet
	removed, err := c.repo.RemoveAbilityClosure(ctx, pc.CharacterID, func(owned model.IDSet) model.IDSet {
		owned = owned.Clone()
		start := model.NewIDSet()
		for id := range roots {
			if owned.Has(id) {
				start.Add(id)
			}
		}
		closure := dependentClosure(snap.cat, owned, start)
		for id := range closure {
			owned.Remove(id)
		}
		remaining = owned
		return closure
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "remove failed")
		return nil, fmt.Errorf("cascade removal of abilities %v: %w", roots.Sorted(), err)
	}
	pc.Owned = remaining

	span.SetAttributes(attribute.Int("removed", removed.Len()))
	c.logger.Debug("cascade removal",
		"character", pc.CharacterID,
		"roots", roots.Sorted(),
		"removed", removed.Sorted(),
	)
	return removed, nil
}
