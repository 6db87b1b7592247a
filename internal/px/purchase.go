package px

import (
	"context"
	"fmt"

	"github.com/roach88/pxengine/internal/model"
)

// Purchase grants an ability the character can currently afford, then
// recomputes. Returns ABILITY_UNAVAILABLE when the ability is not on offer
// within the character's px_avail.
func (c *Calculator) Purchase(ctx context.Context, characterID, abilityID int64) (Summary, error) {
	ch, snap, err := c.load(ctx, characterID)
	if err != nil {
		return Summary{}, err
	}
	if _, ok := snap.cat.Ability(abilityID); !ok {
		return Summary{}, abilityNotFound(characterID, abilityID)
	}

	unlock := c.locks.Lock(ch.ID)
	defer unlock()

	// A fresh recompute settles free abilities and px_avail before the check.
	before, err := c.recomputeLocked(ctx, ch, snap)
	if err != nil {
		return Summary{}, err
	}
	if before.Skipped {
		return Summary{}, abilityUnavailable(characterID, abilityID)
	}

	pc, err := c.buildContext(ctx, ch, snap)
	if err != nil {
		return Summary{}, err
	}
	offered := false
	for _, o := range Offers(snap.cat, pc, before.Available) {
		if o.Ability.ID == abilityID {
			offered = true
			break
		}
	}
	if !offered {
		return Summary{}, abilityUnavailable(characterID, abilityID)
	}

	if err := c.repo.AddCharacterAbilities(ctx, ch.ID, model.NewIDSet(abilityID)); err != nil {
		return Summary{}, fmt.Errorf("purchase ability %d: %w", abilityID, err)
	}
	c.logger.Info("ability purchased", "character", ch.ID, "ability", abilityID)
	return c.recomputeLocked(ctx, ch, snap)
}

// Refund removes an owned ability with every ability depending on it, then
// recomputes. Free abilities removed this way stay on the free list, so
// they are not granted again.
func (c *Calculator) Refund(ctx context.Context, characterID, abilityID int64) (model.IDSet, Summary, error) {
	ch, snap, err := c.load(ctx, characterID)
	if err != nil {
		return nil, Summary{}, err
	}
	if _, ok := snap.cat.Ability(abilityID); !ok {
		return nil, Summary{}, abilityNotFound(characterID, abilityID)
	}

	unlock := c.locks.Lock(ch.ID)
	defer unlock()

	pc, err := c.buildContext(ctx, ch, snap)
	if err != nil {
		return nil, Summary{}, err
	}
	if !pc.Owned.Has(abilityID) {
		return nil, Summary{}, abilityNotOwned(characterID, abilityID)
	}

	removed, err := c.cascade(ctx, snap, pc, model.NewIDSet(abilityID))
	if err != nil {
		return nil, Summary{}, err
	}
	c.logger.Info("ability refunded", "character", ch.ID, "ability", abilityID, "removed", removed.Sorted())

	sum, err := c.recomputeLocked(ctx, ch, snap)
	if err != nil {
		return nil, Summary{}, err
	}
	return removed, sum, nil
}
