package px

import (
	"context"
	"fmt"

	"github.com/roach88/pxengine/internal/model"
)

// freeResult reports the outcome of free ability reconciliation.
type freeResult struct {
	free    model.IDSet
	granted model.IDSet
	revoked model.IDSet
}

// freeListChanged reports whether the free list differs from before.
func (r freeResult) freeListChanged(before model.IDSet) bool {
	return !r.free.Equal(before)
}

// reconcileFree grants abilities that are currently free and revokes
// previously granted ones that no longer are.
//
// Grant: every offer at budget 0 that is not on the free list joins the
// owned set and the free list. Revoke: every owned ability on the free list
// whose effective cost is now positive is removed with its dependents, and
// the removed ids leave the free list. Both passes repeat until nothing
// changes. An id revoked during this call is not granted again in it.
//
// The caller holds the character lock; pc.Owned is updated in place.
func (c *Calculator) reconcileFree(ctx context.Context, snap *snapshot, pc *Context, free model.IDSet) (freeResult, error) {
	res := freeResult{
		free:    free.Clone(),
		granted: model.NewIDSet(),
		revoked: model.NewIDSet(),
	}

	for {
		progressed := false

		grant := model.NewIDSet()
		for _, o := range Offers(snap.cat, pc, 0) {
			id := o.Ability.ID
			if o.Cost != 0 || res.free.Has(id) || res.revoked.Has(id) {
				continue
			}
			grant.Add(id)
		}
		if grant.Len() > 0 {
			if err := c.repo.AddCharacterAbilities(ctx, pc.CharacterID, grant); err != nil {
				return freeResult{}, fmt.Errorf("grant free abilities: %w", err)
			}
			for id := range grant {
				pc.Owned.Add(id)
				res.free.Add(id)
				res.granted.Add(id)
			}
			progressed = true
		}

		for _, id := range pc.Owned.Sorted() {
			if !pc.Owned.Has(id) || !res.free.Has(id) {
				continue // already cascaded, or bought
			}
			a, ok := snap.cat.Ability(id)
			if !ok || EffectiveCost(a, pc) <= 0 {
				continue
			}
			removed, err := c.cascade(ctx, snap, pc, model.NewIDSet(id))
			if err != nil {
				return freeResult{}, err
			}
			for rid := range removed {
				res.free.Remove(rid)
				res.revoked.Add(rid)
				res.granted.Remove(rid)
			}
			progressed = true
		}

		if !progressed {
			return res, nil
		}
	}
}
