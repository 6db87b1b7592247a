package px

import (
	"context"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/roach88/pxengine/internal/model"
	"github.com/roach88/pxengine/internal/settings"
)

// Offer is an ability a character can buy and what it costs them.
type Offer struct {
	Ability model.Ability `json:"ability"`
	Cost    int64         `json:"cost"`
}

// Offers filters the catalog to the abilities purchasable within budget:
// visible, not owned, prerequisites owned, requirements selected and
// effective cost at most budget. Ordered by name, then id.
func Offers(cat *model.Catalog, pc *Context, budget int64) []Offer {
	out := []Offer{}
	for _, a := range cat.Abilities {
		if !a.Visible || pc.Owned.Has(a.ID) {
			continue
		}
		if !a.Prerequisites.SubsetOf(pc.Owned) || !a.Requirements.SubsetOf(pc.Options) {
			continue
		}
		cost := EffectiveCost(a, pc)
		if cost > budget {
			continue
		}
		out = append(out, Offer{Ability: a, Cost: cost})
	}
	sortOffers(out)
	return out
}

// sortOffers orders offers by locale-neutral collation of the name, ties by id.
func sortOffers(offers []Offer) {
	// Collator keeps internal buffers; one per call keeps Offers reentrant.
	col := collate.New(language.Und)
	slices.SortStableFunc(offers, func(a, b Offer) int {
		if c := col.CompareString(a.Ability.Name, b.Ability.Name); c != 0 {
			return c
		}
		switch {
		case a.Ability.ID < b.Ability.ID:
			return -1
		case a.Ability.ID > b.Ability.ID:
			return 1
		}
		return 0
	})
}

// Available returns the abilities a character can purchase.
//
// A nil budget means the character's stored px_avail; when no aggregate is
// stored yet it is rebuilt inline first.
func (c *Calculator) Available(ctx context.Context, characterID int64, budget *int64) ([]Offer, error) {
	ch, snap, err := c.load(ctx, characterID)
	if err != nil {
		return nil, err
	}

	limit, err := c.budget(ctx, ch, snap, budget)
	if err != nil {
		return nil, err
	}

	pc, err := c.buildContext(ctx, ch, snap)
	if err != nil {
		return nil, err
	}
	return Offers(snap.cat, pc, limit), nil
}

// budget resolves an explicit budget or the stored px_avail, rebuilding the
// aggregate when it is absent.
func (c *Calculator) budget(ctx context.Context, ch model.Character, snap *snapshot, budget *int64) (int64, error) {
	if budget != nil {
		return *budget, nil
	}
	avail, ok, err := c.cfg.Int(ctx, model.CharacterRef(ch.ID), settings.KeyPXAvailable)
	if err != nil {
		return 0, err
	}
	if ok {
		return avail, nil
	}

	c.logger.Debug("no stored px_avail, rebuilding", "character", ch.ID)
	sum, err := c.recomputeCharacter(ctx, ch, snap)
	if err != nil {
		return 0, err
	}
	return sum.Available, nil
}
