package px

import "github.com/roach88/pxengine/internal/model"

// EffectiveCost resolves the cost of an ability for the context.
// The first satisfied modifier wins; otherwise the base cost stands.
func EffectiveCost(a model.Ability, pc *Context) int64 {
	for _, m := range pc.Modifiers[a.ID] {
		if m.Holds(pc.Owned, pc.Options) {
			return m.Cost
		}
	}
	return a.Cost
}

// UsedPX sums the effective costs of the owned abilities.
// Owned ids missing from the catalog contribute nothing.
func UsedPX(cat *model.Catalog, pc *Context) int64 {
	var used int64
	for _, id := range pc.Owned.Sorted() {
		a, ok := cat.Ability(id)
		if !ok {
			continue
		}
		used += EffectiveCost(a, pc)
	}
	return used
}
