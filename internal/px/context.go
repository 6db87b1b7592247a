package px

import (
	"github.com/roach88/pxengine/internal/model"
)

// ModifierCondition is one cost override candidate for an ability.
type ModifierCondition struct {
	ModifierID    int64
	Cost          int64
	Prerequisites model.IDSet
	Requirements  model.IDSet
}

// Holds reports whether the condition is satisfied by the owned abilities
// and selected options.
func (m ModifierCondition) Holds(owned, options model.IDSet) bool {
	return m.Prerequisites.SubsetOf(owned) && m.Requirements.SubsetOf(options)
}

// ModifierIndex maps an ability id to its cost modifiers in (order, id) order.
type ModifierIndex map[int64][]ModifierCondition

// IndexModifiers builds the modifier lookup of a catalog.
// Returns an empty index when the event does not use modifiers.
func IndexModifiers(cat *model.Catalog) ModifierIndex {
	idx := make(ModifierIndex)
	if !cat.Event.HasFeature(model.FeatureModifiers) {
		return idx
	}
	// cat.Modifiers is already ordered by (order, id).
	for _, m := range cat.Modifiers {
		if m.Abilities.Len() == 0 {
			continue
		}
		cond := ModifierCondition{
			ModifierID:    m.ID,
			Cost:          m.Cost,
			Prerequisites: m.Prerequisites,
			Requirements:  m.Requirements,
		}
		for _, id := range m.Abilities.Sorted() {
			idx[id] = append(idx[id], cond)
		}
	}
	return idx
}

// Context holds the working sets of one character.
//
// Owned and Options are private to the context; Modifiers is shared by
// every context built from the same catalog and must not be modified.
type Context struct {
	CharacterID int64
	Owned       model.IDSet
	Options     model.IDSet
	Modifiers   ModifierIndex
}

// BuildContext assembles the context of one character. It copies owned
// and options so callers may keep using their sets.
func BuildContext(characterID int64, owned, options model.IDSet, modifiers ModifierIndex) *Context {
	if modifiers == nil {
		modifiers = ModifierIndex{}
	}
	return &Context{
		CharacterID: characterID,
		Owned:       owned.Clone(),
		Options:     options.Clone(),
		Modifiers:   modifiers,
	}
}

// snapshot is a catalog plus its derived modifier index, shared read-only
// across every character of one recompute.
type snapshot struct {
	cat       *model.Catalog
	modifiers ModifierIndex
}

func newSnapshot(cat *model.Catalog) *snapshot {
	return &snapshot{cat: cat, modifiers: IndexModifiers(cat)}
}
