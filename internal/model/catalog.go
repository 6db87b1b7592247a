package model

import "errors"

// Entity kinds used to scope settings rows.
const (
	KindEvent     = "event"
	KindCharacter = "character"
)

// Ref identifies one entity that owns settings.
type Ref struct {
	Kind string
	ID   int64
}

// EventRef returns the settings reference of an event.
func EventRef(id int64) Ref { return Ref{Kind: KindEvent, ID: id} }

// CharacterRef returns the settings reference of a character.
func CharacterRef(id int64) Ref { return Ref{Kind: KindCharacter, ID: id} }

// Catalog is the per-event rulebook loaded in bulk before a recompute.
//
// Abilities are ordered by (name, id); Modifiers and Rules by (order, id).
// A Catalog is immutable once built and safe for concurrent readers.
type Catalog struct {
	Event     Event
	Abilities []Ability
	Modifiers []Modifier
	Rules     []Rule
	Computed  []Question

	abilityIndex map[int64]int
}

// NewCatalog builds a catalog and indexes its abilities by id.
func NewCatalog(event Event, abilities []Ability, modifiers []Modifier, rules []Rule, computed []Question) *Catalog {
	c := &Catalog{
		Event:        event,
		Abilities:    abilities,
		Modifiers:    modifiers,
		Rules:        rules,
		Computed:     computed,
		abilityIndex: make(map[int64]int, len(abilities)),
	}
	for i, a := range abilities {
		c.abilityIndex[a.ID] = i
	}
	return c
}

// Ability returns a copy of the ability with the given id.
func (c *Catalog) Ability(id int64) (Ability, bool) {
	i, ok := c.abilityIndex[id]
	if !ok {
		return Ability{}, false
	}
	return c.Abilities[i], true
}

// ErrNotFound is returned when a looked-up entity does not exist.
var ErrNotFound = errors.New("not found")
