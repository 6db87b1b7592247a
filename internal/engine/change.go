package engine

import (
	"github.com/roach88/pxengine/internal/store"
)

// Relation names carried by change signals that are not edge tables.
const (
	// RelationCharacterOptions is a character selecting or dropping an option.
	RelationCharacterOptions = "character.options"

	// RelationAbilityCost is a change of an ability's base cost.
	RelationAbilityCost = "ability.cost"

	// RelationDeliveryAmount is a change of a delivery's PX amount.
	RelationDeliveryAmount = "delivery.amount"

	// RelationEventConfig is a change of event settings such as px_start.
	RelationEventConfig = "event.config"
)

// characterScoped lists relations whose change affects only the characters
// named in the signal.
var characterScoped = map[string]bool{
	store.EdgeAbilityCharacters.Relation:  true,
	store.EdgeDeliveryCharacters.Relation: true,
	RelationCharacterOptions:              true,
	RelationDeliveryAmount:                true,
}

// Change signals that a relationship of an event's data was mutated.
type Change struct {
	// Relation names the mutated relationship, e.g. "modifier.abilities".
	Relation string

	// EventID is the event whose data changed.
	EventID int64

	// CharacterIDs lists the affected characters of a character-scoped
	// relation. Ignored for every other relation.
	CharacterIDs []int64
}

// CharacterScoped reports whether the change affects only CharacterIDs.
// Every other change affects the whole roster of the event.
func (c Change) CharacterScoped() bool {
	return characterScoped[c.Relation]
}

// Listener observes changes. Notify calls listeners before scheduling
// recomputes; a recompute that grants or revokes free abilities calls them
// afterwards with an ability.characters change.
type Listener func(Change)
