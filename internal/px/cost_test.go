package px

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pxengine/internal/model"
)

func testEvent(features ...string) model.Event {
	return model.Event{ID: 1, Slug: "test", Features: features}
}

func TestEffectiveCost_FirstModifierWins(t *testing.T) {
	x := model.Ability{ID: 5, Name: "X", Cost: 20, Visible: true}
	cat := model.NewCatalog(testEvent(model.FeaturePX, model.FeatureModifiers),
		[]model.Ability{x},
		[]model.Modifier{
			{ID: 1, Order: 1, Cost: 10, Abilities: model.NewIDSet(5), Prerequisites: model.NewIDSet(2)},
			{ID: 2, Order: 2, Cost: 3, Abilities: model.NewIDSet(5)},
		},
		nil, nil)
	idx := IndexModifiers(cat)

	both := BuildContext(1, model.NewIDSet(2), model.NewIDSet(), idx)
	assert.Equal(t, int64(10), EffectiveCost(x, both), "both hold, first in order wins")

	second := BuildContext(1, model.NewIDSet(), model.NewIDSet(), idx)
	assert.Equal(t, int64(3), EffectiveCost(x, second))

	assert.Equal(t, int64(20), x.Cost, "base cost is never mutated")
}

func TestEffectiveCost_SkipsUnmetThenFirstSatisfied(t *testing.T) {
	x := model.Ability{ID: 5, Name: "X", Cost: 100, Visible: true}
	cat := model.NewCatalog(testEvent(model.FeaturePX, model.FeatureModifiers),
		[]model.Ability{x},
		[]model.Modifier{
			{ID: 1, Order: 1, Cost: 30, Abilities: model.NewIDSet(5), Prerequisites: model.NewIDSet(7)},
			{ID: 2, Order: 2, Cost: 50, Abilities: model.NewIDSet(5)},
			{ID: 3, Order: 3, Cost: 70, Abilities: model.NewIDSet(5)},
		},
		nil, nil)

	pc := BuildContext(1, model.NewIDSet(), model.NewIDSet(), IndexModifiers(cat))
	assert.Equal(t, int64(50), EffectiveCost(x, pc), "unmet first modifier is skipped, next satisfied one wins")
}

func TestEffectiveCost_BaseWhenNoneMatch(t *testing.T) {
	x := model.Ability{ID: 5, Cost: 20}
	cat := model.NewCatalog(testEvent(model.FeatureModifiers),
		[]model.Ability{x},
		[]model.Modifier{
			{ID: 1, Cost: 1, Abilities: model.NewIDSet(5), Requirements: model.NewIDSet(99)},
		},
		nil, nil)

	pc := BuildContext(1, model.NewIDSet(), model.NewIDSet(10), IndexModifiers(cat))
	assert.Equal(t, int64(20), EffectiveCost(x, pc))
}

func TestIndexModifiers(t *testing.T) {
	mods := []model.Modifier{
		{ID: 1, Cost: 1, Abilities: model.NewIDSet(5, 6)},
		{ID: 2, Cost: 2}, // targets nothing
	}

	idx := IndexModifiers(model.NewCatalog(testEvent(model.FeatureModifiers), nil, mods, nil, nil))
	require.Len(t, idx[5], 1)
	require.Len(t, idx[6], 1)
	assert.Len(t, idx, 2)

	disabled := IndexModifiers(model.NewCatalog(testEvent(model.FeaturePX), nil, mods, nil, nil))
	assert.Empty(t, disabled, "modifiers feature off")
}

func TestOffers_EndToEndScenario(t *testing.T) {
	// Owns {1,2}, selected option {10}. X needs {1} and {10}, costs 20;
	// a modifier with prerequisite {2} drops it to 10, within a budget of 15.
	abilities := []model.Ability{
		{ID: 1, Name: "One", Cost: 1, Visible: true},
		{ID: 2, Name: "Two", Cost: 1, Visible: true},
		{ID: 3, Name: "X", Cost: 20, Visible: true, Prerequisites: model.NewIDSet(1), Requirements: model.NewIDSet(10)},
	}
	modifier := model.Modifier{ID: 1, Cost: 10, Abilities: model.NewIDSet(3), Prerequisites: model.NewIDSet(2)}

	cat := model.NewCatalog(testEvent(model.FeaturePX, model.FeatureModifiers), abilities, []model.Modifier{modifier}, nil, nil)
	pc := BuildContext(1, model.NewIDSet(1, 2), model.NewIDSet(10), IndexModifiers(cat))

	offers := Offers(cat, pc, 15)
	require.Len(t, offers, 1)
	assert.Equal(t, int64(3), offers[0].Ability.ID)
	assert.Equal(t, int64(10), offers[0].Cost)
	assert.Equal(t, int64(20), offers[0].Ability.Cost)

	noMods := model.NewCatalog(testEvent(model.FeaturePX), abilities, []model.Modifier{modifier}, nil, nil)
	pc = BuildContext(1, model.NewIDSet(1, 2), model.NewIDSet(10), IndexModifiers(noMods))
	assert.Empty(t, Offers(noMods, pc, 15), "base cost 20 exceeds the budget")
}

func TestOffers_Filters(t *testing.T) {
	abilities := []model.Ability{
		{ID: 1, Name: "Owned", Visible: true},
		{ID: 2, Name: "Hidden", Visible: false},
		{ID: 3, Name: "Locked", Visible: true, Prerequisites: model.NewIDSet(9)},
		{ID: 4, Name: "Gated", Visible: true, Requirements: model.NewIDSet(50)},
		{ID: 5, Name: "Pricey", Visible: true, Cost: 6},
		{ID: 6, Name: "Ok", Visible: true, Cost: 5},
	}
	cat := model.NewCatalog(testEvent(model.FeaturePX), abilities, nil, nil, nil)
	pc := BuildContext(1, model.NewIDSet(1), model.NewIDSet(), nil)

	offers := Offers(cat, pc, 5)
	require.Len(t, offers, 1)
	assert.Equal(t, "Ok", offers[0].Ability.Name)
}

func TestOffers_OrderedByName(t *testing.T) {
	abilities := []model.Ability{
		{ID: 4, Name: "cherry", Visible: true},
		{ID: 3, Name: "banana", Visible: true},
		{ID: 1, Name: "Apple", Visible: true},
		{ID: 2, Name: "banana", Visible: true},
	}
	cat := model.NewCatalog(testEvent(model.FeaturePX), abilities, nil, nil, nil)
	pc := BuildContext(1, model.NewIDSet(), model.NewIDSet(), nil)

	var ids []int64
	for _, o := range Offers(cat, pc, 0) {
		ids = append(ids, o.Ability.ID)
	}
	assert.Equal(t, []int64{1, 2, 3, 4}, ids)
}

func TestDependentClosure(t *testing.T) {
	// 1 <- 2 <- 3, 4 independent, 5 needs {3, 4}, 6 needs 1 but is not owned.
	abilities := []model.Ability{
		{ID: 1},
		{ID: 2, Prerequisites: model.NewIDSet(1)},
		{ID: 3, Prerequisites: model.NewIDSet(2)},
		{ID: 4},
		{ID: 5, Prerequisites: model.NewIDSet(3, 4)},
		{ID: 6, Prerequisites: model.NewIDSet(1)},
	}
	cat := model.NewCatalog(testEvent(), abilities, nil, nil, nil)
	owned := model.NewIDSet(1, 2, 3, 4, 5)

	assert.Equal(t, []int64{1, 2, 3, 5}, DependentClosure(cat, owned, 1).Sorted())
	assert.Equal(t, []int64{4, 5}, DependentClosure(cat, owned, 4).Sorted())
	assert.Equal(t, []int64{5}, DependentClosure(cat, owned, 5).Sorted())
}

func TestDependentClosure_Cycle(t *testing.T) {
	abilities := []model.Ability{
		{ID: 1, Prerequisites: model.NewIDSet(2)},
		{ID: 2, Prerequisites: model.NewIDSet(1)},
	}
	cat := model.NewCatalog(testEvent(), abilities, nil, nil, nil)

	assert.Equal(t, []int64{1, 2}, DependentClosure(cat, model.NewIDSet(1, 2), 1).Sorted())
}
