package relindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pxengine/internal/catalog"
	"github.com/roach88/pxengine/internal/engine"
	"github.com/roach88/pxengine/internal/model"
	"github.com/roach88/pxengine/internal/px"
	"github.com/roach88/pxengine/internal/settings"
	"github.com/roach88/pxengine/internal/store"
	"github.com/roach88/pxengine/internal/testutil"
)

func importFixture(t *testing.T) (*store.Store, *catalog.Keys) {
	t.Helper()
	st := testutil.OpenStore(t)
	f := &catalog.File{
		Event: catalog.Event{Slug: "ev", Name: "Ev", Features: []string{model.FeaturePX, model.FeatureModifiers}},
		Questions: []catalog.Question{
			{Key: "class", Name: "Class", Type: "single", Options: []catalog.Option{{Key: "mage", Name: "Mage"}}},
			{Key: "mana", Name: "Mana", Type: "computed"},
		},
		Abilities: []catalog.Ability{
			{Key: "zap", Name: "Zap", Cost: 2},
			{Key: "bolt", Name: "Bolt", Cost: 3, Prerequisites: []string{"zap"}, Requirements: []string{"class.mage"}},
			{Key: "ember", Name: "Ember", Cost: 1},
		},
		Modifiers: []catalog.Modifier{
			{Key: "m", Name: "Adept", Cost: 1, Abilities: []string{"bolt"}, Prerequisites: []string{"zap", "ember"}},
		},
		Rules: []catalog.Rule{
			{Key: "r", Name: "Mana per bolt", Field: "mana", Operation: "ADD", Amount: "2", Abilities: []string{"bolt"}},
		},
		Characters: []catalog.Character{
			{Key: "zed", Name: "Zed", Abilities: []string{"zap"}},
			{Key: "aria", Name: "Aria", Abilities: []string{"zap"}},
		},
		Deliveries: []catalog.Delivery{
			{Key: "d", Name: "Session", Amount: 3, Characters: []string{"zed", "aria"}},
		},
	}
	keys, err := catalog.Import(context.Background(), st, f)
	require.NoError(t, err)
	return st, keys
}

func TestIndex_Listing(t *testing.T) {
	st, keys := importFixture(t)
	x := New(st)

	l, err := x.Get(context.Background(), keys.EventID)
	require.NoError(t, err)

	require.Len(t, l.Abilities, 3)
	bolt := l.Abilities[0]
	assert.Equal(t, "Bolt", bolt.Name, "catalog order is by name")
	assert.Equal(t, []string{"Zap"}, bolt.Prerequisites)
	assert.Equal(t, []string{"Mage"}, bolt.Requirements)
	assert.Empty(t, bolt.Characters)
	require.NotNil(t, bolt.Characters)

	zap := l.Abilities[2]
	assert.Equal(t, []string{"Aria", "Zed"}, zap.Characters, "names sorted")

	require.Len(t, l.Deliveries, 1)
	assert.Equal(t, []string{"Aria", "Zed"}, l.Deliveries[0].Characters)

	require.Len(t, l.Modifiers, 1)
	assert.Equal(t, []string{"Bolt"}, l.Modifiers[0].Abilities)
	assert.Equal(t, []string{"Ember", "Zap"}, l.Modifiers[0].Prerequisites)

	require.Len(t, l.Rules, 1)
	assert.Equal(t, "Mana", l.Rules[0].Field)
	assert.Equal(t, []string{"Bolt"}, l.Rules[0].Abilities)
}

func TestIndex_CachesUntilChange(t *testing.T) {
	ctx := context.Background()
	st, keys := importFixture(t)
	cfg := settings.New(st)
	calc := px.New(st, cfg)
	eng := engine.New(calc, st)
	w := engine.NewWriter(st, cfg, calc, eng)

	x := New(st)
	x.Attach(eng)

	_, err := x.Get(ctx, keys.EventID)
	require.NoError(t, err)
	_, err = x.Get(ctx, keys.EventID)
	require.NoError(t, err)
	assert.Equal(t, 1, x.Builds())

	require.NoError(t, w.GrantAbilities(ctx, keys.Characters["aria"], model.NewIDSet(keys.Abilities["ember"])))

	l, err := x.Get(ctx, keys.EventID)
	require.NoError(t, err)
	assert.Equal(t, 2, x.Builds())
	assert.Equal(t, []string{"Aria"}, l.Abilities[1].Characters)
}

func TestIndex_InvalidateOtherEvent(t *testing.T) {
	ctx := context.Background()
	st, keys := importFixture(t)
	x := New(st)

	_, err := x.Get(ctx, keys.EventID)
	require.NoError(t, err)
	x.Invalidate(keys.EventID + 1)
	_, err = x.Get(ctx, keys.EventID)
	require.NoError(t, err)
	assert.Equal(t, 1, x.Builds())
}

func TestIndex_UnknownEvent(t *testing.T) {
	x := New(testutil.OpenStore(t))
	_, err := x.Get(context.Background(), 99)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
