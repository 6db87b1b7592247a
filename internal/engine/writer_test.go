package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pxengine/internal/model"
	"github.com/roach88/pxengine/internal/px"
	"github.com/roach88/pxengine/internal/settings"
	"github.com/roach88/pxengine/internal/store"
	"github.com/roach88/pxengine/internal/testutil"
)

type writerFixture struct {
	t     *testing.T
	ctx   context.Context
	st    *store.Store
	cfg   *settings.Service
	w     *Writer
	event int64
}

func newWriterFixture(t *testing.T) *writerFixture {
	t.Helper()
	ctx := context.Background()
	st := testutil.OpenStore(t)
	cfg := settings.New(st)

	ev, err := st.CreateEvent(ctx, model.Event{
		Slug:     "larp",
		Name:     "Larp",
		Features: []string{model.FeaturePX, model.FeatureModifiers},
	})
	require.NoError(t, err)

	calc := px.New(st, cfg)
	eng := New(calc, st,
		WithSequencer(testutil.NewDeterministicClock()),
		WithIDGenerator(testutil.NewSequenceIDGenerator("job")),
	)
	return &writerFixture{t: t, ctx: ctx, st: st, cfg: cfg, w: NewWriter(st, cfg, calc, eng), event: ev}
}

func (f *writerFixture) character(name string) int64 {
	f.t.Helper()
	id, err := f.st.CreateCharacter(f.ctx, model.Character{EventID: f.event, Name: name})
	require.NoError(f.t, err)
	return id
}

func (f *writerFixture) ability(name string, cost int64) int64 {
	f.t.Helper()
	id, err := f.st.CreateAbility(f.ctx, model.Ability{EventID: f.event, Name: name, Cost: cost, Visible: true})
	require.NoError(f.t, err)
	return id
}

func (f *writerFixture) dependent(name string, cost int64, prerequisites ...int64) int64 {
	f.t.Helper()
	id, err := f.st.CreateAbility(f.ctx, model.Ability{
		EventID: f.event, Name: name, Cost: cost, Visible: true,
		Prerequisites: model.NewIDSet(prerequisites...),
	})
	require.NoError(f.t, err)
	return id
}

func (f *writerFixture) owned(character int64) []int64 {
	f.t.Helper()
	owned, err := f.st.CharacterAbilities(f.ctx, character)
	require.NoError(f.t, err)
	return owned.Sorted()
}

func (f *writerFixture) setting(character int64, key string) string {
	f.t.Helper()
	v, _, err := f.st.Setting(f.ctx, model.CharacterRef(character), key)
	require.NoError(f.t, err)
	return v
}

func TestWriter_GrantUpdatesAggregates(t *testing.T) {
	f := newWriterFixture(t)
	ch := f.character("Aria")
	a := f.ability("A", 3)

	_, err := f.w.CreateDelivery(f.ctx, model.Delivery{
		EventID: f.event, Name: "session 1", Amount: 10, Characters: model.NewIDSet(ch),
	})
	require.NoError(t, err)
	assert.Equal(t, "10", f.setting(ch, settings.KeyPXAvailable))

	require.NoError(t, f.w.GrantAbilities(f.ctx, ch, model.NewIDSet(a)))
	assert.Equal(t, "3", f.setting(ch, settings.KeyPXUsed))
	assert.Equal(t, "7", f.setting(ch, settings.KeyPXAvailable))

	removed, err := f.w.RevokeAbilities(f.ctx, ch, model.NewIDSet(a))
	require.NoError(t, err)
	assert.Equal(t, []int64{a}, removed.Sorted())
	assert.Equal(t, "0", f.setting(ch, settings.KeyPXUsed))
}

func TestWriter_RevokeRemovesDependents(t *testing.T) {
	f := newWriterFixture(t)
	ch := f.character("Aria")
	a := f.ability("A", 3)
	b := f.dependent("B", 4, a)
	c := f.dependent("C", 1, b)
	other := f.ability("Other", 2)

	require.NoError(t, f.w.GrantAbilities(f.ctx, ch, model.NewIDSet(a, b, c, other)))
	assert.Equal(t, "10", f.setting(ch, settings.KeyPXUsed))

	removed, err := f.w.RevokeAbilities(f.ctx, ch, model.NewIDSet(a))
	require.NoError(t, err)
	assert.Equal(t, []int64{a, b, c}, removed.Sorted())
	assert.Equal(t, []int64{other}, f.owned(ch))
	assert.Equal(t, "2", f.setting(ch, settings.KeyPXUsed))
}

func TestWriter_CharacterEdgesCascade(t *testing.T) {
	f := newWriterFixture(t)
	c1 := f.character("Aria")
	c2 := f.character("Bram")
	a := f.ability("A", 3)
	b := f.dependent("B", 4, a)

	require.NoError(t, f.w.AddEdges(f.ctx, store.EdgeAbilityCharacters, a, model.NewIDSet(c1, c2)))
	require.NoError(t, f.w.AddEdges(f.ctx, store.EdgeAbilityCharacters, b, model.NewIDSet(c1, c2)))
	assert.Equal(t, "7", f.setting(c1, settings.KeyPXUsed))

	require.NoError(t, f.w.RemoveEdges(f.ctx, store.EdgeAbilityCharacters, a, model.NewIDSet(c1)))
	assert.Empty(t, f.owned(c1), "dependent leaves with its prerequisite")
	assert.Equal(t, "0", f.setting(c1, settings.KeyPXUsed))
	assert.Equal(t, []int64{a, b}, f.owned(c2))

	require.NoError(t, f.w.SetEdges(f.ctx, store.EdgeAbilityCharacters, a, model.NewIDSet(c1)))
	assert.Equal(t, []int64{a}, f.owned(c1))
	assert.Empty(t, f.owned(c2))
	assert.Equal(t, "3", f.setting(c1, settings.KeyPXUsed))
	assert.Equal(t, "0", f.setting(c2, settings.KeyPXUsed))
}

func TestWriter_PurchaseAndRefundAnnounce(t *testing.T) {
	f := newWriterFixture(t)
	ch := f.character("Aria")
	a := f.ability("A", 3)
	require.NoError(t, f.w.SetStartingPX(f.ctx, f.event, 10))

	var changes []Change
	f.w.engine.OnChange(func(c Change) { changes = append(changes, c) })

	sum, err := f.w.Purchase(f.ctx, ch, a)
	require.NoError(t, err)
	assert.Equal(t, int64(3), sum.Used)
	require.Len(t, changes, 1)
	assert.Equal(t, Change{
		Relation:     store.EdgeAbilityCharacters.Relation,
		EventID:      f.event,
		CharacterIDs: []int64{ch},
	}, changes[0])

	removed, _, err := f.w.Refund(f.ctx, ch, a)
	require.NoError(t, err)
	assert.Equal(t, []int64{a}, removed.Sorted())
	require.Len(t, changes, 2)
	assert.Equal(t, store.EdgeAbilityCharacters.Relation, changes[1].Relation)

	_, _, err = f.w.Refund(f.ctx, ch, a)
	code, _ := px.CodeOf(err)
	assert.Equal(t, px.ErrCodeAbilityNotOwned, code)
	assert.Len(t, changes, 2, "a refused refund is not announced")
}

func TestWriter_ModifierChangeRecomputesEvent(t *testing.T) {
	f := newWriterFixture(t)
	c1 := f.character("Aria")
	c2 := f.character("Bram")
	a := f.ability("A", 5)
	require.NoError(t, f.st.AddCharacterAbilities(f.ctx, c1, model.NewIDSet(a)))
	require.NoError(t, f.st.AddCharacterAbilities(f.ctx, c2, model.NewIDSet(a)))

	mod, err := f.st.CreateModifier(f.ctx, model.Modifier{EventID: f.event, Name: "discount", Cost: 2})
	require.NoError(t, err)

	require.NoError(t, f.w.AddEdges(f.ctx, store.EdgeModifierAbilities, mod, model.NewIDSet(a)))
	assert.Equal(t, "2", f.setting(c1, settings.KeyPXUsed))
	assert.Equal(t, "2", f.setting(c2, settings.KeyPXUsed))

	require.NoError(t, f.w.UpdateAbilityCost(f.ctx, a, 9))
	assert.Equal(t, "2", f.setting(c1, settings.KeyPXUsed), "modifier still overrides the base cost")

	require.NoError(t, f.w.RemoveEdges(f.ctx, store.EdgeModifierAbilities, mod, model.NewIDSet(a)))
	assert.Equal(t, "9", f.setting(c2, settings.KeyPXUsed))
}

func TestWriter_SetEdgesRecomputesFormerRecipients(t *testing.T) {
	f := newWriterFixture(t)
	c1 := f.character("Aria")
	c2 := f.character("Bram")

	d, err := f.w.CreateDelivery(f.ctx, model.Delivery{
		EventID: f.event, Name: "session 1", Amount: 4, Characters: model.NewIDSet(c1),
	})
	require.NoError(t, err)
	assert.Equal(t, "4", f.setting(c1, settings.KeyPXTotal))

	require.NoError(t, f.w.SetEdges(f.ctx, store.EdgeDeliveryCharacters, d, model.NewIDSet(c2)))
	assert.Equal(t, "0", f.setting(c1, settings.KeyPXTotal), "removed recipient recomputed")
	assert.Equal(t, "4", f.setting(c2, settings.KeyPXTotal))

	require.NoError(t, f.w.UpdateDeliveryAmount(f.ctx, d, 6))
	assert.Equal(t, "6", f.setting(c2, settings.KeyPXTotal))
}

func TestWriter_StartingPXRecomputesEvent(t *testing.T) {
	f := newWriterFixture(t)
	ch := f.character("Aria")

	require.NoError(t, f.w.SetStartingPX(f.ctx, f.event, 12))
	assert.Equal(t, "12", f.setting(ch, settings.KeyPXTotal))
}

func TestWriter_UnknownCharacter(t *testing.T) {
	f := newWriterFixture(t)
	err := f.w.GrantAbilities(f.ctx, 404, model.NewIDSet(1))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestWriter_AnnouncesFreeGrants(t *testing.T) {
	f := newWriterFixture(t)
	ch := f.character("Aria")
	free := f.ability("Free", 0)

	var changes []Change
	f.w.engine.OnChange(func(c Change) { changes = append(changes, c) })

	require.NoError(t, f.w.SetStartingPX(f.ctx, f.event, 1))

	require.Len(t, changes, 2)
	assert.Equal(t, RelationEventConfig, changes[0].Relation)
	assert.Equal(t, store.EdgeAbilityCharacters.Relation, changes[1].Relation)
	assert.Equal(t, []int64{ch}, changes[1].CharacterIDs)

	owned, err := f.st.CharacterAbilities(f.ctx, ch)
	require.NoError(t, err)
	assert.True(t, owned.Has(free))
}
