package settings

import (
	"context"
	"errors"
	"maps"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pxengine/internal/model"
	"github.com/roach88/pxengine/internal/store"
)

// countingBackend is an in-memory Backend that counts reads.
type countingBackend struct {
	rows  map[model.Ref]map[string]string
	reads int
	fail  error
}

func newCountingBackend() *countingBackend {
	return &countingBackend{rows: make(map[model.Ref]map[string]string)}
}

func (b *countingBackend) Settings(_ context.Context, ref model.Ref) (map[string]string, error) {
	b.reads++
	if b.fail != nil {
		return nil, b.fail
	}
	return maps.Clone(b.rows[ref]), nil
}

func (b *countingBackend) SaveSettings(_ context.Context, ref model.Ref, values map[string]string) error {
	if b.fail != nil {
		return b.fail
	}
	if b.rows[ref] == nil {
		b.rows[ref] = make(map[string]string)
	}
	maps.Copy(b.rows[ref], values)
	return nil
}

func TestService_CachesReads(t *testing.T) {
	backend := newCountingBackend()
	backend.rows[model.EventRef(1)] = map[string]string{KeyPXStart: "10"}
	svc := New(backend)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		n, ok, err := svc.Int(ctx, model.EventRef(1), KeyPXStart)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(10), n)
	}
	assert.Equal(t, 1, backend.reads)

	svc.Invalidate(model.EventRef(1))
	_, _, err := svc.Get(ctx, model.EventRef(1), KeyPXStart)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.reads)
}

func TestService_WriteRefreshesCache(t *testing.T) {
	backend := newCountingBackend()
	svc := New(backend)
	ctx := context.Background()
	ref := model.CharacterRef(3)

	_, ok, err := svc.Get(ctx, ref, KeyPXAvailable)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.SaveAll(ctx, ref, map[string]string{
		KeyPXTotal:     "10",
		KeyPXAvailable: "4",
	}))

	v, ok, err := svc.Get(ctx, ref, KeyPXAvailable)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "4", v)
	assert.Equal(t, 1, backend.reads, "write refreshes the cached entry")
}

func TestService_BackendError(t *testing.T) {
	backend := newCountingBackend()
	backend.fail = errors.New("disk on fire")
	svc := New(backend)

	_, _, err := svc.Get(context.Background(), model.EventRef(1), KeyPXStart)
	assert.ErrorIs(t, err, backend.fail)

	err = svc.Save(context.Background(), model.EventRef(1), KeyPXStart, "1")
	assert.ErrorIs(t, err, backend.fail)
}

func TestService_TypedHelpers(t *testing.T) {
	backend := newCountingBackend()
	ref := model.CharacterRef(1)
	backend.rows[ref] = map[string]string{
		"flag":           "True",
		"ratio":          "2.50",
		KeyFreeAbilities: "[3,1,2]",
		"bad_int":        "x",
	}
	svc := New(backend)
	ctx := context.Background()

	b, ok, err := svc.Bool(ctx, ref, "flag")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, b)

	d, ok, err := svc.Decimal(ctx, ref, "ratio")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2.50", d.String())

	ids, ok, err := svc.IDList(ctx, ref, KeyFreeAbilities)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int64{1, 2, 3}, ids.Sorted())

	ids, ok, err = svc.IDList(ctx, ref, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotNil(t, ids)

	_, _, err = svc.Int(ctx, ref, "bad_int")
	assert.Error(t, err)
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "True", FormatBool(true))
	assert.Equal(t, "False", FormatBool(false))
	assert.Equal(t, "-5", FormatInt(-5))
	assert.Equal(t, "[1,4]", FormatIDList(model.NewIDSet(4, 1)))
	assert.Equal(t, "[]", FormatIDList(nil))

	_, err := ParseBool("maybe")
	assert.Error(t, err)
}

func TestService_OverStore(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	svc := New(st)
	ctx := context.Background()
	ref := model.CharacterRef(9)

	require.NoError(t, svc.SaveAll(ctx, ref, map[string]string{KeyPXTotal: "7", KeyPXUsed: "2"}))

	// A fresh service sees the persisted rows.
	fresh := New(st)
	n, ok, err := fresh.Int(ctx, ref, KeyPXUsed)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(2), n)
}
