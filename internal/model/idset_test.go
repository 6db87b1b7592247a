package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDSet_SubsetOf(t *testing.T) {
	owned := NewIDSet(1, 2, 3)

	assert.True(t, NewIDSet().SubsetOf(owned), "empty set is a subset of anything")
	assert.True(t, IDSet(nil).SubsetOf(owned), "nil set behaves as empty")
	assert.True(t, NewIDSet(1, 3).SubsetOf(owned))
	assert.False(t, NewIDSet(1, 4).SubsetOf(owned))
	assert.False(t, NewIDSet(1).SubsetOf(nil))
}

func TestIDSet_Intersects(t *testing.T) {
	owned := NewIDSet(1, 2)

	assert.True(t, NewIDSet(2, 9).Intersects(owned))
	assert.False(t, NewIDSet(7, 9).Intersects(owned))
	assert.False(t, NewIDSet().Intersects(owned))
	assert.False(t, owned.Intersects(nil))
}

func TestIDSet_UnionAndClone(t *testing.T) {
	a := NewIDSet(1, 2)
	b := NewIDSet(2, 3)

	u := a.Union(b)
	assert.Equal(t, []int64{1, 2, 3}, u.Sorted())

	c := a.Clone()
	c.Add(10)
	assert.False(t, a.Has(10), "clone must not share storage")
}

func TestIDSet_Sorted_NonNil(t *testing.T) {
	var s IDSet
	got := s.Sorted()
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestIDSet_JSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(NewIDSet(5, 1, 3))
	require.NoError(t, err)
	assert.Equal(t, "[1,3,5]", string(data))

	var back IDSet
	require.NoError(t, json.Unmarshal([]byte("[4,2]"), &back))
	assert.True(t, back.Has(2))
	assert.True(t, back.Has(4))
	assert.Equal(t, 2, back.Len())
}

func TestParseOperation(t *testing.T) {
	tests := []struct {
		in   string
		want Operation
	}{
		{"ADD", OpAdd},
		{"SUBTRACTION", OpSub},
		{"MUL", OpMul},
		{"DIVISION", OpDiv},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOperation(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseOperation("POW")
	assert.Error(t, err)
}

func TestEvent_HasFeature(t *testing.T) {
	ev := Event{Features: []string{FeaturePX}}
	assert.True(t, ev.HasFeature(FeaturePX))
	assert.False(t, ev.HasFeature(FeatureModifiers))
}
