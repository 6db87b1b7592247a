package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_PurchaseAndRefund(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/purchase_and_refund.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRunWithGolden_FreeAbilitiesAsync(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/free_abilities_async.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestMarshalSnapshot_Stable(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/free_abilities_async.yaml")
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := MarshalSnapshot(s.Name, first)
	require.NoError(t, err)
	b, err := MarshalSnapshot(s.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}
