package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const harnessScenarios = "../harness/testdata/scenarios"

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := execute(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenarios directory not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandEmptyDir(t *testing.T) {
	out, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommandHarnessScenarios(t *testing.T) {
	out, err := execute(t, "test", harnessScenarios, "--golden", "../harness/testdata/golden", "--format", "json")
	require.NoError(t, err, out)

	res := decode[TestResult](t, out).Data
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.Passed)
	for _, sr := range res.Scenarios {
		assert.Equal(t, "match", sr.Golden, sr.Name)
	}
}

func TestTestCommandFilter(t *testing.T) {
	out, err := execute(t, "test", harnessScenarios, "--filter", "purchase_*", "--format", "json")
	require.NoError(t, err, out)

	res := decode[TestResult](t, out).Data
	require.Len(t, res.Scenarios, 1)
	assert.Equal(t, "purchase_and_refund", res.Scenarios[0].Name)
	// No golden directory next to the scenarios.
	assert.Equal(t, "missing", res.Scenarios[0].Golden)
}

func TestTestCommandUpdateGolden(t *testing.T) {
	dir := t.TempDir()
	data, err := os.ReadFile(filepath.Join(harnessScenarios, "purchase_and_refund.yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "purchase_and_refund.yaml"), data, 0o644))

	out, err := execute(t, "test", dir, "--update")
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ purchase_and_refund (golden updated)")
	assert.FileExists(t, filepath.Join(dir, "golden", "purchase_and_refund.golden"))

	out, err = execute(t, "test", dir, "--format", "json")
	require.NoError(t, err, out)
	assert.Equal(t, "match", decode[TestResult](t, out).Data.Scenarios[0].Golden)

	// A tampered golden file fails the run.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "purchase_and_refund.golden"), []byte("{}\n"), 0o644))
	out, err = execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "snapshot does not match golden file")
}

func TestTestCommandFailingAssertion(t *testing.T) {
	dir := t.TempDir()
	scenario := `name: wrong_total
description: "Starting PX alone makes the total"
catalog:
  event:
    slug: tiny
    name: Tiny
    features: [px]
    px_start: 3
  characters:
    - key: aria
      name: Aria
steps:
  - action: recompute
    character: aria
assertions:
  - character: aria
    px_tot: 4
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong_total.yaml"), []byte(scenario), 0o644))

	out, err := execute(t, "test", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	env := decode[TestResult](t, out)
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, "E_TEST_FAILED", env.Error.Code)
	require.Len(t, env.Data.Scenarios, 1)
	assert.False(t, env.Data.Scenarios[0].Pass)
	assert.Contains(t, env.Data.Scenarios[0].Errors[0], "px_tot = 3, want 4")
}

func TestFindScenarioFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.yml", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("name: x\n"), 0o644))
	}

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.yml"), filepath.Join(dir, "b.yaml")}, files)

	_, err = findScenarioFiles(dir, "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}
