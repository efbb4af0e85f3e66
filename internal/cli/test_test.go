package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// copyScenario copies a scenario from the harness testdata into a fresh dir.
func copyScenario(t *testing.T, name string) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(mustRead(t, filepath.Join(scenariosDir, name))), 0o644))
	return dir, path
}

func TestTest_AllScenariosPass(t *testing.T) {
	resp, err := runJSON(t, "test", scenariosDir)
	require.NoError(t, err)

	var result TestResult
	decodeData(t, resp, &result)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 3, result.Passed)
	assert.Zero(t, result.Failed)
	for _, s := range result.Scenarios {
		assert.True(t, s.Pass, "%s: %v", s.Name, s.Errors)
	}
}

func TestTest_Filter(t *testing.T) {
	out, _, err := run(t, "test", scenariosDir, "--filter", "record_*")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ record_outcomes")
	assert.NotContains(t, out, "range_error")
	assert.Contains(t, out, "2 passed, 0 failed, 2 total")
}

func TestTest_SingleFile(t *testing.T) {
	out, _, err := run(t, "test", filepath.Join(scenariosDir, "range_error.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ range_error")
}

func TestTest_GoldenLifecycle(t *testing.T) {
	dir, _ := copyScenario(t, "record_outcomes.yaml")
	golden := filepath.Join(dir, "golden", "record_outcomes.golden")

	out, _, err := run(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ record_outcomes (golden updated)")
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name":"record_outcomes"`)

	resp, err := runJSON(t, "test", dir)
	require.NoError(t, err)
	var result TestResult
	decodeData(t, resp, &result)
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, "match", result.Scenarios[0].Golden)

	require.NoError(t, os.WriteFile(golden, []byte(`{"scenario_name":"stale"}`), 0o644))
	out, _, err = run(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ record_outcomes")
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTest_FailingScenario(t *testing.T) {
	path := writeFile(t, "bad.yaml", `name: bad
description: expects a failure from a call that succeeds
contract: EthiopianNationalityVerification
flow:
  - invoke: test_verification
    expect:
      error: RANGE_ERROR
assertions:
  - type: replay
`)
	out, _, err := run(t, "test", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ bad")
	assert.Contains(t, out, "0 passed, 1 failed, 1 total")
}

func TestTest_LoadError(t *testing.T) {
	path := writeFile(t, "broken.yaml", "name: broken\nunknown_key: 1\n")
	resp, err := runJSON(t, "test", path)
	require.Error(t, err)

	var result TestResult
	decodeData(t, resp, &result)
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, "broken.yaml", result.Scenarios[0].Name)
	assert.Contains(t, result.Scenarios[0].Errors[0], "failed to load scenario")
}

func TestTest_MissingPath(t *testing.T) {
	resp, err := runJSON(t, "test", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}
