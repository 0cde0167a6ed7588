package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenariosDir = "../../testdata/scenarios"

const inlineScenario = `
name: ramp
description: "Level follows t"
source: |
  schema: {level: num}
  controls: {level: t * 2}
frames:
  - frame: 0
  - frame: 30
assertions:
  - type: no_errors
`

func TestTest_Scenarios(t *testing.T) {
	stdout, _, err := execute(t, "test", scenariosDir)
	require.NoError(t, err, stdout)
	assert.Contains(t, stdout, "✓ gate")
	assert.Contains(t, stdout, "✓ pulse")
	assert.Contains(t, stdout, "✓ spring")
	assert.Contains(t, stdout, "Test Summary: 3 passed, 0 failed, 3 total")
}

func TestTest_Filter(t *testing.T) {
	stdout, _, err := execute(t, "--format", "json", "test", scenariosDir, "--filter", "sp*")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "spring", resp.Data.Scenarios[0].Name)
}

func TestTest_UpdateThenCompare(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ramp.yaml"), []byte(inlineScenario), 0o644))

	stdout, _, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ ramp (golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "ramp.golden"))
	require.NoError(t, err)
	assert.Equal(t, `{"run_token":"test-run-default","scenario_name":"ramp"}
{"frame":0,"seq":1,"values":{"level":0}}
{"frame":30,"seq":2,"values":{"level":2}}
`, string(golden))

	_, _, err = execute(t, "test", dir)
	require.NoError(t, err)

	// A stale golden fails the scenario even though its assertions pass.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "ramp.golden"), []byte("{}\n"), 0o644))
	stdout, _, err = execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "trace does not match golden file")
}

func TestTest_Failures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: [unclosed"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte(`
name: wrong
description: "Asserts the wrong value"
source: |
  schema: {level: num}
  controls: {level: 1}
frames: [{frame: 0}]
assertions:
  - {type: value, seq: 1, path: level, equals: 2}
`), 0o644))

	stdout, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ broken")
	assert.Contains(t, stdout, ErrCodeInvalidTest)
	assert.Contains(t, stdout, "✗ wrong")
	assert.Contains(t, stdout, "Test Summary: 0 passed, 2 failed, 2 total")
}

func TestTest_CommandErrors(t *testing.T) {
	_, _, err := execute(t, "test", "does-not-exist")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = execute(t, "test", scenariosDir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTest_NoScenarios(t *testing.T) {
	stdout, _, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, stdout, "No scenarios found.")
}
