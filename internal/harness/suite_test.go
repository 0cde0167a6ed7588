package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindScenarios(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.yaml", "")
	writeFile(t, dir, "a.yml", "")
	writeFile(t, dir, "nested/c.yaml", "")
	writeFile(t, dir, "notes.txt", "")

	paths, err := FindScenarios(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yml"),
		filepath.Join(dir, "b.yaml"),
		filepath.Join(dir, "nested/c.yaml"),
	}, paths)

	single, err := FindScenarios(filepath.Join(dir, "b.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "b.yaml")}, single)
}

func TestFindScenarios_Missing(t *testing.T) {
	_, err := FindScenarios(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)

	var notFound *ScenarioNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestRunDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "doc.yaml", docYAML)
	writeFile(t, dir, "scenarios/pass.yaml", `
name: pass
description: "Passes"
document: ../doc.yaml
frames: [{frame: 30}]
assertions: [{type: value, frame: 30, path: level, equals: 1}]
`)
	writeFile(t, dir, "scenarios/fail.yaml", `
name: fail
description: "Assertion fails"
document: ../doc.yaml
frames: [{frame: 30}]
assertions: [{type: value, frame: 30, path: level, equals: 5}]
`)
	writeFile(t, dir, "scenarios/broken.yaml", "name: [")

	result, err := RunDir(context.Background(), filepath.Join(dir, "scenarios"))
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalScenarios)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 2, result.Failed)

	require.Len(t, result.Failures, 2)
	// Sorted paths: broken.yaml, fail.yaml, pass.yaml.
	assert.Contains(t, result.Failures[0].Error, "failed to load scenario")
	assert.Equal(t, "fail", result.Failures[1].Scenario)
	assert.Contains(t, result.Failures[1].Error, "scenario assertions failed")
}

func TestRunDir_Demo(t *testing.T) {
	result, err := RunDir(context.Background(), filepath.Join(projectRoot(), "testdata", "scenarios"))
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalScenarios)
	assert.Equal(t, 3, result.Passed, "failures: %v", result.Failures)
}

func TestRunPaths_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := RunPaths(ctx, []string{"a.yaml"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, result.TotalScenarios)
}
