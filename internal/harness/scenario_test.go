package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livecode/internal/signals"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const docYAML = "schema: {level: num}\ncontrols: {level: t}\n"

func TestLoadScenario_Valid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "docs/level.yaml", docYAML)
	path := writeFile(t, dir, "level.yaml", `
name: level
description: "Level follows t"
document: docs/level.yaml
time: {fps: 30, bpm: 60, beats_per_bar: 3}
signals: {gain: 1}
audio_bands: 4
run_token: fixed
frames:
  - frame: 0
    repeat: 2
  - frame: 5
    mouse: [0.5, 0.25]
    down: true
    keys: {space: true}
    audio: [0.1]
    values: {gain: 2}
assertions:
  - type: value
    frame: 5
    path: level
    equals: 0.1667
    tolerance: 0.001
  - type: no_errors
`)

	s, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "level", s.Name)
	assert.Equal(t, filepath.Join(dir, "docs/level.yaml"), s.Document)
	assert.Equal(t, TimeConfig{FPS: 30, BPM: 60, BeatsPerBar: 3}, s.Time)
	assert.Equal(t, map[string]float64{"gain": 1}, s.Signals)
	assert.Equal(t, 4, s.AudioBands)
	assert.Equal(t, "fixed", s.RunToken)
	require.Len(t, s.Assertions, 2)
	assert.Equal(t, int64(5), *s.Assertions[0].Frame)
	assert.Equal(t, 0.001, s.Assertions[0].Tolerance)
	assert.Equal(t, []string{"gain"}, s.FrameSignals())

	snaps := s.Snapshots()
	require.Len(t, snaps, 3)
	assert.Equal(t, signals.Snapshot{Frame: 0}, snaps[0])
	assert.Equal(t, signals.Snapshot{Frame: 1}, snaps[1])
	assert.Equal(t, signals.Snapshot{
		Frame:     5,
		MouseX:    0.5,
		MouseY:    0.25,
		MouseDown: true,
		Keys:      map[string]bool{"space": true},
		Audio:     []float64{0.1},
		Values:    map[string]float64{"gain": 2},
	}, snaps[2])
}

func TestLoadScenarioWithBasePath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "root/docs/level.yaml", docYAML)
	path := writeFile(t, dir, "scenarios/level.yaml", `
name: level
description: "Base path resolves the document"
document: docs/level.yaml
frames: [{frame: 0}]
assertions: [{type: no_errors}]
`)

	s, err := LoadScenarioWithBasePath(path, filepath.Join(dir, "root"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "root/docs/level.yaml"), s.Document)
}

func TestLoadScenario_InlineSource(t *testing.T) {
	path := writeFile(t, t.TempDir(), "inline.yaml", `
name: inline
description: "Inline source"
source: |
  schema: {level: num}
  controls: {level: t}
frames: [{frame: 0}]
assertions: [{type: no_errors}]
`)

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Contains(t, s.Source, "controls")

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestLoadScenario_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "malformed yaml",
			content: "name: [unclosed",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "unknown field",
			content: "name: x\ndescription: y\nsource: z\nassertion: []\n",
			wantErr: "field assertion not found",
		},
		{
			name:    "missing name",
			content: "description: y\nsource: z\nframes: [{frame: 0}]\nassertions: [{type: no_errors}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: x\nsource: z\nframes: [{frame: 0}]\nassertions: [{type: no_errors}]\n",
			wantErr: "description is required",
		},
		{
			name:    "no document",
			content: "name: x\ndescription: y\nframes: [{frame: 0}]\nassertions: [{type: no_errors}]\n",
			wantErr: "document or source is required",
		},
		{
			name:    "both document and source",
			content: "name: x\ndescription: y\ndocument: a.yaml\nsource: z\nframes: [{frame: 0}]\nassertions: [{type: no_errors}]\n",
			wantErr: "mutually exclusive",
		},
		{
			name:    "document not found",
			content: "name: x\ndescription: y\ndocument: missing.yaml\nframes: [{frame: 0}]\nassertions: [{type: no_errors}]\n",
			wantErr: "document file not found",
		},
		{
			name:    "no frames",
			content: "name: x\ndescription: y\nsource: z\nassertions: [{type: no_errors}]\n",
			wantErr: "frames list is required",
		},
		{
			name:    "no assertions",
			content: "name: x\ndescription: y\nsource: z\nframes: [{frame: 0}]\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "negative repeat",
			content: "name: x\ndescription: y\nsource: z\nframes: [{frame: 0, repeat: -1}]\nassertions: [{type: no_errors}]\n",
			wantErr: "repeat must not be negative",
		},
		{
			name:    "bad mouse",
			content: "name: x\ndescription: y\nsource: z\nframes: [{frame: 0, mouse: [1]}]\nassertions: [{type: no_errors}]\n",
			wantErr: "mouse takes [x, y]",
		},
		{
			name:    "assertion without type",
			content: "name: x\ndescription: y\nsource: z\nframes: [{frame: 0}]\nassertions: [{path: level}]\n",
			wantErr: "type is required",
		},
		{
			name:    "unknown assertion type",
			content: "name: x\ndescription: y\nsource: z\nframes: [{frame: 0}]\nassertions: [{type: trace_contains}]\n",
			wantErr: `unknown type "trace_contains"`,
		},
		{
			name:    "value without equals",
			content: "name: x\ndescription: y\nsource: z\nframes: [{frame: 0}]\nassertions: [{type: value, frame: 0, path: level}]\n",
			wantErr: "value requires path and equals",
		},
		{
			name:    "value without frame",
			content: "name: x\ndescription: y\nsource: z\nframes: [{frame: 0}]\nassertions: [{type: value, path: level, equals: 1}]\n",
			wantErr: "requires frame or seq",
		},
		{
			name:    "range without bounds",
			content: "name: x\ndescription: y\nsource: z\nframes: [{frame: 0}]\nassertions: [{type: range, seq: 1, path: level}]\n",
			wantErr: "range requires path and min or max",
		},
		{
			name:    "length without count",
			content: "name: x\ndescription: y\nsource: z\nframes: [{frame: 0}]\nassertions: [{type: length, seq: 1, path: dots}]\n",
			wantErr: "length requires count",
		},
		{
			name:    "weird without expect",
			content: "name: x\ndescription: y\nsource: z\nframes: [{frame: 0}]\nassertions: [{type: weird, seq: 1}]\n",
			wantErr: "weird requires expect",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "s.yaml", tt.content)
			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestScenario_FrameZeroAssertion(t *testing.T) {
	// frame: 0 must count as set even though it is the zero value.
	path := writeFile(t, t.TempDir(), "s.yaml", `
name: x
description: y
source: z
frames: [{frame: 0}]
assertions: [{type: error, frame: 0}]
`)
	s, err := LoadScenario(path)
	require.NoError(t, err)
	require.NotNil(t, s.Assertions[0].Frame)
	assert.Equal(t, int64(0), *s.Assertions[0].Frame)
}
