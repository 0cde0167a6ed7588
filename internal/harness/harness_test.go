package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

const levelSource = `
schema: {level: num, on: bool}
controls:
  level: t * 2
  on: t >= 1
`

func TestRun_MinimalScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "minimal",
		Description: "Minimal test scenario",
		Source:      levelSource,
		Frames:      []FrameStep{{Frame: 30}},
		Assertions: []Assertion{
			{Type: AssertValue, Frame: ptr(int64(30)), Path: "level", Equals: ptr(2.0)},
			{Type: AssertValue, Frame: ptr(int64(30)), Path: "on", Equals: ptr(1.0)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass, result.Errors)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "test-run-default", result.RunToken)

	require.Len(t, result.Trace, 1)
	ev := result.Trace[0]
	assert.Equal(t, int64(1), ev.Seq)
	assert.Equal(t, int64(30), ev.Frame)
	assert.Equal(t, map[string]float64{"level": 2, "on": 1}, ev.Values)
	assert.False(t, ev.Failed())
}

func TestRun_RepeatExpandsFrames(t *testing.T) {
	scenario := &Scenario{
		Name:        "repeat",
		Description: "Repeat expands consecutive frames",
		Source:      levelSource,
		RunToken:    "fixed-run",
		Frames:      []FrameStep{{Frame: 10, Repeat: 3}, {Frame: 0}},
		Assertions:  []Assertion{{Type: AssertNoErrors}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.Equal(t, "fixed-run", result.RunToken)

	var frames, seqs []int64
	for _, ev := range result.Trace {
		frames = append(frames, ev.Frame)
		seqs = append(seqs, ev.Seq)
	}
	assert.Equal(t, []int64{10, 11, 12, 0}, frames)
	assert.Equal(t, []int64{1, 2, 3, 4}, seqs)
}

func TestRun_TimeConfig(t *testing.T) {
	scenario := &Scenario{
		Name:        "time",
		Description: "Time config sets fps and bpm",
		Source:      levelSource,
		Time:        TimeConfig{FPS: 30, BPM: 60},
		Frames:      []FrameStep{{Frame: 30}},
		Assertions: []Assertion{
			// 30 frames at 30 fps is one second, one beat at 60 bpm.
			{Type: AssertValue, Seq: 1, Path: "level", Equals: ptr(2.0)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_InputSignals(t *testing.T) {
	scenario := &Scenario{
		Name:        "inputs",
		Description: "Pointer, keys, audio and values reach the document",
		Source: `
schema: {x: num, down: bool, key: bool, band: num, gain: num}
controls:
  x: mx
  down: mdown
  key: key_space
  band: a1
  gain: gain
`,
		Signals:    map[string]float64{"gain": 0.25},
		AudioBands: 2,
		Frames: []FrameStep{
			{Frame: 0, Keys: map[string]bool{"space": false}},
			{Frame: 1, Mouse: []float64{0.5, 0.75}, Down: true, Keys: map[string]bool{"space": true}, Audio: []float64{0.1, 0.9}, Values: map[string]float64{"gain": 3}},
		},
		Assertions: []Assertion{
			{Type: AssertValue, Seq: 1, Path: "gain", Equals: ptr(0.25)},
			{Type: AssertValue, Seq: 2, Path: "x", Equals: ptr(0.5)},
			{Type: AssertValue, Seq: 2, Path: "down", Equals: ptr(1.0)},
			{Type: AssertValue, Seq: 2, Path: "key", Equals: ptr(1.0)},
			{Type: AssertValue, Seq: 2, Path: "band", Equals: ptr(0.9)},
			{Type: AssertValue, Seq: 2, Path: "gain", Equals: ptr(3.0)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_FrameFailureIsTraced(t *testing.T) {
	scenario := &Scenario{
		Name:        "gate",
		Description: "A missing signal fails the frame",
		Source: `
schema: {level: num}
controls: {level: gate * 10}
`,
		Frames: []FrameStep{
			{Frame: 0, Values: map[string]float64{"gate": 0.5}},
			{Frame: 1},
		},
		Assertions: []Assertion{{Type: AssertNoErrors}},
	}

	result, err := Run(scenario)
	require.NoError(t, err, "frame failures are not run errors")
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "no_errors")

	ev := result.Trace[1]
	assert.True(t, ev.Failed())
	assert.True(t, ev.Substituted)
	assert.Equal(t, "UNKNOWN_IDENTIFIER", ev.Code)
	assert.Equal(t, map[string]float64{"level": 5}, ev.Values)
}

func TestRun_InvalidDocument(t *testing.T) {
	scenario := &Scenario{
		Name:        "invalid",
		Description: "Unknown names fail validation before playback",
		Source: `
schema: {level: num}
controls: {level: nowhere}
`,
		Frames:     []FrameStep{{Frame: 0}},
		Assertions: []Assertion{{Type: AssertNoErrors}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E202")
}

func TestRun_CompileError(t *testing.T) {
	scenario := &Scenario{
		Name:        "broken",
		Description: "A document that doesn't compile",
		Source:      "schema: {level: blob}\n",
		Frames:      []FrameStep{{Frame: 0}},
		Assertions:  []Assertion{{Type: AssertNoErrors}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load document")
}

func TestRunContext_Cancelled(t *testing.T) {
	scenario := &Scenario{
		Name:        "cancelled",
		Description: "Cancellation stops playback",
		Source:      levelSource,
		Frames:      []FrameStep{{Frame: 0, Repeat: 5}},
		Assertions:  []Assertion{{Type: AssertNoErrors}},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunContext(ctx, scenario)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
