package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livecode/internal/evalctx"
)

func lookup(t *testing.T, ctx *evalctx.Context, name string) float64 {
	t.Helper()
	v, ok := ctx.LookupNumber(name)
	require.True(t, ok, name)
	return v
}

func TestTime(t *testing.T) {
	src := NewTime(60, 120, 4)
	src.Update(Snapshot{Frame: 90})

	ctx, err := NewSet(src).Context()
	require.NoError(t, err)

	// 90 frames at 60 fps = 1.5 s = 3 beats at 120 bpm.
	assert.Equal(t, 1.5, lookup(t, ctx, "secs"))
	assert.Equal(t, 3.0, lookup(t, ctx, "t"))
	assert.Equal(t, 3.0, lookup(t, ctx, "ti"))
	assert.Equal(t, 90.0, lookup(t, ctx, "f"))
	assert.Equal(t, 90.0, lookup(t, ctx, "fi"))
	assert.Equal(t, 0.75, lookup(t, ctx, "bar"))
	assert.Equal(t, 0.0, lookup(t, ctx, "bar_i"))
	assert.Equal(t, 0.75, lookup(t, ctx, "beat"))
}

func TestTime_Defaults(t *testing.T) {
	src := NewTime(0, -1, 0)
	assert.Equal(t, 60.0, src.FPS)
	assert.Equal(t, 120.0, src.BPM)
	assert.Equal(t, 4.0, src.BeatsPerBar)
}

func TestPointerKeysAudio(t *testing.T) {
	keys := NewKeys("Space")
	set := NewSet(&Pointer{}, keys, NewAudio(3))

	set.Update(Snapshot{
		MouseX: 0.25, MouseY: 0.75, MouseDown: true,
		Keys:  map[string]bool{"A": true, "Arrow-Up": true},
		Audio: []float64{0.9, 0.1, 0.5, 0.7},
	})
	ctx, err := set.Context()
	require.NoError(t, err)

	assert.Equal(t, 0.25, lookup(t, ctx, "mx"))
	assert.Equal(t, 0.75, lookup(t, ctx, "my"))
	down, ok := ctx.Lookup("mdown")
	require.True(t, ok)
	assert.True(t, down.True())

	for name, want := range map[string]bool{"key_a": true, "key_arrow_up": true, "key_space": false} {
		v, ok := ctx.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, want, v.True(), name)
	}

	assert.Equal(t, 0.9, lookup(t, ctx, "a0"))
	assert.Equal(t, 0.5, lookup(t, ctx, "a2"))
	_, ok = ctx.Lookup("a3")
	assert.False(t, ok)

	// Released keys keep resolving as false; missing audio bands read 0.
	set.Update(Snapshot{Audio: []float64{0.2}})
	ctx, err = set.Context()
	require.NoError(t, err)
	v, ok := ctx.Lookup("key_a")
	require.True(t, ok)
	assert.False(t, v.True())
	assert.Equal(t, 0.0, lookup(t, ctx, "a1"))
}

func TestValues_SnapshotOverride(t *testing.T) {
	vals := NewValues(map[string]float64{"speed": 2, "gain": 1})
	set := NewSet(vals)

	set.Update(Snapshot{Values: map[string]float64{"gain": 5, "extra": 3}})
	ctx, err := set.Context()
	require.NoError(t, err)
	assert.Equal(t, 2.0, lookup(t, ctx, "speed"))
	assert.Equal(t, 5.0, lookup(t, ctx, "gain"))
	assert.Equal(t, 3.0, lookup(t, ctx, "extra"))

	set.Update(Snapshot{})
	ctx, err = set.Context()
	require.NoError(t, err)
	assert.Equal(t, 1.0, lookup(t, ctx, "gain"))
	_, ok := ctx.Lookup("extra")
	assert.False(t, ok)
}

func TestSet_LaterSourceWins(t *testing.T) {
	tm := NewTime(60, 120, 4)
	set := NewSet(tm, NewValues(map[string]float64{"t": 42}))
	set.Update(Snapshot{Frame: 30})

	b := set.Bindings()
	names := make([]string, len(b))
	for i, x := range b {
		names[i] = x.Name
	}
	assert.Equal(t, "t", names[0], "position of the first export is kept")

	ctx, err := set.Context()
	require.NoError(t, err)
	assert.Equal(t, 42.0, lookup(t, ctx, "t"))
}

func TestSet_InvalidNameFails(t *testing.T) {
	set := NewSet(NewValues(map[string]float64{"not valid": 1}))
	set.Update(Snapshot{})
	_, err := set.Context()
	assert.True(t, evalctx.IsMalformed(err))
}

func TestParseAssignment(t *testing.T) {
	name, v, err := ParseAssignment(" speed = 2.5 ")
	require.NoError(t, err)
	assert.Equal(t, "speed", name)
	assert.Equal(t, 2.5, v)

	_, _, err = ParseAssignment("speed")
	assert.Error(t, err)
	_, _, err = ParseAssignment("speed=fast")
	assert.Error(t, err)
}

func TestKeyName(t *testing.T) {
	assert.Equal(t, "key_space", KeyName("Space"))
	assert.Equal(t, "key_f1", KeyName("F1"))
	assert.Equal(t, "key__", KeyName("/"))
}
