package boop

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dt = 1.0 / 60

func springConf(f float64) Config {
	return Config{Default: ODE(f, 1, 0)}
}

// TestSpring_ConvergesAndRests tests convergence to a constant target and rest afterwards.
func TestSpring_ConvergesAndRests(t *testing.T) {
	conf := springConf(2)
	var f Field

	y, weird := f.Step(conf, "x", 0, 0)
	require.False(t, weird)
	assert.Equal(t, 0.0, y)

	now := 0.0
	for i := 0; i < 300; i++ {
		now += dt
		y, weird = f.Step(conf, "x", now, 1)
		require.False(t, weird, "step %d", i)
		require.False(t, math.IsNaN(y))
	}
	assert.InDelta(t, 1, y, 1e-3)

	for i := 0; i < 10; i++ {
		now += dt
		next, _ := f.Step(conf, "x", now, 1)
		assert.Less(t, math.Abs(next-y), 1e-6)
		y = next
	}
}

func TestSpring_MovesTowardTargetWithoutJumping(t *testing.T) {
	conf := springConf(1)
	var f Field
	f.Step(conf, "x", 0, 0)

	y, _ := f.Step(conf, "x", dt, 10)
	assert.Greater(t, y, -1e-9)
	assert.Less(t, y, 1.0, "a spring never jumps to a far target in one frame")
	assert.Equal(t, Springing, f.State())
}

// TestSpring_DivergenceRecovery tests the weird flag and reset after a non-finite step.
func TestSpring_DivergenceRecovery(t *testing.T) {
	conf := springConf(1e9)
	var f Field
	f.Step(conf, "x", 1, 0)
	f.Step(conf, "x", 1+dt, 0.5)

	// dt = 0 produces a non-finite derivative.
	y, weird := f.Step(conf, "x", 1+dt, 3)
	assert.True(t, weird)
	assert.Equal(t, 3.0, y)
	assert.Equal(t, 3.0, f.Spring().Y)
	assert.Equal(t, 0.0, f.Spring().Yd)
	assert.True(t, f.Spring().Weird)

	y, weird = f.Step(conf, "x", 1+2*dt, 3)
	assert.False(t, weird)
	assert.False(t, math.IsNaN(y) || math.IsInf(y, 0))
	assert.InDelta(t, 3, y, 1e-9)
}

// TestSpring_PausedFrameHolds tests that repeating a frame with the same
// target neither moves the spring nor reports divergence.
func TestSpring_PausedFrameHolds(t *testing.T) {
	conf := springConf(1)
	var f Field
	f.Step(conf, "x", 0, 0)
	moving, _ := f.Step(conf, "x", dt, 10)
	vel := f.Spring().Yd

	for i := 0; i < 3; i++ {
		y, weird := f.Step(conf, "x", dt, 10)
		assert.False(t, weird, "repeat %d", i)
		assert.Equal(t, moving, y)
		assert.Equal(t, vel, f.Spring().Yd)
	}

	// Time moving on resumes the spring from where it held.
	y, weird := f.Step(conf, "x", 2*dt, 10)
	assert.False(t, weird)
	assert.Greater(t, y, moving)
}

// TestReset_BypassesState tests that reset returns the raw target regardless of history.
func TestReset_BypassesState(t *testing.T) {
	conf := springConf(1)
	var f Field
	now := 0.0
	for _, target := range []float64{0, 5, -5, 5} {
		f.Step(conf, "x", now, target)
		now += dt
	}

	reset := conf
	reset.Reset = true
	for _, target := range []float64{7, -3, 100, math.Pi} {
		y, weird := f.Step(reset, "x", now, target)
		assert.False(t, weird)
		assert.Equal(t, target, y)
		now += dt
	}
	assert.Equal(t, Direct, f.State())
}

func TestNoop_PassesThrough(t *testing.T) {
	var f Field
	for i, target := range []float64{1, 100, -4} {
		y, weird := f.Step(Config{}, "x", float64(i), target)
		assert.False(t, weird)
		assert.Equal(t, target, y)
	}
	assert.Equal(t, Direct, f.State())
}

func TestField_DirectToSpringStartsFromLastValue(t *testing.T) {
	var f Field
	f.Step(Config{}, "x", 0, 4)

	y, _ := f.Step(springConf(1), "x", dt, 10)
	assert.Equal(t, 4.0, y)
	assert.Equal(t, Springing, f.State())

	f.Step(springConf(1), "x", 2*dt, 10)
	y, _ = f.Step(springConf(1), "x", 3*dt, 10)
	assert.Greater(t, y, 4.0)
	assert.Less(t, y, 10.0)
}

func TestField_TimeGoingBackwardsRestarts(t *testing.T) {
	conf := springConf(1)
	var f Field
	f.Step(conf, "x", 5, 0)
	f.Step(conf, "x", 5+dt, 1)

	y, weird := f.Step(conf, "x", 0, 8)
	assert.False(t, weird)
	assert.Equal(t, 8.0, y)
}

func TestConfig_FilterFor(t *testing.T) {
	slow := ODE(0.5, 1, 0)
	fast := ODE(8, 0.5, 2)
	conf := NewConfig(false, DefaultFilter, map[string]FilterKind{
		"pos":         slow,
		"pos.x":       fast,
		"items.color": Noop,
		"cafe\u0301":  fast,
	})

	tests := []struct {
		path string
		want FilterKind
	}{
		{"pos", slow},
		{"pos.y", slow},
		{"pos.x", fast},
		{"pos.x.deep", fast},
		{"position", DefaultFilter},
		{"items.color.h", Noop},
		{"items.3.color", DefaultFilter},
		{"other", DefaultFilter},
		{"caf\u00e9.h", fast},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, conf.FilterFor(tt.path), tt.path)
	}

	assert.Equal(t, Noop, Config{}.FilterFor("anything"))
	assert.True(t, Config{}.FilterFor("anything").IsNoop())
	assert.Equal(t, "ode(f=8, z=0.5, r=2)", fast.String())
	assert.Equal(t, "noop", Noop.String())
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "a.b.3", Item(Join("a", "", "b"), 3))
	assert.Equal(t, "a.b", NormalizePath(".a.b."))
	assert.True(t, hasPathPrefix("a.b", "a"))
	assert.True(t, hasPathPrefix("a", "a"))
	assert.False(t, hasPathPrefix("ab", "a"))
	assert.True(t, hasPathPrefix("anything", ""))
}

// TestBank_WeirdAggregateAndForget tests per-record aggregation of divergence.
func TestBank_WeirdAggregateAndForget(t *testing.T) {
	b := NewBank()
	conf := springConf(1)

	b.Step(conf, "pos.x", 0, 0)
	b.Step(conf, "pos.y", 0, 0)
	b.Step(conf, "size", 0, 1)
	assert.False(t, b.Weird())
	assert.Equal(t, []string{"pos.x", "pos.y", "size"}, b.Paths())

	b.Step(conf, "pos.x", dt, 1)
	_, weird := b.Step(conf, "pos.y", 0, 1)
	assert.True(t, weird)
	assert.True(t, b.Weird())
	assert.Equal(t, []string{"pos.y"}, b.WeirdPaths())

	b.Step(conf, "pos.y", dt, 1)
	assert.False(t, b.Weird())

	assert.Equal(t, 2, b.Forget("pos"))
	assert.Equal(t, []string{"size"}, b.Paths())
	_, ok := b.Field("pos.x")
	assert.False(t, ok)
	assert.Equal(t, 1, b.Len())
}

func TestScalar_BoopFrom(t *testing.T) {
	var _ BoopFrom[float64] = &Scalar{}

	s := &Scalar{Path: "gain"}
	y, _ := s.BoopFrom(springConf(1), 0, 2)
	assert.Equal(t, 2.0, y)
	y, _ = s.BoopFrom(springConf(1), dt, 3)
	assert.Less(t, y, 3.0)
}
