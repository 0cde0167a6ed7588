package record

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/livecode/internal/boop"
	"github.com/roach88/livecode/internal/control"
	"github.com/roach88/livecode/internal/evalctx"
	"github.com/roach88/livecode/internal/unitcell"
)

type fixture struct {
	schema *Schema
	dot    *Schema
	circle *Schema
	square *Schema
	shape  *Schema
}

func newFixture() fixture {
	dot := RecordOf(F("x", Num()), F("y", Num()))
	circle := RecordOf(F("r", Num().WithBounds(control.AtLeast(0))))
	square := RecordOf(F("side", Num()))
	shape := EnumOf(F("circle", circle), F("square", square))
	schema := RecordOf(
		F("radius", Num().WithBounds(control.Range(0, 10))),
		F("on", Bool()),
		F("count", Int()),
		F("pos", Vec(2)),
		F("tint", Color()),
		F("dots", ListOf(dot)),
		F("shape", shape),
	)
	return fixture{schema: schema, dot: dot, circle: circle, square: square, shape: shape}
}

func must(t *testing.T, c *Control, err error) *Control {
	t.Helper()
	require.NoError(t, err)
	return c
}

func num(t *testing.T, s *Schema, src string) *Control {
	return must(t, NewScalar(s, control.MustParse(src)))
}

func (fx fixture) dotControl(t *testing.T, x, y string) *Control {
	_, xs, _ := fx.dot.Field("x")
	_, ys, _ := fx.dot.Field("y")
	return must(t, NewRecord(fx.dot, map[string]*Control{"x": num(t, xs, x), "y": num(t, ys, y)}))
}

func (fx fixture) build(t *testing.T, dotCount string, variant string) *Control {
	t.Helper()
	s := fx.schema
	field := func(name string) *Schema {
		_, fs, ok := s.Field(name)
		require.True(t, ok, name)
		return fs
	}

	dots := must(t, NewList(field("dots"), []unitcell.Element[*Control]{
		unitcell.Single(fx.dotControl(t, "-1", "-1")),
		unitcell.Nested(unitcell.Count(control.MustParse(dotCount)), "",
			unitcell.Single(fx.dotControl(t, "i_x_i", "t")),
		),
	}, unitcell.Limits{}))

	var shape *Control
	switch variant {
	case "circle":
		_, rs, _ := fx.circle.Field("r")
		inner := must(t, NewRecord(fx.circle, map[string]*Control{"r": num(t, rs, "t - 5")}))
		shape = must(t, NewEnum(fx.shape, "circle", inner))
	default:
		_, ss, _ := fx.square.Field("side")
		inner := must(t, NewRecord(fx.square, map[string]*Control{"side": num(t, ss, "t * 2")}))
		shape = must(t, NewEnum(fx.shape, "square", inner))
	}

	return must(t, NewRecord(s, map[string]*Control{
		"radius": num(t, field("radius"), "t * 10"),
		"on":     must(t, NewScalar(field("on"), control.MustParse("t > 1"))),
		"count":  must(t, NewScalar(field("count"), control.MustParse("t + 0.5"))),
		"pos":    must(t, NewVector(field("pos"), []control.Value{control.MustParse("t"), control.Float(0.5)})),
		"tint":   must(t, NewVector(field("tint"), []control.Value{control.Float(0.25), control.Float(2), control.MustParse("t / 4")})),
		"dots":   dots,
		"shape":  shape,
	}))
}

func ctxAt(t *testing.T, tv float64) *evalctx.Context {
	t.Helper()
	ctx, err := evalctx.Build(evalctx.Num("t", tv))
	require.NoError(t, err)
	return ctx
}

func TestControl_Resolve(t *testing.T) {
	fx := newFixture()
	c := fx.build(t, "2", "circle")

	v, err := c.Resolve(ctxAt(t, 2))
	require.NoError(t, err)

	flat := v.FlattenMap()
	assert.Equal(t, map[string]float64{
		"radius":         10, // clamped from 20
		"on":             1,
		"count":          2,
		"pos.x":          2,
		"pos.y":          0.5,
		"tint.h":         0.25,
		"tint.s":         1, // clamped
		"tint.v":         0.5,
		"tint.a":         1, // defaulted
		"dots.0.x":       -1,
		"dots.0.y":       -1,
		"dots.1.x":       0,
		"dots.1.y":       2,
		"dots.2.x":       1,
		"dots.2.y":       2,
		"shape.circle.r": 0, // clamped from -3
	}, flat)

	paths := make([]string, 0, len(flat))
	for _, s := range v.Flatten() {
		paths = append(paths, s.Path)
	}
	assert.Equal(t, "radius", paths[0])
	assert.Equal(t, "shape.circle.r", paths[len(paths)-1])
}

func TestValue_At(t *testing.T) {
	fx := newFixture()
	v, err := fx.build(t, "2", "circle").Resolve(ctxAt(t, 2))
	require.NoError(t, err)

	dots, ok := v.At("dots")
	require.True(t, ok)
	assert.Len(t, dots.Items, 3)

	y, ok := v.At("dots.1.y")
	require.True(t, ok)
	assert.Equal(t, 2.0, y.Num)

	s, ok := v.At("tint.s")
	require.True(t, ok)
	assert.Equal(t, 1.0, s.Num)

	r, ok := v.At(".shape.circle.r.")
	require.True(t, ok, "outer dots are trimmed")
	assert.Equal(t, 0.0, r.Num)

	root, ok := v.At("")
	require.True(t, ok)
	assert.Equal(t, KindRecord, root.Kind)

	for _, missing := range []string{"dots.3", "dots.x", "shape.square", "pos.z", "nope"} {
		_, ok := v.At(missing)
		assert.False(t, ok, missing)
	}
}

func TestControl_ResolveErrorsNameTheField(t *testing.T) {
	fx := newFixture()
	c := fx.build(t, "n", "square")

	_, err := c.Resolve(ctxAt(t, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dots")
	assert.True(t, evalctx.IsUnknownIdentifier(err))
}

func TestValue_MarshalJSON(t *testing.T) {
	fx := newFixture()
	v, err := fx.build(t, "1", "square").Resolve(ctxAt(t, 1))
	require.NoError(t, err)

	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"radius": 10,
		"on": false,
		"count": 1,
		"pos": [1, 0.5],
		"tint": {"h": 0.25, "s": 1, "v": 0.25, "a": 1},
		"dots": [{"x": -1, "y": -1}, {"x": 0, "y": 1}],
		"shape": {"square": {"side": 2}}
	}`, string(b))
	assert.Regexp(t, `^\{"radius":10,"on":false,"count":1,`, string(b))
}

func TestLerp(t *testing.T) {
	a := Value{Kind: KindRecord, Fields: []FieldValue{
		{Name: "n", Value: Value{Kind: KindNum, Num: 0}},
		{Name: "i", Value: Value{Kind: KindInt, Int: 0}},
		{Name: "b", Value: Value{Kind: KindBool, Bool: false}},
		{Name: "v", Value: Value{Kind: KindVec2, Vec: []float64{0, 10}}},
	}}
	b := Value{Kind: KindRecord, Fields: []FieldValue{
		{Name: "n", Value: Value{Kind: KindNum, Num: 4}},
		{Name: "i", Value: Value{Kind: KindInt, Int: 3}},
		{Name: "b", Value: Value{Kind: KindBool, Bool: true}},
		{Name: "v", Value: Value{Kind: KindVec2, Vec: []float64{2, 20}}},
	}}

	m := Lerp(a, b, 0.25).FlattenMap()
	assert.Equal(t, 1.0, m["n"])
	assert.Equal(t, 1.0, m["i"]) // 0.75 rounds to 1
	assert.Equal(t, -1.0, m["b"])
	assert.Equal(t, 0.5, m["v.x"])
	assert.Equal(t, 12.5, m["v.y"])

	assert.Equal(t, 1.0, Lerp(a, b, 0.75).FlattenMap()["b"])

	e1 := Value{Kind: KindEnum, Variant: "a", Inner: &Value{Kind: KindNum, Num: 1}}
	e2 := Value{Kind: KindEnum, Variant: "b", Inner: &Value{Kind: KindNum, Num: 2}}
	assert.Equal(t, "a", Lerp(e1, e2, 0.4).Variant)
	assert.Equal(t, "b", Lerp(e1, e2, 0.6).Variant)
}

// TestControl_LazyMatchesResolve tests that two-phase evaluation agrees with direct resolution.
func TestControl_LazyMatchesResolve(t *testing.T) {
	fx := newFixture()
	c := fx.build(t, "3", "circle")

	for _, tv := range []float64{0, 1.5, 7} {
		ctx := ctxAt(t, tv)
		want, err := c.Resolve(ctx)
		require.NoError(t, err)
		got, err := c.Lazy().Eval(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got, "t=%v", tv)
	}

	// Definitions pushed onto the lazy tree reach every leaf.
	got, err := c.Lazy().WithMoreDefs(evalctx.MustBindings("", evalctx.Num("t", 4))).Eval(evalctx.Root())
	require.NoError(t, err)
	want, err := c.Resolve(ctxAt(t, 4))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestControl_EvalUnitCell(t *testing.T) {
	fx := newFixture()
	cell := fx.dotControl(t, "c_x_i * 10", "t")

	out, err := unitcell.EvalCells[Value](cell, unitcell.Count(control.Int(3)), "c_", ctxAt(t, 1), unitcell.Limits{})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, 20.0, out[2].FlattenMap()["x"])

	_, err = unitcell.EvalCells[Value](fx.dotControl(t, "nope", "0"), unitcell.Count(control.Int(1)), "", evalctx.Root(), unitcell.Limits{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cell (0, 0, 0)")
}

func TestConstructors_RejectMismatchedShapes(t *testing.T) {
	fx := newFixture()

	_, err := NewScalar(Vec(2), control.Float(1))
	assert.True(t, evalctx.IsStructuralMismatch(err))

	_, err = NewVector(Vec(3), []control.Value{control.Float(1)})
	assert.True(t, evalctx.IsStructuralMismatch(err))

	_, err = NewRecord(fx.dot, map[string]*Control{"x": num(t, Num(), "1")})
	assert.True(t, evalctx.IsStructuralMismatch(err), "wrong schema pointer and missing y")

	_, xs, _ := fx.dot.Field("x")
	_, ys, _ := fx.dot.Field("y")
	_, err = NewRecord(fx.dot, map[string]*Control{"x": num(t, xs, "1"), "y": num(t, ys, "1"), "z": num(t, ys, "1")})
	assert.True(t, evalctx.IsStructuralMismatch(err))

	_, err = NewEnum(fx.shape, "triangle", nil)
	assert.True(t, evalctx.IsStructuralMismatch(err))

	_, err = NewList(ListOf(fx.dot), []unitcell.Element[*Control]{unitcell.Single(num(t, Num(), "1"))}, unitcell.Limits{})
	assert.True(t, evalctx.IsStructuralMismatch(err))
}

func TestSchema_Validate(t *testing.T) {
	require.NoError(t, newFixture().schema.Validate())

	err := RecordOf(F("a", Num()), F("a", Num())).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")

	err = RecordOf(F("l", ListOf(nil))).Validate()
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "l[]", se.Path)

	assert.Error(t, EnumOf().Validate())

	k, ok := ParseKind("vec3")
	assert.True(t, ok)
	assert.Equal(t, KindVec3, k)
	_, ok = ParseKind("matrix")
	assert.False(t, ok)
}

func smoothConf() boop.Config {
	return boop.Config{Default: boop.ODE(1, 1, 0)}
}

func TestSmoother_SmoothsNumbersAndPassesDiscretes(t *testing.T) {
	fx := newFixture()
	c := fx.build(t, "1", "circle")
	sm := NewSmoother(fx.schema)

	v0, err := c.Resolve(ctxAt(t, 0))
	require.NoError(t, err)
	out, weird := sm.BoopFrom(smoothConf(), 0, v0)
	assert.False(t, weird)
	assert.Equal(t, v0, out, "first observation rests at the target")

	v1, err := c.Resolve(ctxAt(t, 0.5))
	require.NoError(t, err)
	sm.BoopFrom(smoothConf(), 1.0/60, v1)
	out, _ = sm.BoopFrom(smoothConf(), 2.0/60, v1)

	m := out.FlattenMap()
	target := v1.FlattenMap()
	assert.Less(t, m["pos.x"], target["pos.x"])
	assert.Greater(t, m["pos.x"], 0.0)
	assert.Equal(t, target["count"], m["count"])
	assert.Equal(t, target["on"], m["on"])
}

func TestSmoother_ResetReturnsTarget(t *testing.T) {
	fx := newFixture()
	c := fx.build(t, "2", "circle")
	sm := NewSmoother(fx.schema)

	conf := smoothConf()
	for i, tv := range []float64{0, 3, 1} {
		v, err := c.Resolve(ctxAt(t, tv))
		require.NoError(t, err)
		sm.BoopFrom(conf, float64(i)/60, v)
	}

	conf.Reset = true
	v, err := c.Resolve(ctxAt(t, 9))
	require.NoError(t, err)
	out, weird := sm.BoopFrom(conf, 4.0/60, v)
	assert.False(t, weird)
	assert.Equal(t, v, out)
}

// TestSmoother_DiscardsStateOnShapeChange tests enum variant and list length changes.
func TestSmoother_DiscardsStateOnShapeChange(t *testing.T) {
	fx := newFixture()
	sm := NewSmoother(fx.schema)
	conf := smoothConf()

	circle, err := fx.build(t, "2", "circle").Resolve(ctxAt(t, 0))
	require.NoError(t, err)
	sm.BoopFrom(conf, 0, circle)
	_, ok := sm.Bank().Field("shape.circle.r")
	require.True(t, ok)
	_, ok = sm.Bank().Field("dots.2.x")
	require.True(t, ok)

	square, err := fx.build(t, "1", "square").Resolve(ctxAt(t, 0))
	require.NoError(t, err)
	out, _ := sm.BoopFrom(conf, 1.0/60, square)

	_, ok = sm.Bank().Field("shape.circle.r")
	assert.False(t, ok, "old variant state discarded")
	_, ok = sm.Bank().Field("dots.2.x")
	assert.False(t, ok, "list state discarded on length change")
	assert.Equal(t, square.FlattenMap()["shape.square.side"], out.FlattenMap()["shape.square.side"])
}

func TestSmoother_SchemaFilterOverride(t *testing.T) {
	s := RecordOf(
		F("fast", Num().WithFilter(boop.Noop)),
		F("slow", Num()),
	)
	_, fs, _ := s.Field("fast")
	_, ss, _ := s.Field("slow")
	c := must(t, NewRecord(s, map[string]*Control{"fast": num(t, fs, "t"), "slow": num(t, ss, "t")}))
	sm := NewSmoother(s)

	v0, err := c.Resolve(ctxAt(t, 0))
	require.NoError(t, err)
	sm.BoopFrom(smoothConf(), 0, v0)

	v1, err := c.Resolve(ctxAt(t, 5))
	require.NoError(t, err)
	sm.BoopFrom(smoothConf(), 1.0/60, v1)
	out, _ := sm.BoopFrom(smoothConf(), 2.0/60, v1)

	m := out.FlattenMap()
	assert.Equal(t, 5.0, m["fast"])
	assert.Less(t, m["slow"], 5.0)

	// A config override beats the schema filter.
	conf := boop.NewConfig(false, boop.ODE(1, 1, 0), map[string]boop.FilterKind{"slow": boop.Noop})
	out, _ = sm.BoopFrom(conf, 3.0/60, v1)
	assert.Equal(t, 5.0, out.FlattenMap()["slow"])
}

func TestMarshalCanonical(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"null", nil, "null"},
		{"int", int64(-3), "-3"},
		{"float rounds", 0.1 + 0.2, "0.3"},
		{"float no exponent", 1e-7, "0.0000001"},
		{"negative zero", math.Copysign(0, -1), "0"},
		{"html unescaped", "<a&b>", `"<a&b>"`},
		{"line separator kept", "a\u2028b", "\"a\u2028b\""},
		{"escaped backslash kept", `\u2028`, `"\\u2028"`},
		{"sorted keys", map[string]any{"b": 1, "a": []any{true, "x"}}, `{"a":[true,"x"],"b":1}`},
		{"utf16 order", map[string]any{"\uE000": 1, "\U00010000": 2}, "{\"\U00010000\":2,\"\uE000\":1}"},
		{"float map", map[string]float64{"y": 2, "x": 0.5}, `{"x":0.5,"y":2}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(b))
		})
	}

	_, err := MarshalCanonical(math.NaN())
	assert.Error(t, err)
	_, err = MarshalCanonical(struct{}{})
	assert.Error(t, err)
}

func TestMarshalCanonical_Value(t *testing.T) {
	fx := newFixture()
	v, err := fx.build(t, "1", "square").Resolve(ctxAt(t, 1))
	require.NoError(t, err)

	b, err := MarshalCanonical(v)
	require.NoError(t, err)
	assert.Equal(t,
		`{"count":1,"dots":[{"x":-1,"y":-1},{"x":0,"y":1}],"on":false,"pos":[1,0.5],`+
			`"radius":10,"shape":{"square":{"side":2}},"tint":{"a":1,"h":0.25,"s":1,"v":0.25}}`,
		string(b))
}

func TestSchema_Zero(t *testing.T) {
	s := RecordOf(
		F("level", Num()),
		F("pos", Vec(2)),
		F("dots", ListOf(Num())),
		F("shape", EnumOf(F("circle", RecordOf(F("r", Num()))), F("dot", Num()))),
	)

	z := s.Zero()
	assert.Equal(t, map[string]float64{
		"level":          0,
		"pos.x":          0,
		"pos.y":          0,
		"shape.circle.r": 0,
	}, z.FlattenMap())
	dots, ok := z.Field("dots")
	require.True(t, ok)
	assert.Empty(t, dots.Items)
}
