package control

import (
	"fmt"
	"math"

	"github.com/roach88/livecode/internal/evalctx"
)

// Vec2 is a two-component control resolved element-wise.
type Vec2 [2]Value

// Vec3 is a three-component control resolved element-wise.
type Vec3 [3]Value

// Vec4 is a four-component control resolved element-wise.
type Vec4 [4]Value

// Resolve implements ResolvesTo.
func (v Vec2) Resolve(ctx *evalctx.Context) ([2]float64, error) {
	var out [2]float64
	err := resolveInto(ctx, v[:], out[:])
	return out, err
}

// Resolve implements ResolvesTo.
func (v Vec3) Resolve(ctx *evalctx.Context) ([3]float64, error) {
	var out [3]float64
	err := resolveInto(ctx, v[:], out[:])
	return out, err
}

// Resolve implements ResolvesTo.
func (v Vec4) Resolve(ctx *evalctx.Context) ([4]float64, error) {
	var out [4]float64
	err := resolveInto(ctx, v[:], out[:])
	return out, err
}

// ResolveSlice resolves an arbitrary-length component list.
func ResolveSlice(ctx *evalctx.Context, vals []Value) ([]float64, error) {
	out := make([]float64, len(vals))
	if err := resolveInto(ctx, vals, out); err != nil {
		return nil, err
	}
	return out, nil
}

func resolveInto(ctx *evalctx.Context, vals []Value, out []float64) error {
	for i, c := range vals {
		f, err := c.Resolve(ctx)
		if err != nil {
			return fmt.Errorf("component %d: %w", i, err)
		}
		out[i] = f
	}
	return nil
}

// Color is an HSVA control. Saturation and value clamp to [0, 1]; hue wraps
// freely and alpha is left alone.
type Color [4]Value

// HSVA is a resolved color.
type HSVA struct {
	H, S, V, A float64
}

// Resolve implements ResolvesTo.
func (c Color) Resolve(ctx *evalctx.Context) (HSVA, error) {
	var raw [4]float64
	if err := resolveInto(ctx, c[:], raw[:]); err != nil {
		return HSVA{}, err
	}
	unit := Range(0, 1)
	return HSVA{
		H: raw[0],
		S: unit.Apply(raw[1]),
		V: unit.Apply(raw[2]),
		A: raw[3],
	}, nil
}

// ColorBounds returns the per-channel clamp Color applies, in h, s, v, a order.
func ColorBounds() [4]Bounds {
	return [4]Bounds{Unbounded, Range(0, 1), Range(0, 1), Unbounded}
}

// Slice returns h, s, v, a.
func (c HSVA) Slice() []float64 {
	return []float64{c.H, c.S, c.V, c.A}
}

// RGBA converts to red, green, blue and alpha. Hue is in turns (1.0 is a
// full rotation).
func (c HSVA) RGBA() (r, g, b, a float64) {
	h := evalctx.Fract(c.H) * 6
	i := math.Floor(h)
	f := h - i
	p := c.V * (1 - c.S)
	q := c.V * (1 - c.S*f)
	t := c.V * (1 - c.S*(1-f))

	switch int(i) % 6 {
	case 0:
		r, g, b = c.V, t, p
	case 1:
		r, g, b = q, c.V, p
	case 2:
		r, g, b = p, c.V, t
	case 3:
		r, g, b = p, q, c.V
	case 4:
		r, g, b = t, p, c.V
	default:
		r, g, b = c.V, p, q
	}
	return r, g, b, c.A
}

// VecFromAny converts a decoded list of n scalars into component Values.
func VecFromAny(n int, raw any) ([]Value, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, evalctx.NewStructuralError("expected a list of %d components, got %T", n, raw)
	}
	if len(list) != n {
		return nil, evalctx.NewStructuralError("expected %d components, got %d", n, len(list))
	}
	out := make([]Value, n)
	for i, item := range list {
		v, err := FromAny(item)
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// ColorFromAny accepts [h, s, v] or [h, s, v, a]; alpha defaults to 1.
func ColorFromAny(raw any) (Color, error) {
	var c Color
	if list, ok := raw.([]any); ok && len(list) == 3 {
		raw = append(list[:3:3], 1.0)
	}
	vals, err := VecFromAny(4, raw)
	if err != nil {
		return c, err
	}
	copy(c[:], vals)
	return c, nil
}
