package evalctx

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

var errNaN = errors.New("result is not a number")

// constants are visible in every context.
func constants() map[string]cty.Value {
	return map[string]cty.Value{
		"PI":    cty.NumberFloatVal(math.Pi),
		"ROOT2": cty.NumberFloatVal(math.Sqrt2),
		"ROOT3": cty.NumberFloatVal(math.Sqrt(3)),
	}
}

// builtins is the process-wide function table. Built once, never mutated.
var builtins = sync.OnceValue(func() map[string]function.Function {
	return map[string]function.Function{
		// periodic
		"sin": mathFunc([]string{"x"}, 2, func(a []float64) float64 {
			return math.Sin(a[0]*opt(a, 1, 1) + opt(a, 2, 0))
		}),
		"cos": mathFunc([]string{"x"}, 2, func(a []float64) float64 {
			return math.Cos(a[0]*opt(a, 1, 1) + opt(a, 2, 0))
		}),
		"tri":    mathFunc([]string{"x"}, 0, func(a []float64) float64 { return Tri(a[0]) }),
		"saw":    mathFunc([]string{"x"}, 0, func(a []float64) float64 { return Fract(a[0]) }),
		"bounce": mathFunc([]string{"x"}, 0, func(a []float64) float64 { return math.Abs(math.Sin(math.Pi * a[0])) }),
		"ease": mathFunc([]string{"x"}, 2, func(a []float64) float64 {
			return Ease(a[0]*opt(a, 1, 1) + opt(a, 2, 0))
		}),
		"pulse": mathFunc([]string{"x"}, 1, func(a []float64) float64 {
			if Fract(a[0]) < opt(a, 1, 0.5) {
				return 1
			}
			return 0
		}),

		// shaping
		"smoothstep": mathFunc([]string{"edge0", "edge1", "x"}, 0, func(a []float64) float64 {
			return Smoothstep(a[0], a[1], a[2])
		}),
		"step": mathFunc([]string{"edge", "x"}, 0, func(a []float64) float64 {
			if a[1] < a[0] {
				return 0
			}
			return 1
		}),
		"ramp": mathFunc([]string{"x", "start", "end"}, 0, func(a []float64) float64 {
			return Ramp(a[0], a[1], a[2])
		}),

		// ranges
		"clamp": mathFunc([]string{"x", "lo", "hi"}, 0, func(a []float64) float64 { return Clamp(a[0], a[1], a[2]) }),
		"mix":   mathFunc([]string{"a", "b", "t"}, 0, func(a []float64) float64 { return Lerp(a[0], a[1], a[2]) }),
		"remap": mathFunc([]string{"x", "in_lo", "in_hi", "out_lo", "out_hi"}, 0, func(a []float64) float64 {
			return Remap(a[0], a[1], a[2], a[3], a[4])
		}),
		"clmap": mathFunc([]string{"x", "in_lo", "in_hi", "out_lo", "out_hi"}, 0, func(a []float64) float64 {
			return Clamp(Remap(a[0], a[1], a[2], a[3], a[4]), math.Min(a[3], a[4]), math.Max(a[3], a[4]))
		}),
		"s": mathFunc([]string{"x", "lo", "hi"}, 0, func(a []float64) float64 {
			return Lerp(a[1], a[2], a[0])
		}),
		"s11": mathFunc([]string{"x", "lo", "hi"}, 0, func(a []float64) float64 {
			return Lerp(a[1], a[2], (a[0]+1)*0.5)
		}),
		"slog": mathFunc([]string{"x", "lo", "hi"}, 0, func(a []float64) float64 {
			if a[1] <= 0 || a[2] <= 0 {
				return math.NaN()
			}
			return math.Exp(Lerp(math.Log(a[1]), math.Log(a[2]), a[0]))
		}),

		// noise and randomness
		"perlin": mathFunc([]string{"x", "y", "z"}, 0, func(a []float64) float64 { return Perlin(a[0], a[1], a[2]) }),
		"rn":     mathFunc([]string{"seed", "idx"}, 0, func(a []float64) float64 { return Rn(a[0], int(a[1])) }),

		// geometry and arithmetic
		"len":   mathFunc([]string{"x", "y"}, 0, func(a []float64) float64 { return math.Hypot(a[0], a[1]) }),
		"pow":   mathFunc([]string{"x", "y"}, 0, func(a []float64) float64 { return math.Pow(a[0], a[1]) }),
		"abs":   mathFunc([]string{"x"}, 0, func(a []float64) float64 { return math.Abs(a[0]) }),
		"floor": mathFunc([]string{"x"}, 0, func(a []float64) float64 { return math.Floor(a[0]) }),
		"ceil":  mathFunc([]string{"x"}, 0, func(a []float64) float64 { return math.Ceil(a[0]) }),
		"fract": mathFunc([]string{"x"}, 0, func(a []float64) float64 { return Fract(a[0]) }),
		"sqrt":  mathFunc([]string{"x"}, 0, func(a []float64) float64 { return math.Sqrt(a[0]) }),
		"sign": mathFunc([]string{"x"}, 0, func(a []float64) float64 {
			switch {
			case a[0] > 0:
				return 1
			case a[0] < 0:
				return -1
			}
			return 0
		}),
		"tan":   mathFunc([]string{"x"}, 0, func(a []float64) float64 { return math.Tan(a[0]) }),
		"atan2": mathFunc([]string{"y", "x"}, 0, func(a []float64) float64 { return math.Atan2(a[0], a[1]) }),
		"exp":   mathFunc([]string{"x"}, 0, func(a []float64) float64 { return math.Exp(a[0]) }),
		"ln":    mathFunc([]string{"x"}, 0, func(a []float64) float64 { return math.Log(a[0]) }),
		"min":   mathFunc([]string{"x"}, -1, foldFunc(math.Min)),
		"max":   mathFunc([]string{"x"}, -1, foldFunc(math.Max)),

		// tuples
		"idx":     idxFunc,
		"manymod": manymodFunc,
	}
})

// mathFunc wraps a float64 implementation as a cty function.
// extra is the number of optional trailing arguments; -1 means unbounded.
func mathFunc(params []string, extra int, impl func(args []float64) float64) function.Function {
	spec := &function.Spec{
		Params: make([]function.Parameter, len(params)),
		Type:   function.StaticReturnType(cty.Number),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			if extra >= 0 && len(args) > len(params)+extra {
				return cty.NilVal, fmt.Errorf("at most %d arguments allowed, got %d", len(params)+extra, len(args))
			}
			fs := make([]float64, len(args))
			for i, a := range args {
				fs[i], _ = a.AsBigFloat().Float64()
			}
			out := impl(fs)
			if math.IsNaN(out) {
				return cty.NilVal, errNaN
			}
			return cty.NumberFloatVal(out), nil
		},
	}
	for i, name := range params {
		spec.Params[i] = function.Parameter{Name: name, Type: cty.Number}
	}
	if extra != 0 {
		spec.VarParam = &function.Parameter{Name: "rest", Type: cty.Number}
	}
	return function.New(spec)
}

// opt returns args[i] if present, otherwise def.
func opt(args []float64, i int, def float64) float64 {
	if i < len(args) {
		return args[i]
	}
	return def
}

func foldFunc(f func(a, b float64) float64) func([]float64) float64 {
	return func(args []float64) float64 {
		acc := args[0]
		for _, v := range args[1:] {
			acc = f(acc, v)
		}
		return acc
	}
}

// idx(tuple, i) returns the i-th element of a tuple or list of numbers.
// Negative indices count from the end.
var idxFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "tuple", Type: cty.DynamicPseudoType},
		{Name: "i", Type: cty.Number},
	},
	Type: function.StaticReturnType(cty.Number),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		coll := args[0]
		ty := coll.Type()
		if !ty.IsTupleType() && !ty.IsListType() {
			return cty.NilVal, fmt.Errorf("idx needs a tuple, got %s", ty.FriendlyName())
		}
		n := coll.LengthInt()
		if n == 0 {
			return cty.NilVal, fmt.Errorf("idx of an empty tuple")
		}
		f, _ := args[1].AsBigFloat().Float64()
		i := int(math.Floor(f))
		if i < 0 {
			i += n
		}
		if i < 0 || i >= n {
			return cty.NilVal, fmt.Errorf("index %d out of range for tuple of length %d", int(f), n)
		}
		elem := coll.Index(cty.NumberIntVal(int64(i)))
		if elem.Type() != cty.Number || elem.IsNull() {
			return cty.NilVal, fmt.Errorf("element %d is not a number", i)
		}
		return elem, nil
	},
})

// manymod(x, r0, r1, ...) decomposes x into mixed-radix digits, least
// significant first, returning a tuple with one digit per radix.
// manymod(7, 2, 4) == [1, 3].
var manymodFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "x", Type: cty.Number},
	},
	VarParam: &function.Parameter{Name: "radix", Type: cty.Number},
	Type: func(args []cty.Value) (cty.Type, error) {
		if len(args) < 2 {
			return cty.NilType, fmt.Errorf("manymod needs at least one radix")
		}
		types := make([]cty.Type, len(args)-1)
		for i := range types {
			types[i] = cty.Number
		}
		return cty.Tuple(types), nil
	},
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		f, _ := args[0].AsBigFloat().Float64()
		radices := make([]int64, len(args)-1)
		for i, a := range args[1:] {
			r, _ := a.AsBigFloat().Float64()
			if r < 1 {
				return cty.NilVal, fmt.Errorf("radix %d must be >= 1, got %v", i, r)
			}
			radices[i] = int64(r)
		}
		digits := ManyMod(int64(math.Floor(f)), radices...)
		vals := make([]cty.Value, len(digits))
		for i, d := range digits {
			vals[i] = cty.NumberIntVal(d)
		}
		return cty.TupleVal(vals), nil
	},
})

// Fract returns the fractional part of x in [0, 1).
func Fract(x float64) float64 {
	return x - math.Floor(x)
}

// Tri is a triangle wave with period 1: 0 at integers, 1 at half-integers.
func Tri(x float64) float64 {
	return 1 - math.Abs(2*Fract(x)-1)
}

// Ease is a cubic ease-in-out over each unit period.
func Ease(x float64) float64 {
	e := Fract(x)
	if e < 0.5 {
		return 4 * e * e * e
	}
	k := -2*e + 2
	return 1 - k*k*k/2
}

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	return math.Min(math.Max(x, lo), hi)
}

// Lerp interpolates from a to b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Remap maps x from [inLo, inHi] to [outLo, outHi] without clamping.
func Remap(x, inLo, inHi, outLo, outHi float64) float64 {
	if inHi == inLo {
		return outLo
	}
	return outLo + (x-inLo)/(inHi-inLo)*(outHi-outLo)
}

// Smoothstep is the Hermite step between edge0 and edge1.
func Smoothstep(edge0, edge1, x float64) float64 {
	if edge0 == edge1 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := Clamp((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}

// Ramp rises linearly from 0 at start to 1 at end.
func Ramp(x, start, end float64) float64 {
	if start == end {
		if x < start {
			return 0
		}
		return 1
	}
	return Clamp((x-start)/(end-start), 0, 1)
}

// ManyMod decomposes x into mixed-radix digits, least significant first.
// Negative x wraps the same way a Euclidean modulo does.
func ManyMod(x int64, radices ...int64) []int64 {
	digits := make([]int64, len(radices))
	for i, r := range radices {
		d := x % r
		if d < 0 {
			d += r
		}
		digits[i] = d
		x = (x - d) / r
	}
	return digits
}
