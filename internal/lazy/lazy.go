package lazy

import (
	"slices"

	"github.com/roach88/livecode/internal/control"
	"github.com/roach88/livecode/internal/evalctx"
)

// Lazy is a value that is evaluated against a context on demand.
type Lazy[T any] interface {
	// WithMoreDefs returns a copy with layers applied on top of the
	// evaluation context, after any layers pushed earlier.
	WithMoreDefs(layers ...*evalctx.Layer) Lazy[T]
	// Eval resolves the value.
	Eval(ctx *evalctx.Context) (T, error)
}

// node is the single Lazy implementation: a set of pending definitions and
// the function that evaluates under them.
type node[T any] struct {
	defs []*evalctx.Layer
	eval func(ctx *evalctx.Context) (T, error)
}

// Func wraps fn as a Lazy.
func Func[T any](fn func(ctx *evalctx.Context) (T, error)) Lazy[T] {
	return node[T]{eval: fn}
}

func (n node[T]) WithMoreDefs(layers ...*evalctx.Layer) Lazy[T] {
	if len(layers) == 0 {
		return n
	}
	n.defs = append(slices.Clip(n.defs), layers...)
	return n
}

func (n node[T]) Eval(ctx *evalctx.Context) (T, error) {
	return n.eval(ctx.WithLayers(n.defs...))
}

// Const is a Lazy that ignores its context.
func Const[T any](v T) Lazy[T] {
	return Func(func(*evalctx.Context) (T, error) { return v, nil })
}

// Num defers numeric resolution of v.
func Num(v control.Value) Lazy[float64] {
	return Func(v.Resolve)
}

// Bool defers boolean resolution of v.
func Bool(v control.Value) Lazy[bool] {
	return Func(v.ResolveBool)
}

// Vec defers element-wise resolution of vals.
func Vec(vals ...control.Value) Lazy[[]float64] {
	return Func(func(ctx *evalctx.Context) ([]float64, error) {
		return control.ResolveSlice(ctx, vals)
	})
}

// Map defers fn applied to the result of l.
func Map[T, U any](l Lazy[T], fn func(T) (U, error)) Lazy[U] {
	return Func(func(ctx *evalctx.Context) (U, error) {
		v, err := l.Eval(ctx)
		if err != nil {
			var zero U
			return zero, err
		}
		return fn(v)
	})
}

// Mix defers lerp(a, b, pct). Both sides see the same context.
func Mix[T any](a, b Lazy[T], pct float64, lerp func(from, to T, pct float64) T) Lazy[T] {
	return Func(func(ctx *evalctx.Context) (T, error) {
		av, err := a.Eval(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		bv, err := b.Eval(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		return lerp(av, bv, pct), nil
	})
}
