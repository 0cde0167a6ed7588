package lazy

import (
	"fmt"
	"slices"

	"github.com/roach88/livecode/internal/evalctx"
	"github.com/roach88/livecode/internal/unitcell"
)

// List is a lazy sequence declared with repeat blocks. It implements
// Lazy[[]T].
type List[T any] struct {
	elems  []unitcell.Element[Lazy[T]]
	lerp   func(from, to T, pct float64) T
	limits unitcell.Limits
	defs   []*evalctx.Layer
}

// NewList validates elems against limits and builds a List. A nil lerp
// disables blending.
func NewList[T any](elems []unitcell.Element[Lazy[T]], lerp func(from, to T, pct float64) T, limits unitcell.Limits) (List[T], error) {
	if err := unitcell.Validate(elems, limits); err != nil {
		return List[T]{}, err
	}
	return List[T]{elems: elems, lerp: lerp, limits: limits}, nil
}

// WithMoreDefs pushes layers onto the list and therefore onto every item it expands to.
func (l List[T]) WithMoreDefs(layers ...*evalctx.Layer) Lazy[[]T] {
	return l.withDefs(layers)
}

func (l List[T]) withDefs(layers []*evalctx.Layer) List[T] {
	if len(layers) > 0 {
		l.defs = append(slices.Clip(l.defs), layers...)
	}
	return l
}

// Expand resolves the repeat counts against ctx and returns one Lazy per
// item. No item is evaluated; each carries the list's definitions followed
// by the index layers of its enclosing repeats.
func (l List[T]) Expand(ctx *evalctx.Context) ([]Lazy[T], error) {
	x := unitcell.Expander[Lazy[T], Lazy[T]]{
		Resolve: func(s unitcell.Scope, leaf Lazy[T]) (Lazy[T], error) {
			return leaf.WithMoreDefs(l.defs...).WithMoreDefs(s.Layers...), nil
		},
		Limits: l.limits,
	}
	if l.lerp != nil {
		x.Lerp = func(from, to Lazy[T], pct float64) Lazy[T] {
			return Mix(from, to, pct, l.lerp)
		}
	}
	return x.Expand(l.elems, ctx.WithLayers(l.defs...))
}

// Eval expands the list and evaluates every item against ctx.
func (l List[T]) Eval(ctx *evalctx.Context) ([]T, error) {
	items, err := l.Expand(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(items))
	for i, item := range items {
		v, err := item.Eval(ctx)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
