package unitcell

import (
	"fmt"
	"slices"

	"github.com/roach88/livecode/internal/evalctx"
)

// Element is one entry of a repeatable list: a leaf or a nested repeat block.
type Element[L any] struct {
	leaf      L
	blendNext int
	repeat    *Repeat[L]
}

// Repeat is a nested repeat block.
type Repeat[L any] struct {
	Spec   RepeatSpec
	Prefix string
	What   []Element[L]
}

// Single creates a leaf element.
func Single[L any](leaf L) Element[L] {
	return Element[L]{leaf: leaf}
}

// SingleBlend creates a leaf element that opens a blend cursor over the
// next blendNext items emitted after it.
func SingleBlend[L any](leaf L, blendNext int) Element[L] {
	return Element[L]{leaf: leaf, blendNext: max(blendNext, 0)}
}

// Nested creates a repeat element. An empty prefix means DefaultPrefix.
func Nested[L any](spec RepeatSpec, prefix string, what ...Element[L]) Element[L] {
	return Element[L]{repeat: &Repeat[L]{Spec: spec, Prefix: prefix, What: what}}
}

// IsRepeat reports whether the element is a repeat block.
func (e Element[L]) IsRepeat() bool {
	return e.repeat != nil
}

// Leaf returns the leaf payload and its blend-next count.
func (e Element[L]) Leaf() (L, int) {
	return e.leaf, e.blendNext
}

// Repeat returns the repeat block, or nil for a leaf.
func (e Element[L]) Repeat() *Repeat[L] {
	return e.repeat
}

// Map converts every leaf with fn, keeping the tree shape.
func Map[L, M any](elems []Element[L], fn func(L) M) []Element[M] {
	out := make([]Element[M], len(elems))
	for i, e := range elems {
		if e.repeat != nil {
			out[i] = Nested(e.repeat.Spec, e.repeat.Prefix, Map(e.repeat.What, fn)...)
			continue
		}
		out[i] = SingleBlend(fn(e.leaf), e.blendNext)
	}
	return out
}

// Validate checks a tree against limits before any frame evaluates it.
func Validate[L any](elems []Element[L], limits Limits) error {
	limits = limits.withDefaults()

	type item struct {
		elems []Element[L]
		depth int
	}
	stack := []item{{elems: elems}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range top.elems {
			if e.repeat == nil {
				continue
			}
			if e.repeat.Spec.kind == 0 {
				return evalctx.NewStructuralError("repeat block without a count")
			}
			depth := top.depth + 1
			if depth > limits.MaxDepth {
				return evalctx.NewLimitError("repeat nesting depth %d exceeds limit %d", depth, limits.MaxDepth)
			}
			stack = append(stack, item{elems: e.repeat.What, depth: depth})
		}
	}
	return nil
}

// Scope is what a leaf sees when it is resolved during expansion.
type Scope struct {
	// Ctx is the expansion context with every enclosing index layer applied.
	Ctx *evalctx.Context
	// Layers holds the index layers pushed by enclosing repeats, outermost first.
	Layers []*evalctx.Layer
	// Index is the innermost enclosing index. Valid only when Depth > 0.
	Index Index
	// Depth is the number of enclosing repeats.
	Depth int
}

func (s Scope) push(layer *evalctx.Layer, idx Index) Scope {
	return Scope{
		Ctx:    s.Ctx.WithLayer(layer),
		Layers: append(slices.Clip(s.Layers), layer),
		Index:  idx,
		Depth:  s.Depth + 1,
	}
}

// Expander turns a tree of elements into a flat sequence of resolved items.
type Expander[L, T any] struct {
	// Resolve produces one item from a leaf.
	Resolve func(scope Scope, leaf L) (T, error)
	// Lerp interpolates from -> to at pct. A nil Lerp disables blending.
	Lerp func(from, to T, pct float64) T
	// Limits bounds the expansion. Zero fields use DefaultLimits.
	Limits Limits
}

// task is one entry of the expansion stack: either an element list being
// walked, or a repeat block being iterated.
type task[L any] struct {
	elems []Element[L]
	pos   int

	repeat  *Repeat[L]
	indices []Index
	next    int
	blend   int

	scope Scope
}

// Expand walks elems depth-first in declaration order. Inner repeats see
// the bindings of every outer repeat.
func (x Expander[L, T]) Expand(elems []Element[L], ctx *evalctx.Context) ([]T, error) {
	limits := x.Limits.withDefaults()
	quota := &itemQuota{what: "items", limit: limits.MaxItems}
	iterations := &itemQuota{what: "repeat iterations", limit: limits.MaxItems}
	seq := NewSequence(x.Lerp)

	stack := []*task[L]{{elems: elems, scope: Scope{Ctx: ctx}}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]

		if top.repeat != nil {
			if top.next >= len(top.indices) {
				stack = stack[:len(stack)-1]
				if top.blend > 0 {
					seq.BlendNext(top.blend)
				}
				continue
			}
			// Iterations that emit nothing still cost a layer each.
			if err := iterations.check(); err != nil {
				return nil, err
			}
			idx := top.indices[top.next]
			top.next++
			if top.scope.Depth > 0 {
				idx = idx.Within(top.scope.Index)
			}
			layer, err := idx.Layer(top.repeat.Prefix)
			if err != nil {
				return nil, fmt.Errorf("repeat prefix %q: %w", top.repeat.Prefix, err)
			}
			stack = append(stack, &task[L]{elems: top.repeat.What, scope: top.scope.push(layer, idx)})
			continue
		}

		if top.pos >= len(top.elems) {
			stack = stack[:len(stack)-1]
			continue
		}
		el := top.elems[top.pos]
		top.pos++

		if el.repeat != nil {
			if top.scope.Depth+1 > limits.MaxDepth {
				return nil, evalctx.NewLimitError("repeat nesting depth %d exceeds limit %d", top.scope.Depth+1, limits.MaxDepth)
			}
			ext, err := el.repeat.Spec.Resolve(top.scope.Ctx, limits)
			if err != nil {
				return nil, err
			}
			stack = append(stack, &task[L]{
				repeat:  el.repeat,
				indices: ext.Indices(),
				blend:   ext.Blend,
				scope:   top.scope,
			})
			continue
		}

		v, err := x.Resolve(top.scope, el.leaf)
		if err != nil {
			return nil, err
		}
		if err := quota.check(); err != nil {
			return nil, err
		}
		seq.Push(v)
		if el.blendNext > 0 {
			seq.BlendNext(el.blendNext)
		}
	}

	return seq.Items(), nil
}

// EvaluableUnitCell is implemented by types that resolve with knowledge of
// the cell they are evaluated in.
type EvaluableUnitCell[T any] interface {
	EvalUnitCell(ctx *evalctx.Context, idx Index) (T, error)
}

// EvalCells expands spec and evaluates cell once per index. Each call sees
// ctx with the index layer applied under prefix.
func EvalCells[T any](cell EvaluableUnitCell[T], spec RepeatSpec, prefix string, ctx *evalctx.Context, limits Limits) ([]T, error) {
	indices, err := Expand(spec, ctx, limits)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(indices))
	for _, idx := range indices {
		layer, err := idx.Layer(prefix)
		if err != nil {
			return nil, err
		}
		v, err := cell.EvalUnitCell(ctx.WithLayer(layer), idx)
		if err != nil {
			return nil, fmt.Errorf("cell %d: %w", idx.Linear(), err)
		}
		out = append(out, v)
	}
	return out, nil
}
