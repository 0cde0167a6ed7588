package unitcell

import (
	"fmt"

	"github.com/roach88/livecode/internal/control"
	"github.com/roach88/livecode/internal/evalctx"
)

// RepeatKind discriminates the RepeatSpec variants.
type RepeatKind uint8

const (
	// RepeatCount repeats along one axis.
	RepeatCount RepeatKind = iota + 1
	// RepeatRect repeats over an x by y grid.
	RepeatRect
	// RepeatBlend repeats count times, then cross-fades the next blend items into the tail.
	RepeatBlend
)

func (k RepeatKind) String() string {
	switch k {
	case RepeatCount:
		return "count"
	case RepeatRect:
		return "rect"
	case RepeatBlend:
		return "blend"
	default:
		return fmt.Sprintf("repeat(%d)", uint8(k))
	}
}

// RepeatSpec declares how many items a repeat block produces.
type RepeatSpec struct {
	kind RepeatKind
	a, b control.Value
}

// Count creates a one-axis spec.
func Count(n control.Value) RepeatSpec {
	return RepeatSpec{kind: RepeatCount, a: n}
}

// Rect creates an x by y grid spec.
func Rect(x, y control.Value) RepeatSpec {
	return RepeatSpec{kind: RepeatRect, a: x, b: y}
}

// Blend creates a one-axis spec whose last items are blended into by the
// next blend items emitted after the block.
func Blend(count, blend control.Value) RepeatSpec {
	return RepeatSpec{kind: RepeatBlend, a: count, b: blend}
}

// Kind returns the variant.
func (s RepeatSpec) Kind() RepeatKind {
	return s.kind
}

// Values returns the spec's control values: (count, zero) for Count,
// (x, y) for Rect, (count, blend) for Blend.
func (s RepeatSpec) Values() (control.Value, control.Value) {
	return s.a, s.b
}

// Extent is a resolved RepeatSpec.
type Extent struct {
	X, Y  int
	Blend int
}

// Cells returns X*Y.
func (e Extent) Cells() int {
	return e.X * e.Y
}

// Resolve evaluates the spec against ctx. Negative counts become zero.
func (s RepeatSpec) Resolve(ctx *evalctx.Context, limits Limits) (Extent, error) {
	limits = limits.withDefaults()

	count := func(v control.Value, what string) (int, error) {
		n, err := v.ResolveInt(ctx)
		if err != nil {
			return 0, fmt.Errorf("repeat %s: %w", what, err)
		}
		if n < 0 {
			n = 0
		}
		if n > int64(limits.MaxCount) {
			return 0, evalctx.NewLimitError("repeat %s %d exceeds limit %d", what, n, limits.MaxCount)
		}
		return int(n), nil
	}

	switch s.kind {
	case RepeatCount:
		n, err := count(s.a, "count")
		return Extent{X: n, Y: 1}, err
	case RepeatRect:
		x, err := count(s.a, "x")
		if err != nil {
			return Extent{}, err
		}
		y, err := count(s.b, "y")
		if err != nil {
			return Extent{}, err
		}
		if x*y > limits.MaxCount {
			return Extent{}, evalctx.NewLimitError("repeat grid %dx%d exceeds limit %d", x, y, limits.MaxCount)
		}
		return Extent{X: x, Y: y}, nil
	case RepeatBlend:
		n, err := count(s.a, "count")
		if err != nil {
			return Extent{}, err
		}
		b, err := count(s.b, "blend")
		if err != nil {
			return Extent{}, err
		}
		return Extent{X: n, Y: 1, Blend: b}, nil
	default:
		return Extent{}, evalctx.NewStructuralError("unknown repeat kind %d", s.kind)
	}
}

// Indices enumerates the extent in row-major, x-fastest order.
func (e Extent) Indices() []Index {
	if e.X <= 0 || e.Y <= 0 {
		return nil
	}
	out := make([]Index, 0, e.X*e.Y)
	for y := 0; y < e.Y; y++ {
		for x := 0; x < e.X; x++ {
			out = append(out, NewIndex(x, y, 0, e.X, e.Y, 1))
		}
	}
	return out
}

// Expand resolves spec and returns its indices.
func Expand(spec RepeatSpec, ctx *evalctx.Context, limits Limits) ([]Index, error) {
	ext, err := spec.Resolve(ctx, limits)
	if err != nil {
		return nil, err
	}
	return ext.Indices(), nil
}

// Limits bounds expansion of malformed or runaway documents.
type Limits struct {
	// MaxCount caps the cells produced by a single repeat block.
	MaxCount int
	// MaxDepth caps repeat nesting.
	MaxDepth int
	// MaxItems caps the total number of items one expansion may emit, and
	// separately the total number of repeat iterations it may run.
	MaxItems int
}

// DefaultLimits are generous enough for real sketches and small enough
// that a typo like `repeat: 1e9` fails fast.
var DefaultLimits = Limits{
	MaxCount: 10_000,
	MaxDepth: 16,
	MaxItems: 100_000,
}

func (l Limits) withDefaults() Limits {
	if l.MaxCount <= 0 {
		l.MaxCount = DefaultLimits.MaxCount
	}
	if l.MaxDepth <= 0 {
		l.MaxDepth = DefaultLimits.MaxDepth
	}
	if l.MaxItems <= 0 {
		l.MaxItems = DefaultLimits.MaxItems
	}
	return l
}

// itemQuota tracks one kind of work (items, iterations) during one
// expansion.
type itemQuota struct {
	what    string
	limit   int
	current int
}

// check increments the counter and fails once the limit is passed.
func (q *itemQuota) check() error {
	q.current++
	if q.current > q.limit {
		return evalctx.NewLimitError("expansion exceeded %d %s", q.limit, q.what)
	}
	return nil
}
