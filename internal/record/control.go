package record

import (
	"fmt"

	"github.com/roach88/livecode/internal/control"
	"github.com/roach88/livecode/internal/evalctx"
	"github.com/roach88/livecode/internal/unitcell"
)

// Control is a schema-typed tree of control values.
type Control struct {
	schema *Schema

	scalar control.Value   // num, bool, int
	vec    []control.Value // vectors and colors

	items  []unitcell.Element[*Control] // list
	limits unitcell.Limits

	fields []*Control // record, parallel to schema.Fields

	variant int // enum
	inner   *Control
}

var (
	_ control.ResolvesTo[Value]          = (*Control)(nil)
	_ unitcell.EvaluableUnitCell[Value] = (*Control)(nil)
)

func mismatch(s *Schema, want string) error {
	return evalctx.NewStructuralError("%s control for %s schema", want, s.Kind)
}

// NewScalar creates a num, bool or int control.
func NewScalar(s *Schema, v control.Value) (*Control, error) {
	if s.Kind.Width() != 1 {
		return nil, mismatch(s, "scalar")
	}
	return &Control{schema: s, scalar: v}, nil
}

// NewVector creates a vector or color control. Colors accept 3 components
// and default alpha to 1.
func NewVector(s *Schema, vals []control.Value) (*Control, error) {
	if !s.Kind.IsVector() {
		return nil, mismatch(s, "vector")
	}
	if s.Kind == KindColor && len(vals) == 3 {
		vals = append(vals[:3:3], control.Float(1))
	}
	if len(vals) != s.Kind.Width() {
		return nil, evalctx.NewStructuralError("%s expects %d components, got %d", s.Kind, s.Kind.Width(), len(vals))
	}
	return &Control{schema: s, vec: vals}, nil
}

// NewList creates a list control. Every leaf must match the item schema.
func NewList(s *Schema, items []unitcell.Element[*Control], limits unitcell.Limits) (*Control, error) {
	if s.Kind != KindList {
		return nil, mismatch(s, "list")
	}
	if err := unitcell.Validate(items, limits); err != nil {
		return nil, err
	}
	if err := checkLeaves(items, s.Elem); err != nil {
		return nil, err
	}
	return &Control{schema: s, items: items, limits: limits}, nil
}

func checkLeaves(items []unitcell.Element[*Control], elem *Schema) error {
	stack := [][]unitcell.Element[*Control]{items}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range top {
			if e.IsRepeat() {
				stack = append(stack, e.Repeat().What)
				continue
			}
			leaf, _ := e.Leaf()
			if leaf == nil || leaf.schema != elem {
				return evalctx.NewStructuralError("list item does not match the list's item schema")
			}
		}
	}
	return nil
}

// NewRecord creates a record control. fields must hold one control per
// schema field, keyed by name.
func NewRecord(s *Schema, fields map[string]*Control) (*Control, error) {
	if s.Kind != KindRecord {
		return nil, mismatch(s, "record")
	}
	out := make([]*Control, len(s.Fields))
	for i, f := range s.Fields {
		c, ok := fields[f.Name]
		if !ok || c == nil {
			return nil, evalctx.NewStructuralError("record field %q is missing", f.Name)
		}
		if c.schema != f.Schema {
			return nil, evalctx.NewStructuralError("record field %q does not match its schema", f.Name)
		}
		out[i] = c
	}
	if len(fields) > len(s.Fields) {
		for name := range fields {
			if _, _, ok := s.Field(name); !ok {
				return nil, evalctx.NewStructuralError("record has no field %q", name)
			}
		}
	}
	return &Control{schema: s, fields: out}, nil
}

// NewEnum creates an enum control holding the named variant.
func NewEnum(s *Schema, variant string, inner *Control) (*Control, error) {
	if s.Kind != KindEnum {
		return nil, mismatch(s, "enum")
	}
	i, vs, ok := s.Variant(variant)
	if !ok {
		return nil, evalctx.NewStructuralError("enum has no variant %q", variant)
	}
	if inner == nil || inner.schema != vs {
		return nil, evalctx.NewStructuralError("enum variant %q does not match its schema", variant)
	}
	return &Control{schema: s, variant: i, inner: inner}, nil
}

// Schema returns the control's schema.
func (c *Control) Schema() *Schema {
	return c.schema
}

// Resolve implements control.ResolvesTo.
func (c *Control) Resolve(ctx *evalctx.Context) (Value, error) {
	s := c.schema
	switch s.Kind {
	case KindNum:
		f, err := c.scalar.ResolveWithin(ctx, s.Bounds)
		return Value{Kind: KindNum, Num: f}, err
	case KindInt:
		i, err := c.scalar.ResolveInt(ctx)
		if err != nil {
			return Value{}, err
		}
		if !s.Bounds.IsZero() {
			i = int64(s.Bounds.Apply(float64(i)))
		}
		return Value{Kind: KindInt, Int: i}, nil
	case KindBool:
		b, err := c.scalar.ResolveBool(ctx)
		return Value{Kind: KindBool, Bool: b}, err
	case KindVec2, KindVec3, KindVec4, KindColor:
		return c.resolveVector(ctx)
	case KindList:
		items, err := c.expander().Expand(c.items, ctx)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindList, Items: items}, nil
	case KindRecord:
		out := make([]FieldValue, len(c.fields))
		for i, f := range c.fields {
			v, err := f.Resolve(ctx)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", s.Fields[i].Name, err)
			}
			out[i] = FieldValue{Name: s.Fields[i].Name, Value: v}
		}
		return Value{Kind: KindRecord, Fields: out}, nil
	case KindEnum:
		name := s.Variants[c.variant].Name
		inner, err := c.inner.Resolve(ctx)
		if err != nil {
			return Value{}, fmt.Errorf("%s: %w", name, err)
		}
		return Value{Kind: KindEnum, Variant: name, Inner: &inner}, nil
	default:
		return Value{}, evalctx.NewStructuralError("cannot resolve %s", s.Kind)
	}
}

func (c *Control) resolveVector(ctx *evalctx.Context) (Value, error) {
	s := c.schema
	raw, err := control.ResolveSlice(ctx, c.vec)
	if err != nil {
		return Value{}, err
	}
	if !s.Bounds.IsZero() {
		for i := range raw {
			raw[i] = s.Bounds.Apply(raw[i])
		}
	}
	if s.Kind == KindColor {
		clampColor(raw)
	}
	return Value{Kind: s.Kind, Vec: raw}, nil
}

func clampColor(hsva []float64) {
	for i, b := range control.ColorBounds() {
		hsva[i] = b.Apply(hsva[i])
	}
}

func (c *Control) expander() unitcell.Expander[*Control, Value] {
	return unitcell.Expander[*Control, Value]{
		Resolve: func(s unitcell.Scope, leaf *Control) (Value, error) {
			return leaf.Resolve(s.Ctx)
		},
		Lerp:   Lerp,
		Limits: c.limits,
	}
}

// EvalUnitCell implements unitcell.EvaluableUnitCell. ctx must already
// carry the cell's index layer; errors name the cell.
func (c *Control) EvalUnitCell(ctx *evalctx.Context, idx unitcell.Index) (Value, error) {
	v, err := c.Resolve(ctx)
	if err != nil {
		return Value{}, fmt.Errorf("cell (%d, %d, %d): %w", idx.X, idx.Y, idx.Z, err)
	}
	return v, nil
}
