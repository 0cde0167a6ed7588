package record

import (
	"fmt"

	"github.com/roach88/livecode/internal/evalctx"
	"github.com/roach88/livecode/internal/lazy"
	"github.com/roach88/livecode/internal/unitcell"
)

// Lazy converts the control into a deferred tree. Lists become lazy.Lists so
// index layers reach their items before any item is evaluated.
func (c *Control) Lazy() lazy.Lazy[Value] {
	switch c.schema.Kind {
	case KindList:
		elems := unitcell.Map(c.items, (*Control).Lazy)
		// Depth was validated when the control was built.
		list, _ := lazy.NewList(elems, Lerp, c.limits)
		return lazy.Map[[]Value, Value](list, func(items []Value) (Value, error) {
			return Value{Kind: KindList, Items: items}, nil
		})
	case KindRecord:
		names := make([]string, len(c.fields))
		children := make([]lazy.Lazy[Value], len(c.fields))
		for i, f := range c.fields {
			names[i] = c.schema.Fields[i].Name
			children[i] = f.Lazy()
		}
		return lazy.Func(func(ctx *evalctx.Context) (Value, error) {
			out := make([]FieldValue, len(children))
			for i, child := range children {
				v, err := child.Eval(ctx)
				if err != nil {
					return Value{}, fmt.Errorf("%s: %w", names[i], err)
				}
				out[i] = FieldValue{Name: names[i], Value: v}
			}
			return Value{Kind: KindRecord, Fields: out}, nil
		})
	case KindEnum:
		name := c.schema.Variants[c.variant].Name
		inner := c.inner.Lazy()
		return lazy.Map(inner, func(v Value) (Value, error) {
			return Value{Kind: KindEnum, Variant: name, Inner: &v}, nil
		})
	default:
		return lazy.Func(c.Resolve)
	}
}
