package compiler

import (
	"fmt"

	"github.com/roach88/livecode/internal/control"
	"github.com/roach88/livecode/internal/evalctx"
	"github.com/roach88/livecode/internal/record"
	"github.com/roach88/livecode/internal/unitcell"
)

// controlCompiler builds a record.Control tree from the controls section,
// guided by the schema.
type controlCompiler struct {
	*errs
	limits unitcell.Limits
	refs   []exprRef
}

func (cc *controlCompiler) value(field string, raw any, prefixes []string) (control.Value, bool) {
	v, err := control.FromAny(raw)
	if err != nil {
		cc.addErr(field, err)
		return control.Value{}, false
	}
	if e := v.Expr(); e != nil {
		cc.refs = append(cc.refs, exprRef{field: field, expr: e, prefixes: prefixes})
	}
	return v, true
}

func (cc *controlCompiler) compile(field string, s *record.Schema, raw any, prefixes []string, depth int) *record.Control {
	switch s.Kind {
	case record.KindNum, record.KindBool, record.KindInt:
		v, ok := cc.value(field, raw, prefixes)
		if !ok {
			return nil
		}
		return cc.check(field)(record.NewScalar(s, v))

	case record.KindVec2, record.KindVec3, record.KindVec4, record.KindColor:
		return cc.vector(field, s, raw, prefixes)

	case record.KindList:
		items, ok := cc.elements(field, s.Elem, raw, prefixes, depth)
		if !ok {
			return nil
		}
		return cc.check(field)(record.NewList(s, items, cc.limits))

	case record.KindRecord:
		return cc.record(field, s, raw, prefixes, depth)

	case record.KindEnum:
		return cc.enum(field, s, raw, prefixes, depth)

	default:
		cc.add(field, "unsupported kind %s", s.Kind)
		return nil
	}
}

// check adapts a constructor result, recording its error.
func (cc *controlCompiler) check(field string) func(*record.Control, error) *record.Control {
	return func(c *record.Control, err error) *record.Control {
		if err != nil {
			cc.addErr(field, err)
			return nil
		}
		return c
	}
}

func (cc *controlCompiler) vector(field string, s *record.Schema, raw any, prefixes []string) *record.Control {
	list, ok := raw.([]any)
	if !ok {
		// A scalar broadcasts to every component.
		if _, isObj := raw.(*Object); isObj || raw == nil {
			cc.add(field, "expected a list of %d components, got %s", s.Kind.Width(), describe(raw))
			return nil
		}
		list = make([]any, s.Kind.Width())
		for i := range list {
			list[i] = raw
		}
	}
	want := s.Kind.Width()
	if len(list) != want && !(s.Kind == record.KindColor && len(list) == 3) {
		cc.add(field, "expected %d components, got %d", want, len(list))
		return nil
	}
	vals := make([]control.Value, len(list))
	ok = true
	for i, item := range list {
		v, good := cc.value(fmt.Sprintf("%s.%d", field, i), item, prefixes)
		ok = ok && good
		vals[i] = v
	}
	if !ok {
		return nil
	}
	return cc.check(field)(record.NewVector(s, vals))
}

func (cc *controlCompiler) record(field string, s *record.Schema, raw any, prefixes []string, depth int) *record.Control {
	obj, ok := raw.(*Object)
	if !ok {
		cc.add(field, "expected a mapping, got %s", describe(raw))
		return nil
	}
	fields := make(map[string]*record.Control, len(s.Fields))
	good := true
	for _, f := range s.Fields {
		rv, present := obj.Get(f.Name)
		switch {
		case present:
			c := cc.compile(field+"."+f.Name, f.Schema, rv, prefixes, depth)
			if c == nil {
				good = false
				continue
			}
			fields[f.Name] = c
		case f.Schema.Kind == record.KindList:
			// Missing lists are empty.
			c := cc.check(field+"."+f.Name)(record.NewList(f.Schema, nil, cc.limits))
			fields[f.Name] = c
		default:
			cc.add(field+"."+f.Name, "is missing")
			good = false
		}
	}
	for _, k := range obj.Keys() {
		if _, _, known := s.Field(k); !known {
			cc.add(field+"."+k, "is not in the schema")
			good = false
		}
	}
	if !good {
		return nil
	}
	return cc.check(field)(record.NewRecord(s, fields))
}

func (cc *controlCompiler) enum(field string, s *record.Schema, raw any, prefixes []string, depth int) *record.Control {
	var (
		name  string
		inner any
	)
	switch t := raw.(type) {
	case string:
		name, inner = t, NewObject()
	case *Object:
		if t.Len() != 1 {
			cc.add(field, "enum takes exactly one variant key, got %d", t.Len())
			return nil
		}
		name = t.Keys()[0]
		inner, _ = t.Get(name)
		if inner == nil {
			inner = NewObject()
		}
	default:
		cc.add(field, "expected a variant name or {variant: ...}, got %s", describe(raw))
		return nil
	}
	_, vs, ok := s.Variant(name)
	if !ok {
		cc.add(field, "unknown variant %q", name)
		return nil
	}
	c := cc.compile(field+"."+name, vs, inner, prefixes, depth)
	if c == nil {
		return nil
	}
	return cc.check(field)(record.NewEnum(s, name, c))
}

// elements compiles a list body. Items are either leaves of the item schema,
// repeat blocks {repeat, prefix?, what}, or {item, blend_next} wrappers.
func (cc *controlCompiler) elements(field string, elem *record.Schema, raw any, prefixes []string, depth int) ([]unitcell.Element[*record.Control], bool) {
	list, ok := raw.([]any)
	if !ok {
		cc.add(field, "expected a list, got %s", describe(raw))
		return nil, false
	}

	out := make([]unitcell.Element[*record.Control], 0, len(list))
	good := true
	for i, item := range list {
		itemField := fmt.Sprintf("%s.%d", field, i)
		obj, isObj := item.(*Object)

		switch {
		case isObj && obj.Has("repeat") && !isRecordWith(elem, "repeat"):
			e, ok := cc.repeat(itemField, elem, obj, prefixes, depth)
			good = good && ok
			out = append(out, e)

		case isObj && obj.Has("item") && !isRecordWith(elem, "item"):
			for _, k := range obj.Keys() {
				if k != "item" && k != "blend_next" {
					cc.add(itemField+"."+k, "unknown key in item wrapper")
					good = false
				}
			}
			blend := 0
			if rb, ok := obj.Get("blend_next"); ok {
				n, isInt := rb.(int64)
				if !isInt || n < 0 {
					cc.add(itemField+".blend_next", "must be a non-negative integer")
					good = false
				}
				blend = int(n)
			}
			rv, _ := obj.Get("item")
			c := cc.compile(itemField+".item", elem, rv, prefixes, depth)
			if c == nil {
				good = false
				continue
			}
			out = append(out, unitcell.SingleBlend(c, blend))

		default:
			c := cc.compile(itemField, elem, item, prefixes, depth)
			if c == nil {
				good = false
				continue
			}
			out = append(out, unitcell.Single(c))
		}
	}
	return out, good
}

func isRecordWith(s *record.Schema, name string) bool {
	if s.Kind != record.KindRecord {
		return false
	}
	_, _, ok := s.Field(name)
	return ok
}

func (cc *controlCompiler) repeat(field string, elem *record.Schema, obj *Object, prefixes []string, depth int) (unitcell.Element[*record.Control], bool) {
	var zero unitcell.Element[*record.Control]

	for _, k := range obj.Keys() {
		if k != "repeat" && k != "prefix" && k != "what" {
			cc.add(field+"."+k, "unknown key in repeat block")
			return zero, false
		}
	}
	if depth+1 > cc.limits.MaxDepth {
		cc.addErr(field, evalctx.NewLimitError("repeat nesting deeper than %d", cc.limits.MaxDepth))
		return zero, false
	}

	prefix := unitcell.DefaultPrefix
	if rp, ok := obj.Get("prefix"); ok {
		s, isStr := rp.(string)
		if !isStr {
			cc.add(field+".prefix", "must be a string")
			return zero, false
		}
		if _, err := unitcell.NewIndex(0, 0, 0, 1, 1, 1).Layer(s); err != nil {
			cc.addErr(field+".prefix", err)
			return zero, false
		}
		prefix = s
	}

	rawCount, _ := obj.Get("repeat")
	spec, ok := cc.countSpec(field+".repeat", rawCount, prefixes)
	if !ok {
		return zero, false
	}

	rawWhat, ok := obj.Get("what")
	if !ok {
		cc.add(field+".what", "is required")
		return zero, false
	}
	inner := append(append([]string(nil), prefixes...), prefix)
	what, ok := cc.elements(field+".what", elem, rawWhat, inner, depth+1)
	if !ok {
		return zero, false
	}
	return unitcell.Nested(spec, prefix, what...), true
}

// countSpec accepts a number or expression, {x, y} or {count, blend}.
func (cc *controlCompiler) countSpec(field string, raw any, prefixes []string) (unitcell.RepeatSpec, bool) {
	obj, isObj := raw.(*Object)
	if !isObj {
		v, ok := cc.value(field, raw, prefixes)
		return unitcell.Count(v), ok
	}

	get := func(key string) (control.Value, bool) {
		rv, present := obj.Get(key)
		if !present {
			cc.add(field+"."+key, "is required")
			return control.Value{}, false
		}
		return cc.value(field+"."+key, rv, prefixes)
	}

	switch {
	case obj.Has("x") || obj.Has("y"):
		x, okX := get("x")
		y, okY := get("y")
		if obj.Len() != 2 {
			cc.add(field, "grid repeat takes only x and y")
			return unitcell.RepeatSpec{}, false
		}
		return unitcell.Rect(x, y), okX && okY
	case obj.Has("count"):
		n, okN := get("count")
		b := control.Int(0)
		okB := true
		if obj.Has("blend") {
			b, okB = get("blend")
		}
		return unitcell.Blend(n, b), okN && okB
	default:
		cc.add(field, "expected a count, {x, y} or {count, blend}")
		return unitcell.RepeatSpec{}, false
	}
}
