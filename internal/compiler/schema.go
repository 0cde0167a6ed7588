package compiler

import (
	"github.com/roach88/livecode/internal/boop"
	"github.com/roach88/livecode/internal/control"
	"github.com/roach88/livecode/internal/record"
)

// compileSchema accepts three spellings:
//
//	radius: num                      scalar or vector kind name
//	dots: [{x: num, y: num}]         one-element list: a list of that schema
//	pos: {kind: vec2, min: 0, boop: noop}
//	dot: {x: num, y: num}            mapping without "kind": a record
func compileSchema(c *errs, field string, v any) *record.Schema {
	switch t := v.(type) {
	case string:
		k, ok := record.ParseKind(t)
		if !ok {
			c.add(field, "unknown kind %q", t)
			return nil
		}
		if k.Width() == 0 {
			c.add(field, "%s needs a full {kind: %s, ...} declaration", t, t)
			return nil
		}
		return &record.Schema{Kind: k}
	case []any:
		if len(t) != 1 {
			c.add(field, "list shorthand takes exactly one item schema")
			return nil
		}
		elem := compileSchema(c, field+"[]", t[0])
		if elem == nil {
			return nil
		}
		return record.ListOf(elem)
	case *Object:
		if t.Has("kind") {
			return compileFullSchema(c, field, t)
		}
		return compileRecordSchema(c, field, t)
	default:
		c.add(field, "expected a kind name, list or mapping, got %s", describe(v))
		return nil
	}
}

func compileRecordSchema(c *errs, field string, obj *Object) *record.Schema {
	fields := make([]record.Field, 0, obj.Len())
	ok := true
	for _, k := range obj.Keys() {
		raw, _ := obj.Get(k)
		s := compileSchema(c, field+"."+k, raw)
		if s == nil {
			ok = false
			continue
		}
		fields = append(fields, record.F(k, s))
	}
	if !ok {
		return nil
	}
	return record.RecordOf(fields...)
}

var schemaKeys = map[string]bool{
	"kind": true, "min": true, "max": true, "boop": true,
	"of": true, "fields": true, "variants": true,
}

func compileFullSchema(c *errs, field string, obj *Object) *record.Schema {
	for _, k := range obj.Keys() {
		if !schemaKeys[k] {
			c.add(field+"."+k, "unknown schema key")
		}
	}

	rawKind, _ := obj.Get("kind")
	name, _ := rawKind.(string)
	kind, ok := record.ParseKind(name)
	if !ok {
		c.add(field+".kind", "unknown kind %v", rawKind)
		return nil
	}

	var s *record.Schema
	switch kind {
	case record.KindList:
		raw, ok := obj.Get("of")
		if !ok {
			c.add(field+".of", "list needs an item schema")
			return nil
		}
		elem := compileSchema(c, field+"[]", raw)
		if elem == nil {
			return nil
		}
		s = record.ListOf(elem)
	case record.KindRecord:
		raw, ok := obj.Get("fields")
		fields, isObj := raw.(*Object)
		if !ok || !isObj {
			c.add(field+".fields", "record needs a mapping of fields")
			return nil
		}
		s = compileRecordSchema(c, field, fields)
	case record.KindEnum:
		raw, ok := obj.Get("variants")
		variants, isObj := raw.(*Object)
		if !ok || !isObj || variants.Len() == 0 {
			c.add(field+".variants", "enum needs a mapping of variants")
			return nil
		}
		members := make([]record.Field, 0, variants.Len())
		for _, name := range variants.Keys() {
			rv, _ := variants.Get(name)
			var vs *record.Schema
			if rv == nil {
				// Unit variant.
				vs = record.RecordOf()
			} else {
				vs = compileSchema(c, field+"."+name, rv)
			}
			if vs == nil {
				return nil
			}
			members = append(members, record.F(name, vs))
		}
		s = record.EnumOf(members...)
	default:
		s = &record.Schema{Kind: kind}
	}
	if s == nil {
		return nil
	}

	s.Bounds = compileBounds(c, field, obj)
	if raw, ok := obj.Get("boop"); ok {
		if f, ok := compileFilter(c, field+".boop", raw); ok {
			s.WithFilter(f)
		}
	}
	return s
}

func compileBounds(c *errs, field string, obj *Object) control.Bounds {
	var b control.Bounds
	if raw, ok := obj.Get("min"); ok {
		n, isNum := asNumber(raw)
		if !isNum {
			c.add(field+".min", "must be a number")
		} else {
			b.Min, b.HasMin = n, true
		}
	}
	if raw, ok := obj.Get("max"); ok {
		n, isNum := asNumber(raw)
		if !isNum {
			c.add(field+".max", "must be a number")
		} else {
			b.Max, b.HasMax = n, true
		}
	}
	if b.HasMin && b.HasMax && b.Min > b.Max {
		c.add(field, "min %g is greater than max %g", b.Min, b.Max)
	}
	return b
}

// schemaPaths lists the dotted paths a value of s can flatten to. List item
// positions are written as "*".
func schemaPaths(s *record.Schema, prefix string, out map[string]bool) {
	out[prefix] = true
	switch s.Kind {
	case record.KindVec2, record.KindVec3, record.KindVec4:
		for _, n := range []string{"x", "y", "z", "w"}[:s.Kind.Width()] {
			out[boop.Join(prefix, n)] = true
		}
	case record.KindColor:
		for _, n := range []string{"h", "s", "v", "a"} {
			out[boop.Join(prefix, n)] = true
		}
	case record.KindList:
		schemaPaths(s.Elem, boop.Join(prefix, "*"), out)
	case record.KindRecord:
		for _, f := range s.Fields {
			schemaPaths(f.Schema, boop.Join(prefix, f.Name), out)
		}
	case record.KindEnum:
		for _, v := range s.Variants {
			schemaPaths(v.Schema, boop.Join(prefix, v.Name), out)
		}
	}
}
