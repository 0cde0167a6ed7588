package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/livecode/internal/boop"
	"github.com/roach88/livecode/internal/evalctx"
	"github.com/roach88/livecode/internal/record"
	"github.com/roach88/livecode/internal/unitcell"
)

// Document is a compiled livecode document.
type Document struct {
	Name     string
	Schema   *record.Schema
	Defs     *evalctx.Layer
	Context  *evalctx.Layer
	Boop     boop.Config
	Controls *record.Control
	Limits   unitcell.Limits

	refs []exprRef
}

// exprRef is an expression found in the controls, with the repeat prefixes
// in scope where it appears.
type exprRef struct {
	field    string
	expr     *evalctx.Expr
	prefixes []string
}

// Layers returns the document's definition layers in application order:
// defs, then the context program.
func (d *Document) Layers() []*evalctx.Layer {
	var out []*evalctx.Layer
	if d.Defs != nil {
		out = append(out, d.Defs)
	}
	if d.Context != nil {
		out = append(out, d.Context)
	}
	return out
}

var topLevelKeys = map[string]bool{
	"name": true, "schema": true, "context": true, "defs": true,
	"boop": true, "controls": true, "limits": true,
}

// Compile turns a decoded document tree into a Document. Every problem is
// reported; the returned error is an Errors.
func Compile(tree any) (*Document, error) {
	root, ok := tree.(*Object)
	if !ok {
		return nil, Errors{{Message: fmt.Sprintf("document must be a mapping, got %s", describe(tree))}}
	}

	c := &errs{}
	doc := &Document{Limits: unitcell.DefaultLimits}

	for _, k := range root.Keys() {
		if !topLevelKeys[k] {
			c.add(k, "unknown top-level key")
		}
	}

	if v, ok := root.Get("name"); ok {
		if s, ok := v.(string); ok {
			doc.Name = s
		} else {
			c.add("name", "must be a string")
		}
	}

	if v, ok := root.Get("limits"); ok {
		doc.Limits = compileLimits(c, v)
	}

	rawSchema, ok := root.Get("schema")
	if !ok {
		c.add("schema", "is required")
	} else {
		doc.Schema = compileSchema(c, "schema", rawSchema)
		if doc.Schema != nil && doc.Schema.Kind != record.KindRecord {
			c.add("schema", "top level must be a record")
			doc.Schema = nil
		}
	}

	if v, ok := root.Get("defs"); ok {
		doc.Defs = compileDefs(c, v)
	}
	if v, ok := root.Get("context"); ok {
		doc.Context = compileContext(c, v)
	}
	if v, ok := root.Get("boop"); ok {
		doc.Boop = compileBoop(c, v)
	}

	rawControls, ok := root.Get("controls")
	if !ok {
		c.add("controls", "is required")
	} else if doc.Schema != nil {
		cc := &controlCompiler{errs: c, limits: doc.Limits}
		doc.Controls = cc.compile("controls", doc.Schema, rawControls, nil, 0)
		doc.refs = cc.refs
	}

	if err := c.err(); err != nil {
		return nil, err
	}
	return doc, nil
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case *Object:
		return "mapping"
	case []any:
		return "list"
	case string:
		return "string"
	case bool:
		return "bool"
	case int64, float64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func compileLimits(c *errs, v any) unitcell.Limits {
	limits := unitcell.DefaultLimits
	obj, ok := v.(*Object)
	if !ok {
		c.add("limits", "must be a mapping")
		return limits
	}
	for _, k := range obj.Keys() {
		raw, _ := obj.Get(k)
		n, ok := raw.(int64)
		if !ok || n <= 0 {
			c.add("limits."+k, "must be a positive integer")
			continue
		}
		switch k {
		case "max_count":
			limits.MaxCount = int(n)
		case "max_depth":
			limits.MaxDepth = int(n)
		case "max_items":
			limits.MaxItems = int(n)
		default:
			c.add("limits."+k, "unknown limit")
		}
	}
	return limits
}

func compileDefs(c *errs, v any) *evalctx.Layer {
	obj, ok := v.(*Object)
	if !ok {
		c.add("defs", "must be a mapping of names to numbers or booleans")
		return nil
	}
	bindings := make([]evalctx.Binding, 0, obj.Len())
	for _, k := range obj.Keys() {
		raw, _ := obj.Get(k)
		switch raw.(type) {
		case int64, float64, bool:
			bindings = append(bindings, evalctx.Binding{Name: k, Value: raw})
		case string:
			c.add("defs."+k, "expressions belong in context; defs hold literals")
		default:
			c.add("defs."+k, "must be a number or boolean, got %s", describe(raw))
		}
	}
	layer, err := evalctx.NewBindings("", bindings...)
	if err != nil {
		c.addErr("defs", err)
		return nil
	}
	return layer
}

func compileContext(c *errs, v any) *evalctx.Layer {
	var src string
	switch t := v.(type) {
	case string:
		src = t
	case []any:
		lines := make([]string, 0, len(t))
		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				c.add(fmt.Sprintf("context.%d", i), "must be a string")
				continue
			}
			lines = append(lines, s)
		}
		src = strings.Join(lines, "\n")
	default:
		c.add("context", "must be a string or a list of strings")
		return nil
	}
	if strings.TrimSpace(src) == "" {
		return nil
	}
	layer, err := evalctx.NewProgram(src)
	if err != nil {
		c.addErr("context", err)
		return nil
	}
	return layer
}

func compileFilter(c *errs, field string, v any) (boop.FilterKind, bool) {
	switch t := v.(type) {
	case string:
		if t == "noop" {
			return boop.Noop, true
		}
		c.add(field, "unknown filter %q (want noop or {f, z, r})", t)
		return boop.Noop, false
	case *Object:
		params := map[string]float64{"f": 1, "z": 1, "r": 0}
		for _, k := range t.Keys() {
			raw, _ := t.Get(k)
			if _, known := params[k]; !known {
				c.add(field+"."+k, "unknown filter parameter")
				return boop.Noop, false
			}
			n, ok := asNumber(raw)
			if !ok {
				c.add(field+"."+k, "must be a number")
				return boop.Noop, false
			}
			params[k] = n
		}
		if params["f"] <= 0 {
			c.add(field+".f", "must be positive")
			return boop.Noop, false
		}
		return boop.ODE(params["f"], params["z"], params["r"]), true
	default:
		c.add(field, "must be noop or {f, z, r}")
		return boop.Noop, false
	}
}

func compileBoop(c *errs, v any) boop.Config {
	obj, ok := v.(*Object)
	if !ok {
		c.add("boop", "must be a mapping")
		return boop.Config{}
	}
	var (
		reset     bool
		def       = boop.DefaultFilter
		overrides map[string]boop.FilterKind
	)
	for _, k := range obj.Keys() {
		raw, _ := obj.Get(k)
		switch k {
		case "reset":
			b, ok := raw.(bool)
			if !ok {
				c.add("boop.reset", "must be a boolean")
			}
			reset = b
		case "default":
			if f, ok := compileFilter(c, "boop.default", raw); ok {
				def = f
			}
		case "overrides":
			o, ok := raw.(*Object)
			if !ok {
				c.add("boop.overrides", "must be a mapping of paths to filters")
				continue
			}
			overrides = make(map[string]boop.FilterKind, o.Len())
			for _, path := range o.Keys() {
				fv, _ := o.Get(path)
				if f, ok := compileFilter(c, "boop.overrides."+path, fv); ok {
					overrides[path] = f
				}
			}
		default:
			c.add("boop."+k, "unknown key")
		}
	}
	return boop.NewConfig(reset, def, overrides)
}

// OverridePaths returns the configured override paths, sorted.
func (d *Document) OverridePaths() []string {
	out := make([]string, 0, len(d.Boop.Overrides))
	for p := range d.Boop.Overrides {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
