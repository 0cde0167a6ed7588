package evalctx

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

const programFilename = "<context>"

// Binding is a single name -> literal pair. Value must be a number (any Go
// integer or float kind) or a bool; anything else is rejected when the
// Binding is placed into a Layer.
type Binding struct {
	Name  string
	Value any
}

// Num creates a numeric Binding.
func Num(name string, v float64) Binding {
	return Binding{Name: name, Value: v}
}

// Flag creates a boolean Binding.
func Flag(name string, v bool) Binding {
	return Binding{Name: name, Value: v}
}

// LayerKind discriminates the two Layer variants.
type LayerKind uint8

const (
	// LayerBindings is a flat set of name -> value bindings.
	LayerBindings LayerKind = iota + 1

	// LayerProgram is a list of assignments evaluated in source order.
	LayerProgram
)

// Layer is an immutable overlay applied on top of a Context.
// Layers are small and are passed by pointer; cloning is sharing.
type Layer struct {
	kind LayerKind

	prefix string
	names  []string
	values []cty.Value

	src     string
	assigns []*hclsyntax.Attribute
}

// NewBindings creates a flat layer. Every name is prefixed with prefix.
// Non-numeric, non-boolean values and NaN are construction-time errors.
func NewBindings(prefix string, bindings ...Binding) (*Layer, error) {
	l := &Layer{
		kind:   LayerBindings,
		prefix: prefix,
		names:  make([]string, 0, len(bindings)),
		values: make([]cty.Value, 0, len(bindings)),
	}
	for _, b := range bindings {
		name := prefix + b.Name
		if !hclsyntax.ValidIdentifier(name) {
			return nil, &Error{
				Code:    ErrCodeMalformedExpression,
				Message: fmt.Sprintf("invalid identifier %q", name),
				Name:    name,
			}
		}
		v, err := literal(b.Value)
		if err != nil {
			return nil, &Error{
				Code:    ErrCodeTypeMismatch,
				Message: fmt.Sprintf("binding %q: %v", name, err),
				Name:    name,
			}
		}
		l.names = append(l.names, name)
		l.values = append(l.values, v)
	}
	return l, nil
}

// MustBindings is like NewBindings but panics on error.
func MustBindings(prefix string, bindings ...Binding) *Layer {
	l, err := NewBindings(prefix, bindings...)
	if err != nil {
		panic(err)
	}
	return l
}

// NewProgram parses a context snippet: `name = expr` assignments separated by
// newlines or semicolons. Assignments are evaluated in source order and each
// sees the ones before it.
func NewProgram(src string) (*Layer, error) {
	text := strings.ReplaceAll(src, ";", "\n")
	file, diags := hclsyntax.ParseConfig([]byte(text), programFilename, hcl.Pos{Line: 1, Column: 1, Byte: 0})
	if diags.HasErrors() {
		return nil, diagError(diags, src, true)
	}

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, &Error{Code: ErrCodeMalformedExpression, Message: "unexpected body type", Source: src}
	}
	if len(body.Blocks) > 0 {
		return nil, &Error{
			Code:    ErrCodeMalformedExpression,
			Message: fmt.Sprintf("blocks are not allowed in context programs (found %q)", body.Blocks[0].Type),
			Source:  src,
		}
	}

	assigns := make([]*hclsyntax.Attribute, 0, len(body.Attributes))
	for _, attr := range body.Attributes {
		assigns = append(assigns, attr)
	}
	sort.Slice(assigns, func(i, j int) bool {
		return assigns[i].SrcRange.Start.Byte < assigns[j].SrcRange.Start.Byte
	})

	return &Layer{kind: LayerProgram, src: src, assigns: assigns}, nil
}

// Kind returns the layer variant.
func (l *Layer) Kind() LayerKind {
	return l.kind
}

// Names returns the names this layer defines, in definition order.
func (l *Layer) Names() []string {
	if l.kind == LayerProgram {
		out := make([]string, len(l.assigns))
		for i, a := range l.assigns {
			out[i] = a.Name
		}
		return out
	}
	return append([]string(nil), l.names...)
}

// apply writes the layer's definitions into child, which must be a fresh
// child context owned by the caller.
func (l *Layer) apply(child *hcl.EvalContext) error {
	switch l.kind {
	case LayerBindings:
		for i, name := range l.names {
			child.Variables[name] = l.values[i]
		}
		return nil
	case LayerProgram:
		for _, a := range l.assigns {
			v, diags := a.Expr.Value(child)
			if diags.HasErrors() {
				e := diagError(diags, l.src, false)
				e.Name = a.Name
				return e
			}
			child.Variables[a.Name] = v
		}
		return nil
	default:
		return NewStructuralError("unknown layer kind %d", l.kind)
	}
}

// literal converts a Go scalar into a cty value.
func literal(v any) (cty.Value, error) {
	switch val := v.(type) {
	case bool:
		return cty.BoolVal(val), nil
	case float64:
		return floatVal(val)
	case float32:
		return floatVal(float64(val))
	case int:
		return cty.NumberIntVal(int64(val)), nil
	case int32:
		return cty.NumberIntVal(int64(val)), nil
	case int64:
		return cty.NumberIntVal(val), nil
	case uint32:
		return cty.NumberUIntVal(uint64(val)), nil
	case uint64:
		return cty.NumberUIntVal(val), nil
	default:
		return cty.NilVal, fmt.Errorf("unsupported literal type %T (need number or bool)", v)
	}
}

func floatVal(f float64) (cty.Value, error) {
	if math.IsNaN(f) {
		return cty.NilVal, fmt.Errorf("NaN is not a valid literal")
	}
	return cty.NumberFloatVal(f), nil
}

// Assignment is one `name = expr` line of a program layer.
type Assignment struct {
	Name        string
	Identifiers []string
	Functions   []string
}

// Assignments returns the program's assignments in source order, with the
// names and functions each one references. Binding layers have none.
func (l *Layer) Assignments() []Assignment {
	if l.kind != LayerProgram {
		return nil
	}
	out := make([]Assignment, len(l.assigns))
	for i, a := range l.assigns {
		ids, fns := references(a.Expr)
		out[i] = Assignment{Name: a.Name, Identifiers: ids, Functions: fns}
	}
	return out
}
