package record

import (
	"fmt"

	"github.com/roach88/livecode/internal/boop"
	"github.com/roach88/livecode/internal/control"
)

// Kind is the type of a schema node.
type Kind uint8

const (
	KindNum Kind = iota + 1
	KindBool
	KindInt
	KindVec2
	KindVec3
	KindVec4
	KindColor
	KindList
	KindRecord
	KindEnum
)

var kindNames = map[Kind]string{
	KindNum:    "num",
	KindBool:   "bool",
	KindInt:    "int",
	KindVec2:   "vec2",
	KindVec3:   "vec3",
	KindVec4:   "vec4",
	KindColor:  "color",
	KindList:   "list",
	KindRecord: "record",
	KindEnum:   "enum",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind returns the Kind named s.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// Width returns the component count of vector kinds, 1 for scalars and 0
// for composite kinds.
func (k Kind) Width() int {
	switch k {
	case KindNum, KindBool, KindInt:
		return 1
	case KindVec2:
		return 2
	case KindVec3:
		return 3
	case KindVec4, KindColor:
		return 4
	default:
		return 0
	}
}

// IsVector reports whether k is a fixed-width vector kind.
func (k Kind) IsVector() bool {
	return k.Width() > 1
}

// componentNames name vector components in dotted paths.
var (
	vecComponents   = [4]string{"x", "y", "z", "w"}
	colorComponents = [4]string{"h", "s", "v", "a"}
)

func (k Kind) component(i int) string {
	if k == KindColor {
		return colorComponents[i]
	}
	return vecComponents[i]
}

// Field is a named schema. Used for record fields and enum variants.
type Field struct {
	Name   string
	Schema *Schema
}

// Schema describes one node of a record.
type Schema struct {
	Kind Kind

	// Bounds clamps num and int values, and every component of vectors.
	// Colors always clamp saturation and value to [0, 1] as well.
	Bounds control.Bounds

	// Filter overrides the smoothing filter for this subtree.
	Filter *boop.FilterKind

	// Elem is the item schema of a list.
	Elem *Schema

	// Fields are the fields of a record, in declaration order.
	Fields []Field

	// Variants are the alternatives of an enum, in declaration order.
	Variants []Field
}

// Num returns a num schema.
func Num() *Schema { return &Schema{Kind: KindNum} }

// Bool returns a bool schema.
func Bool() *Schema { return &Schema{Kind: KindBool} }

// Int returns an int schema.
func Int() *Schema { return &Schema{Kind: KindInt} }

// Vec returns a vector schema of width n (2, 3 or 4).
func Vec(n int) *Schema {
	switch n {
	case 2:
		return &Schema{Kind: KindVec2}
	case 3:
		return &Schema{Kind: KindVec3}
	default:
		return &Schema{Kind: KindVec4}
	}
}

// Color returns an HSVA color schema.
func Color() *Schema { return &Schema{Kind: KindColor} }

// ListOf returns a list schema.
func ListOf(elem *Schema) *Schema { return &Schema{Kind: KindList, Elem: elem} }

// RecordOf returns a record schema.
func RecordOf(fields ...Field) *Schema { return &Schema{Kind: KindRecord, Fields: fields} }

// EnumOf returns an enum schema.
func EnumOf(variants ...Field) *Schema { return &Schema{Kind: KindEnum, Variants: variants} }

// F is shorthand for a Field.
func F(name string, s *Schema) Field { return Field{Name: name, Schema: s} }

// WithBounds sets Bounds and returns s.
func (s *Schema) WithBounds(b control.Bounds) *Schema {
	s.Bounds = b
	return s
}

// WithFilter sets Filter and returns s.
func (s *Schema) WithFilter(k boop.FilterKind) *Schema {
	s.Filter = &k
	return s
}

// Zero returns the type default of s: zero numbers and vectors, empty
// lists, and the first variant of an enum.
func (s *Schema) Zero() Value {
	v := Value{Kind: s.Kind}
	switch {
	case s.Kind.IsVector():
		v.Vec = make([]float64, s.Kind.Width())
	case s.Kind == KindRecord:
		v.Fields = make([]FieldValue, len(s.Fields))
		for i, f := range s.Fields {
			v.Fields[i] = FieldValue{Name: f.Name, Value: f.Schema.Zero()}
		}
	case s.Kind == KindEnum && len(s.Variants) > 0:
		first := s.Variants[0]
		v.Variant = first.Name
		if first.Schema != nil {
			inner := first.Schema.Zero()
			v.Inner = &inner
		}
	}
	return v
}

// Field returns the index and schema of the named record field.
func (s *Schema) Field(name string) (int, *Schema, bool) {
	for i, f := range s.Fields {
		if f.Name == name {
			return i, f.Schema, true
		}
	}
	return -1, nil, false
}

// Variant returns the index and schema of the named enum variant.
func (s *Schema) Variant(name string) (int, *Schema, bool) {
	for i, v := range s.Variants {
		if v.Name == name {
			return i, v.Schema, true
		}
	}
	return -1, nil, false
}

// Validate checks that the schema is well formed.
func (s *Schema) Validate() error {
	return s.validate("")
}

func (s *Schema) validate(path string) error {
	if s == nil {
		return &SchemaError{Path: path, Message: "missing schema"}
	}
	switch s.Kind {
	case KindNum, KindBool, KindInt, KindVec2, KindVec3, KindVec4, KindColor:
		return nil
	case KindList:
		return s.Elem.validate(path + "[]")
	case KindRecord, KindEnum:
		members := s.Fields
		if s.Kind == KindEnum {
			members = s.Variants
			if len(members) == 0 {
				return &SchemaError{Path: path, Message: "enum without variants"}
			}
		}
		seen := make(map[string]bool, len(members))
		for _, f := range members {
			if f.Name == "" {
				return &SchemaError{Path: path, Message: "unnamed member"}
			}
			if seen[f.Name] {
				return &SchemaError{Path: path, Message: fmt.Sprintf("duplicate member %q", f.Name)}
			}
			seen[f.Name] = true
			if err := f.Schema.validate(boop.Join(path, f.Name)); err != nil {
				return err
			}
		}
		return nil
	default:
		return &SchemaError{Path: path, Message: fmt.Sprintf("unknown kind %s", s.Kind)}
	}
}

// SchemaError reports a malformed schema.
type SchemaError struct {
	Path    string
	Message string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return "schema: " + e.Message
	}
	return fmt.Sprintf("schema %s: %s", e.Path, e.Message)
}
