package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
)

// DecodeCUE walks a CUE value into a tree. The value must be concrete;
// CUE's own constraints (types, bounds, defaults) are applied first, so a
// CUE document can constrain its own controls. Field order follows the
// CUE source.
func DecodeCUE(v cue.Value) (any, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}
	return fromCUE(v, "")
}

// CompileCUE compiles a CUE value directly.
func CompileCUE(v cue.Value) (*Document, error) {
	tree, err := DecodeCUE(v)
	if err != nil {
		return nil, err
	}
	return Compile(tree)
}

func fromCUE(v cue.Value, field string) (any, error) {
	v, _ = v.Default()
	switch v.Kind() {
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := NewObject()
		for iter.Next() {
			label := iter.Selector().Unquoted()
			child, err := fromCUE(iter.Value(), joinField(field, label))
			if err != nil {
				return nil, err
			}
			obj.Set(label, child)
		}
		return obj, nil

	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := []any{}
		for i := 0; iter.Next(); i++ {
			child, err := fromCUE(iter.Value(), joinField(field, fmt.Sprint(i)))
			if err != nil {
				return nil, err
			}
			out = append(out, child)
		}
		return out, nil

	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
		}
		return n, nil

	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
		}
		return f, nil

	case cue.StringKind:
		s, _ := v.String()
		return s, nil

	case cue.BoolKind:
		b, _ := v.Bool()
		return b, nil

	case cue.NullKind:
		return nil, nil

	default:
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unsupported CUE kind: %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

func joinField(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "." + child
}
