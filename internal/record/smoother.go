package record

import (
	"github.com/roach88/livecode/internal/boop"
)

// Smoother spring-filters successive Values of one record.
// It implements boop.BoopFrom[Value]. Not safe for concurrent use.
type Smoother struct {
	schema *Schema
	bank   *boop.Bank

	variants map[string]string
	lengths  map[string]int
}

var _ boop.BoopFrom[Value] = (*Smoother)(nil)

// NewSmoother creates a Smoother for values of schema.
func NewSmoother(schema *Schema) *Smoother {
	return &Smoother{
		schema:   schema,
		bank:     boop.NewBank(),
		variants: make(map[string]string),
		lengths:  make(map[string]int),
	}
}

// Bank exposes the underlying field bank.
func (s *Smoother) Bank() *boop.Bank {
	return s.bank
}

// Reset forgets all spring state.
func (s *Smoother) Reset() {
	s.bank = boop.NewBank()
	clear(s.variants)
	clear(s.lengths)
}

// BoopFrom smooths target toward the record's spring state and reports
// whether any field diverged during this step. Numeric scalars and vector
// components are smoothed; ints and bools pass through. When an enum switches
// variant or a list changes length, the state beneath it is discarded first.
func (s *Smoother) BoopFrom(conf boop.Config, now float64, target Value) (Value, bool) {
	weird := false
	out := s.smooth(conf, s.schema, nil, "", now, target, &weird)
	return out, weird
}

func (s *Smoother) smooth(conf boop.Config, schema *Schema, inherited *boop.FilterKind, path string, now float64, v Value, weird *bool) Value {
	if schema != nil && schema.Filter != nil {
		inherited = schema.Filter
	}

	switch v.Kind {
	case KindNum:
		v.Num = s.step(conf, inherited, path, now, v.Num, weird)
		if schema != nil {
			v.Num = schema.Bounds.Apply(v.Num)
		}
		return v

	case KindVec2, KindVec3, KindVec4, KindColor:
		if s.reshaped(path, len(v.Vec)) {
			s.bank.Forget(path)
		}
		out := make([]float64, len(v.Vec))
		for i, c := range v.Vec {
			out[i] = s.step(conf, inherited, boop.Join(path, v.Kind.component(i)), now, c, weird)
			if schema != nil {
				out[i] = schema.Bounds.Apply(out[i])
			}
		}
		if v.Kind == KindColor {
			clampColor(out)
		}
		v.Vec = out
		return v

	case KindList:
		if s.reshaped(path, len(v.Items)) {
			s.forgetBeneath(path)
		}
		var elem *Schema
		if schema != nil {
			elem = schema.Elem
		}
		out := make([]Value, len(v.Items))
		for i, item := range v.Items {
			out[i] = s.smooth(conf, elem, inherited, boop.Item(path, i), now, item, weird)
		}
		v.Items = out
		return v

	case KindRecord:
		out := make([]FieldValue, len(v.Fields))
		for i, f := range v.Fields {
			var fs *Schema
			if schema != nil {
				_, fs, _ = schema.Field(f.Name)
			}
			out[i] = FieldValue{Name: f.Name, Value: s.smooth(conf, fs, inherited, boop.Join(path, f.Name), now, f.Value, weird)}
		}
		v.Fields = out
		return v

	case KindEnum:
		if prev, ok := s.variants[path]; ok && prev != v.Variant {
			s.forgetBeneath(path)
		}
		s.variants[path] = v.Variant
		if v.Inner == nil {
			return v
		}
		var vs *Schema
		if schema != nil {
			_, vs, _ = schema.Variant(v.Variant)
		}
		inner := s.smooth(conf, vs, inherited, boop.Join(path, v.Variant), now, *v.Inner, weird)
		v.Inner = &inner
		return v

	default:
		return v
	}
}

func (s *Smoother) step(conf boop.Config, inherited *boop.FilterKind, path string, now, target float64, weird *bool) float64 {
	if inherited != nil {
		conf.Default = *inherited
	}
	y, w := s.bank.Step(conf, path, now, target)
	if w {
		*weird = true
	}
	return y
}

// reshaped records n as the shape at path and reports a change.
func (s *Smoother) reshaped(path string, n int) bool {
	prev, ok := s.lengths[path]
	s.lengths[path] = n
	return ok && prev != n
}

// forgetBeneath drops spring state and shape records strictly below path.
func (s *Smoother) forgetBeneath(path string) {
	s.bank.Forget(path)
	for p := range s.variants {
		if p != path && beneath(p, path) {
			delete(s.variants, p)
		}
	}
	for p := range s.lengths {
		if p != path && beneath(p, path) {
			delete(s.lengths, p)
		}
	}
}

func beneath(p, prefix string) bool {
	if prefix == "" {
		return true
	}
	return len(p) > len(prefix) && p[:len(prefix)] == prefix && p[len(prefix)] == '.'
}
