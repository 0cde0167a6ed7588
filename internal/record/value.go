package record

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/livecode/internal/boop"
	"github.com/roach88/livecode/internal/evalctx"
)

// Value is a resolved record node. Which fields are meaningful depends on Kind.
type Value struct {
	Kind Kind

	Num  float64 // num
	Int  int64   // int
	Bool bool    // bool
	Vec  []float64

	Items  []Value      // list
	Fields []FieldValue // record

	Variant string // enum
	Inner   *Value
}

// FieldValue is one resolved record field.
type FieldValue struct {
	Name  string
	Value Value
}

// Scalar is one entry of a flattened Value.
type Scalar struct {
	Path  string
	Value float64
}

// Field returns the named record field.
func (v Value) Field(name string) (Value, bool) {
	for _, f := range v.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Float returns the numeric reading of a scalar: num as is, int widened,
// bool as +-1.
func (v Value) Float() float64 {
	switch v.Kind {
	case KindInt:
		return float64(v.Int)
	case KindBool:
		if v.Bool {
			return 1
		}
		return -1
	default:
		return v.Num
	}
}

// Flatten returns every scalar in declaration order, keyed by dotted path.
// Vector components are named x, y, z, w; color channels h, s, v, a; list
// items by position; enum payloads by variant name.
func (v Value) Flatten() []Scalar {
	var out []Scalar
	v.walk("", func(path string, leaf Value, _ int) {
		out = append(out, Scalar{Path: path, Value: leaf.Float()})
	})
	return out
}

// FlattenMap is Flatten as a map.
func (v Value) FlattenMap() map[string]float64 {
	flat := v.Flatten()
	out := make(map[string]float64, len(flat))
	for _, s := range flat {
		out[s.Path] = s.Value
	}
	return out
}

// walk visits scalar leaves. Vector components are visited as num leaves
// with comp set to their index; plain scalars have comp -1.
func (v Value) walk(path string, fn func(path string, leaf Value, comp int)) {
	switch {
	case v.Kind == 0:
		// The zero Value has no leaves.
	case v.Kind.IsVector():
		for i, c := range v.Vec {
			fn(boop.Join(path, v.Kind.component(i)), Value{Kind: KindNum, Num: c}, i)
		}
	case v.Kind == KindList:
		for i, item := range v.Items {
			item.walk(boop.Item(path, i), fn)
		}
	case v.Kind == KindRecord:
		for _, f := range v.Fields {
			f.Value.walk(boop.Join(path, f.Name), fn)
		}
	case v.Kind == KindEnum:
		if v.Inner != nil {
			v.Inner.walk(boop.Join(path, v.Variant), fn)
		}
	default:
		fn(path, v, -1)
	}
}

// At returns the node at a dotted path, using the same segment names as
// Flatten. The empty path is v itself.
func (v Value) At(path string) (Value, bool) {
	path = boop.NormalizePath(path)
	if path == "" {
		return v, true
	}
	cur := v
	for _, seg := range strings.Split(path, ".") {
		next, ok := cur.child(seg)
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

func (v Value) child(seg string) (Value, bool) {
	switch {
	case v.Kind.IsVector():
		for i := range v.Vec {
			if v.Kind.component(i) == seg {
				return Value{Kind: KindNum, Num: v.Vec[i]}, true
			}
		}
	case v.Kind == KindList:
		i, err := strconv.Atoi(seg)
		if err == nil && i >= 0 && i < len(v.Items) {
			return v.Items[i], true
		}
	case v.Kind == KindRecord:
		return v.Field(seg)
	case v.Kind == KindEnum:
		if v.Variant == seg && v.Inner != nil {
			return *v.Inner, true
		}
	}
	return Value{}, false
}

// Lerp interpolates from -> to at pct. Numbers interpolate linearly and ints
// round. Bools, enum variants and lists of different lengths switch from
// one side to the other at pct = 0.5.
func Lerp(from, to Value, pct float64) Value {
	if from.Kind != to.Kind {
		return pick(from, to, pct)
	}
	switch from.Kind {
	case KindNum:
		return Value{Kind: KindNum, Num: evalctx.Lerp(from.Num, to.Num, pct)}
	case KindInt:
		return Value{Kind: KindInt, Int: int64(math.Round(evalctx.Lerp(float64(from.Int), float64(to.Int), pct)))}
	case KindVec2, KindVec3, KindVec4, KindColor:
		if len(from.Vec) != len(to.Vec) {
			return pick(from, to, pct)
		}
		out := make([]float64, len(from.Vec))
		for i := range out {
			out[i] = evalctx.Lerp(from.Vec[i], to.Vec[i], pct)
		}
		return Value{Kind: from.Kind, Vec: out}
	case KindList:
		if len(from.Items) != len(to.Items) {
			return pick(from, to, pct)
		}
		out := make([]Value, len(from.Items))
		for i := range out {
			out[i] = Lerp(from.Items[i], to.Items[i], pct)
		}
		return Value{Kind: KindList, Items: out}
	case KindRecord:
		if len(from.Fields) != len(to.Fields) {
			return pick(from, to, pct)
		}
		out := make([]FieldValue, len(from.Fields))
		for i, f := range from.Fields {
			out[i] = FieldValue{Name: f.Name, Value: Lerp(f.Value, to.Fields[i].Value, pct)}
		}
		return Value{Kind: KindRecord, Fields: out}
	case KindEnum:
		if from.Variant != to.Variant || from.Inner == nil || to.Inner == nil {
			return pick(from, to, pct)
		}
		inner := Lerp(*from.Inner, *to.Inner, pct)
		return Value{Kind: KindEnum, Variant: from.Variant, Inner: &inner}
	default:
		return pick(from, to, pct)
	}
}

func pick(from, to Value, pct float64) Value {
	if pct < 0.5 {
		return from
	}
	return to
}

// MarshalJSON renders the natural JSON shape: numbers, booleans, arrays for
// vectors and lists, objects (in declaration order) for records and colors,
// and {"variant": payload} for enums.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.Kind {
	case KindNum:
		return encodeFloat(buf, v.Num)
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.Int, 10))
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.Bool))
	case KindColor:
		buf.WriteByte('{')
		for i, c := range v.Vec {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(strconv.Quote(colorComponents[i]))
			buf.WriteByte(':')
			if err := encodeFloat(buf, c); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case KindVec2, KindVec3, KindVec4:
		buf.WriteByte('[')
		for i, c := range v.Vec {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeFloat(buf, c); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindList:
		buf.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindRecord:
		buf.WriteByte('{')
		for i, f := range v.Fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, _ := json.Marshal(f.Name)
			buf.Write(key)
			buf.WriteByte(':')
			if err := f.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case KindEnum:
		key, _ := json.Marshal(v.Variant)
		buf.WriteByte('{')
		buf.Write(key)
		buf.WriteByte(':')
		if v.Inner == nil {
			buf.WriteString("null")
		} else if err := v.Inner.encode(buf); err != nil {
			return err
		}
		buf.WriteByte('}')
	default:
		buf.WriteString("null")
	}
	return nil
}

func encodeFloat(buf *bytes.Buffer, f float64) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
