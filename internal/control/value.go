package control

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/livecode/internal/evalctx"
)

// ResolvesTo is implemented by anything that produces a concrete T from a
// context. Every control type in this package implements it.
type ResolvesTo[T any] interface {
	Resolve(ctx *evalctx.Context) (T, error)
}

// Kind discriminates the Value variants.
type Kind uint8

const (
	// KindFloat is a literal float. The zero Value is Float(0).
	KindFloat Kind = iota
	// KindBool is a literal bool.
	KindBool
	// KindInt is a literal int.
	KindInt
	// KindExpr is a parsed expression.
	KindExpr
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindExpr:
		return "expr"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a literal or an expression. Values are small, immutable and
// passed by value.
type Value struct {
	kind Kind
	num  float64
	flag bool
	i    int64
	expr *evalctx.Expr
}

// Float creates a literal float Value.
func Float(f float64) Value {
	return Value{kind: KindFloat, num: f}
}

// Bool creates a literal bool Value.
func Bool(b bool) Value {
	return Value{kind: KindBool, flag: b}
}

// Int creates a literal int Value.
func Int(i int64) Value {
	return Value{kind: KindInt, i: i}
}

// Expression wraps a parsed expression.
func Expression(e *evalctx.Expr) Value {
	return Value{kind: KindExpr, expr: e}
}

// Parse interprets src as a literal if it is one (int, float, true, false)
// and as an expression otherwise.
func Parse(src string) (Value, error) {
	s := strings.TrimSpace(src)
	switch s {
	case "true":
		return Bool(true), nil
	case "false":
		return Bool(false), nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(i), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return Float(f), nil
	}
	e, err := evalctx.Parse(s)
	if err != nil {
		return Value{}, err
	}
	return Expression(e), nil
}

// MustParse is like Parse but panics on error.
func MustParse(src string) Value {
	v, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return v
}

// FromAny converts a decoded document scalar (YAML, JSON, CUE) into a Value.
// Strings go through Parse; numbers and bools become literals.
func FromAny(raw any) (Value, error) {
	switch val := raw.(type) {
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(int64(val)), nil
	case int64:
		return Int(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return Float(float64(val)), nil
		}
		return Int(int64(val)), nil
	case float64:
		if math.IsNaN(val) {
			return Value{}, evalctx.NewTypeMismatchError("NaN is not a valid control literal", "")
		}
		return Float(val), nil
	case json.Number:
		return Parse(val.String())
	case string:
		return Parse(val)
	case nil:
		return Value{}, evalctx.NewTypeMismatchError("missing value", "")
	default:
		return Value{}, evalctx.NewTypeMismatchError(fmt.Sprintf("unsupported control literal of type %T", raw), "")
	}
}

// Kind returns the variant.
func (v Value) Kind() Kind {
	return v.kind
}

// IsLiteral reports whether v resolves without a context.
func (v Value) IsLiteral() bool {
	return v.kind != KindExpr
}

// Expr returns the wrapped expression, or nil for literals.
func (v Value) Expr() *evalctx.Expr {
	return v.expr
}

// String renders v the way it would appear in a document.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.flag)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindExpr:
		return v.expr.String()
	default:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	}
}

// Resolve returns v as a number.
func (v Value) Resolve(ctx *evalctx.Context) (float64, error) {
	switch v.kind {
	case KindBool:
		return boolToFloat(v.flag), nil
	case KindInt:
		return float64(v.i), nil
	case KindExpr:
		f, numErr := ctx.ResolveNumeric(v.expr)
		if numErr == nil {
			return f, nil
		}
		if !evalctx.IsTypeMismatch(numErr) {
			return 0, numErr
		}
		b, boolErr := ctx.ResolveBoolean(v.expr)
		if boolErr != nil {
			return 0, numErr
		}
		return boolToFloat(b), nil
	default:
		return v.num, nil
	}
}

// ResolveBool returns v as a boolean. Numbers are true when > 0.
func (v Value) ResolveBool(ctx *evalctx.Context) (bool, error) {
	switch v.kind {
	case KindBool:
		return v.flag, nil
	case KindInt:
		return v.i > 0, nil
	case KindExpr:
		b, boolErr := ctx.ResolveBoolean(v.expr)
		if boolErr == nil {
			return b, nil
		}
		if !evalctx.IsTypeMismatch(boolErr) {
			return false, boolErr
		}
		f, numErr := ctx.ResolveNumeric(v.expr)
		if numErr != nil {
			return false, boolErr
		}
		return f > 0, nil
	default:
		return v.num > 0, nil
	}
}

// ResolveInt returns v rounded down to an integer. Non-finite results are a
// type mismatch.
func (v Value) ResolveInt(ctx *evalctx.Context) (int64, error) {
	if v.kind == KindInt {
		return v.i, nil
	}
	f, err := v.Resolve(ctx)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt64/2 {
		return 0, evalctx.NewTypeMismatchError(fmt.Sprintf("%v is not a representable integer", f), v.String())
	}
	return int64(math.Floor(f)), nil
}

// ResolveWithin resolves v and applies b.
func (v Value) ResolveWithin(ctx *evalctx.Context, b Bounds) (float64, error) {
	f, err := v.Resolve(ctx)
	if err != nil {
		return 0, err
	}
	return b.Apply(f), nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1.0
	}
	return -1.0
}

// Bounds is an optional clamp applied by the caller after resolution.
type Bounds struct {
	Min, Max       float64
	HasMin, HasMax bool
}

// Unbounded applies no clamp.
var Unbounded = Bounds{}

// Range clamps to [lo, hi].
func Range(lo, hi float64) Bounds {
	return Bounds{Min: lo, Max: hi, HasMin: true, HasMax: true}
}

// AtLeast clamps from below only.
func AtLeast(lo float64) Bounds {
	return Bounds{Min: lo, HasMin: true}
}

// AtMost clamps from above only.
func AtMost(hi float64) Bounds {
	return Bounds{Max: hi, HasMax: true}
}

// Apply clamps x.
func (b Bounds) Apply(x float64) float64 {
	if b.HasMin && x < b.Min {
		x = b.Min
	}
	if b.HasMax && x > b.Max {
		x = b.Max
	}
	return x
}

// IsZero reports whether b applies no clamp.
func (b Bounds) IsZero() bool {
	return !b.HasMin && !b.HasMax
}
