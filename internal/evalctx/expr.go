package evalctx

import (
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

const exprFilename = "<expr>"

// Expr is a parsed expression. It is immutable and safe to share between
// contexts and goroutines.
type Expr struct {
	src   string
	expr  hclsyntax.Expression
	roots []string // root identifiers referenced, sorted
	funcs []string // function names called, sorted
}

// Parse parses src with the hclsyntax expression grammar.
// Returns a MALFORMED_EXPRESSION error on syntax errors.
func Parse(src string) (*Expr, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, &Error{Code: ErrCodeMalformedExpression, Message: "empty expression"}
	}

	expr, diags := hclsyntax.ParseExpression([]byte(src), exprFilename, hcl.Pos{Line: 1, Column: 1, Byte: 0})
	if diags.HasErrors() {
		return nil, diagError(diags, src, true)
	}

	e := &Expr{src: src, expr: expr}
	e.roots, e.funcs = references(expr)
	return e, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level tables.
func MustParse(src string) *Expr {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the source text.
func (e *Expr) String() string {
	return e.src
}

// Identifiers returns the root variable names the expression reads.
func (e *Expr) Identifiers() []string {
	return append([]string(nil), e.roots...)
}

// Functions returns the function names the expression calls.
func (e *Expr) Functions() []string {
	return append([]string(nil), e.funcs...)
}

// references collects root identifiers and called functions, both sorted
// for deterministic error reporting.
func references(expr hclsyntax.Expression) ([]string, []string) {
	roots := make(map[string]struct{})
	for _, tr := range expr.Variables() {
		roots[tr.RootName()] = struct{}{}
	}
	funcs := make(map[string]struct{})
	walkForFunctions(expr, funcs)

	return sortedKeys(roots), sortedKeys(funcs)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// walkForFunctions walks the AST looking for function calls, which
// Variables() does not report.
func walkForFunctions(expr hclsyntax.Expression, functions map[string]struct{}) {
	if expr == nil {
		return
	}
	hclsyntax.VisitAll(expr, func(n hclsyntax.Node) hcl.Diagnostics {
		if call, ok := n.(*hclsyntax.FunctionCallExpr); ok {
			functions[call.Name] = struct{}{}
		}
		return nil
	})
}
