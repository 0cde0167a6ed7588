package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/livecode/internal/boop"
	"github.com/roach88/livecode/internal/evalctx"
	"github.com/roach88/livecode/internal/unitcell"
)

// Validation codes (E200-E299). Validation runs on a compiled Document and
// reports problems that only show up at frame time.
const (
	ErrOverridePath      = "E201" // boop override path matches no schema path
	ErrUnknownIdentifier = "E202" // expression references a name nothing defines
	ErrUnknownFunction   = "E203" // expression calls a function that isn't built in
	ErrShadowedConstant  = "E204" // defs or context redefine a built-in constant
	ErrShadowedPrefix    = "E205" // nested repeat reuses an enclosing prefix
)

// ValidationError represents a problem found by Validate.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors is the result of Validate as one error.
type ValidationErrors []ValidationError

func (es ValidationErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks a compiled document against the signal names the driver
// will provide. Names starting with key_ are always accepted because key
// signals appear when a key is first pressed.
// Returns all errors found (does not fail-fast).
func Validate(doc *Document, signals []string) []ValidationError {
	var out []ValidationError
	out = append(out, validateOverrides(doc)...)
	out = append(out, validateShadowing(doc)...)
	out = append(out, validateReferences(doc, signals)...)
	out = append(out, AnalyzeContext(doc)...)
	return out
}

func validateOverrides(doc *Document) []ValidationError {
	if doc.Schema == nil {
		return nil
	}
	paths := make(map[string]bool)
	schemaPaths(doc.Schema, "", paths)

	var out []ValidationError
	for _, p := range doc.OverridePaths() {
		if !paths[wildcardItems(p)] {
			out = append(out, ValidationError{
				Field:   "boop.overrides." + p,
				Message: "path matches no field of the schema",
				Code:    ErrOverridePath,
			})
		}
	}
	return out
}

// wildcardItems replaces numeric path segments with "*".
func wildcardItems(p string) string {
	parts := strings.Split(p, ".")
	for i, part := range parts {
		if part != "" && strings.Trim(part, "0123456789") == "" {
			parts[i] = "*"
		}
	}
	return strings.Join(parts, ".")
}

func constants() map[string]bool {
	out := make(map[string]bool)
	for _, n := range evalctx.Root().Names() {
		out[n] = true
	}
	return out
}

func validateShadowing(doc *Document) []ValidationError {
	builtin := constants()
	var out []ValidationError
	for _, l := range doc.Layers() {
		section := "defs"
		if l.Kind() == evalctx.LayerProgram {
			section = "context"
		}
		for _, n := range l.Names() {
			if builtin[n] {
				out = append(out, ValidationError{
					Field:   section + "." + n,
					Message: fmt.Sprintf("redefines built-in constant %s", n),
					Code:    ErrShadowedConstant,
				})
			}
		}
	}

	for _, ref := range doc.refs {
		seen := make(map[string]bool, len(ref.prefixes))
		for _, p := range ref.prefixes {
			if seen[p] {
				out = append(out, ValidationError{
					Field:   ref.field,
					Message: fmt.Sprintf("repeat prefix %q hides the enclosing repeat's bindings", p),
					Code:    ErrShadowedPrefix,
				})
				break
			}
			seen[p] = true
		}
	}
	return dedupe(out)
}

func validateReferences(doc *Document, signals []string) []ValidationError {
	known := constants()
	for _, s := range signals {
		known[s] = true
	}
	for _, l := range doc.Layers() {
		for _, n := range l.Names() {
			known[n] = true
		}
	}
	functions := make(map[string]bool)
	for _, f := range evalctx.Functions() {
		functions[f] = true
	}

	var indexNames []string
	for _, b := range unitcell.NewIndex(0, 0, 0, 1, 1, 1).Bindings() {
		indexNames = append(indexNames, b.Name)
	}

	var out []ValidationError
	if doc.Context != nil {
		for _, a := range doc.Context.Assignments() {
			field := "context." + a.Name
			for _, id := range a.Identifiers {
				if !known[id] && !strings.HasPrefix(id, "key_") {
					out = append(out, unknownIdentifier(field, id))
				}
			}
			for _, fn := range a.Functions {
				if !functions[fn] {
					out = append(out, unknownFunction(field, fn))
				}
			}
		}
	}
	for _, ref := range doc.refs {
		scope := make(map[string]bool)
		for _, p := range ref.prefixes {
			for _, n := range indexNames {
				scope[p+n] = true
			}
		}
		for _, id := range ref.expr.Identifiers() {
			if known[id] || scope[id] || strings.HasPrefix(id, "key_") {
				continue
			}
			out = append(out, unknownIdentifier(ref.field, id))
		}
		for _, fn := range ref.expr.Functions() {
			if !functions[fn] {
				out = append(out, unknownFunction(ref.field, fn))
			}
		}
	}
	return out
}

func unknownIdentifier(field, id string) ValidationError {
	return ValidationError{
		Field:   field,
		Message: fmt.Sprintf("%q is not a signal, def, context name or index binding in scope", id),
		Code:    ErrUnknownIdentifier,
	}
}

func unknownFunction(field, fn string) ValidationError {
	return ValidationError{
		Field:   field,
		Message: fmt.Sprintf("unknown function %s()", fn),
		Code:    ErrUnknownFunction,
	}
}

func dedupe(in []ValidationError) []ValidationError {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, e := range in {
		key := e.Code + "\x00" + e.Field + "\x00" + e.Message
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// OverrideFilters returns the resolved filter for each schema leaf path that
// an override touches. Used by the CLI to explain smoothing.
func OverrideFilters(doc *Document) map[string]boop.FilterKind {
	paths := make(map[string]bool)
	if doc.Schema != nil {
		schemaPaths(doc.Schema, "", paths)
	}
	out := make(map[string]boop.FilterKind)
	for p := range paths {
		if p == "" {
			continue
		}
		if k := doc.Boop.FilterFor(p); k != doc.Boop.Default {
			out[p] = k
		}
	}
	return out
}
