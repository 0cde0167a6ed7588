package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError is one problem found while compiling a document. Field is
// the dotted path of the offending node.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
	Err     error
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying error, if any.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// Errors is every CompileError of one document, in discovery order.
type Errors []*CompileError

func (es Errors) Error() string {
	switch len(es) {
	case 0:
		return "no errors"
	case 1:
		return es[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d errors:", len(es))
	for _, e := range es {
		b.WriteString("\n  ")
		b.WriteString(e.Error())
	}
	return b.String()
}

// Unwrap exposes each CompileError to errors.Is and errors.As.
func (es Errors) Unwrap() []error {
	out := make([]error, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}

// errs accumulates CompileErrors.
type errs struct {
	list Errors
}

func (c *errs) add(field, format string, args ...any) {
	c.list = append(c.list, &CompileError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (c *errs) addErr(field string, err error) {
	c.list = append(c.list, &CompileError{Field: field, Message: err.Error(), Err: err})
}

func (c *errs) err() error {
	if len(c.list) == 0 {
		return nil
	}
	return c.list
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	all := errors.Errors(err)
	if len(all) == 0 {
		return err
	}

	out := make(Errors, 0, len(all))
	for _, e := range all {
		ce := &CompileError{Field: "cue", Message: e.Error(), Err: e}
		if positions := errors.Positions(e); len(positions) > 0 {
			ce.Pos = positions[0]
		}
		out = append(out, ce)
	}
	return out
}
