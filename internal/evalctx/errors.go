package evalctx

import (
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2"
)

// ErrorCode categorizes evaluation errors.
type ErrorCode string

const (
	// ErrCodeUnknownIdentifier indicates a variable or function that no layer defines.
	ErrCodeUnknownIdentifier ErrorCode = "UNKNOWN_IDENTIFIER"

	// ErrCodeTypeMismatch indicates a value of the wrong type after every coercion was tried.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// ErrCodeMalformedExpression indicates a parse-time failure.
	ErrCodeMalformedExpression ErrorCode = "MALFORMED_EXPRESSION"

	// ErrCodeStructuralMismatch indicates a repeat or lazy shape that doesn't match the declared arity.
	ErrCodeStructuralMismatch ErrorCode = "STRUCTURAL_MISMATCH"

	// ErrCodeLimitExceeded indicates a repeat count or nesting depth above the configured bound.
	ErrCodeLimitExceeded ErrorCode = "LIMIT_EXCEEDED"
)

// Error is returned by every resolution path in the engine.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Name is the offending identifier, if any.
	Name string

	// Source is the expression text being evaluated, if any.
	Source string

	// Err is the underlying error (hcl diagnostics, function errors).
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Source != "" {
		msg = fmt.Sprintf("%s (in %q)", msg, e.Source)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// HasCode reports whether err wraps an *Error with the given code.
func HasCode(err error, code ErrorCode) bool {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

// IsUnknownIdentifier returns true if the error is an unresolved name.
func IsUnknownIdentifier(err error) bool {
	return HasCode(err, ErrCodeUnknownIdentifier)
}

// IsTypeMismatch returns true if the error is a coercion failure.
func IsTypeMismatch(err error) bool {
	return HasCode(err, ErrCodeTypeMismatch)
}

// IsMalformed returns true if the error is a parse failure.
func IsMalformed(err error) bool {
	return HasCode(err, ErrCodeMalformedExpression)
}

// IsStructuralMismatch returns true if the error is a shape mismatch.
func IsStructuralMismatch(err error) bool {
	return HasCode(err, ErrCodeStructuralMismatch)
}

// IsLimitExceeded returns true if the error is a bounds violation.
func IsLimitExceeded(err error) bool {
	return HasCode(err, ErrCodeLimitExceeded)
}

// NewUnknownIdentifierError creates an Error for an unresolved name.
func NewUnknownIdentifierError(name, source string) *Error {
	return &Error{
		Code:    ErrCodeUnknownIdentifier,
		Message: fmt.Sprintf("unknown identifier %q", name),
		Name:    name,
		Source:  source,
	}
}

// NewTypeMismatchError creates an Error for a coercion failure.
func NewTypeMismatchError(message, source string) *Error {
	return &Error{
		Code:    ErrCodeTypeMismatch,
		Message: message,
		Source:  source,
	}
}

// NewStructuralError creates an Error for a shape mismatch.
func NewStructuralError(format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeStructuralMismatch,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewLimitError creates an Error for a bounds violation.
func NewLimitError(format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeLimitExceeded,
		Message: fmt.Sprintf(format, args...),
	}
}

// diagError converts hcl diagnostics into an *Error.
// Parse diagnostics are always malformed; evaluation diagnostics are classified
// by their summary.
func diagError(diags hcl.Diagnostics, source string, parsing bool) *Error {
	code := ErrCodeTypeMismatch
	if parsing {
		code = ErrCodeMalformedExpression
	}
	msg := "evaluation failed"
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		msg = d.Summary
		if d.Detail != "" {
			msg = d.Summary + ": " + d.Detail
		}
		if !parsing {
			switch d.Summary {
			case "Unknown variable", "Call to unknown function":
				code = ErrCodeUnknownIdentifier
			case "Not enough function arguments", "Too many function arguments":
				code = ErrCodeMalformedExpression
			}
		}
		break
	}
	return &Error{Code: code, Message: msg, Source: source}
}
