package predicate

import (
	"errors"
	"fmt"
)

// CompileError represents a predicate that cannot be compiled.
//
// Compile errors include:
//   - Unsupported predicate: an expression shape outside the grammar
//   - Unknown field: a field missing from the supplied metadata
//   - Unsupported nesting: a field chain deeper than one navigation level
//   - Value resolution: an operand that cannot be reduced to a value
//
// All of them abort the whole compilation; no partial SQL is returned.
type CompileError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Field names the offending field reference, if any.
	Field string

	// Expr is the source text of the offending expression, if any.
	Expr string

	// Err is the underlying cause (optional).
	Err error
}

// ErrorCode categorizes compile errors.
type ErrorCode string

const (
	// ErrCodeUnsupportedPredicate indicates an expression node shape outside
	// the supported grammar.
	ErrCodeUnsupportedPredicate ErrorCode = "UNSUPPORTED_PREDICATE"

	// ErrCodeUnknownField indicates a field absent from the field metadata.
	ErrCodeUnknownField ErrorCode = "UNKNOWN_FIELD"

	// ErrCodeUnsupportedNesting indicates a field reference chain deeper
	// than one level of navigation.
	ErrCodeUnsupportedNesting ErrorCode = "UNSUPPORTED_NESTING"

	// ErrCodeValueResolution indicates an operand that could not be reduced
	// to a concrete value at compile time.
	ErrCodeValueResolution ErrorCode = "VALUE_RESOLUTION"
)

// Error implements the error interface.
func (e *CompileError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Expr != "" {
		msg += fmt.Sprintf(" (expr=%s)", e.Expr)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the first CompileError in err's chain, or ""
// if there is none.
func CodeOf(err error) ErrorCode {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsUnsupportedPredicate returns true if err is an unsupported predicate
// error. Uses errors.As to handle wrapped errors.
func IsUnsupportedPredicate(err error) bool {
	return CodeOf(err) == ErrCodeUnsupportedPredicate
}

// IsUnknownField returns true if err is an unknown field error.
func IsUnknownField(err error) bool {
	return CodeOf(err) == ErrCodeUnknownField
}

// IsUnsupportedNesting returns true if err is an unsupported nesting error.
func IsUnsupportedNesting(err error) bool {
	return CodeOf(err) == ErrCodeUnsupportedNesting
}

// IsValueResolution returns true if err is a value resolution error.
func IsValueResolution(err error) bool {
	return CodeOf(err) == ErrCodeValueResolution
}

// NewUnsupportedPredicateError creates a CompileError for an unsupported
// expression shape.
func NewUnsupportedPredicateError(expr, format string, args ...any) *CompileError {
	return &CompileError{
		Code:    ErrCodeUnsupportedPredicate,
		Message: fmt.Sprintf(format, args...),
		Expr:    expr,
	}
}

// NewUnknownFieldError creates a CompileError for a field missing from the
// metadata.
func NewUnknownFieldError(field, expr string) *CompileError {
	return &CompileError{
		Code:    ErrCodeUnknownField,
		Message: fmt.Sprintf("field %q is not present in the field metadata", field),
		Field:   field,
		Expr:    expr,
	}
}

// NewUnsupportedNestingError creates a CompileError for a field chain that
// is too deep.
func NewUnsupportedNestingError(field, expr string, depth int) *CompileError {
	return &CompileError{
		Code:    ErrCodeUnsupportedNesting,
		Message: fmt.Sprintf("field %q has nesting depth %d: only one degree of nesting is supported", field, depth),
		Field:   field,
		Expr:    expr,
	}
}

// NewValueResolutionError creates a CompileError for an operand that could
// not be reduced to a value.
func NewValueResolutionError(expr string, err error) *CompileError {
	return &CompileError{
		Code:    ErrCodeValueResolution,
		Message: "cannot resolve operand to a value",
		Expr:    expr,
		Err:     err,
	}
}
