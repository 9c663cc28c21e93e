package querygraql

import (
	"errors"
	"fmt"
)

// CompileError represents a validation failure detected while compiling an
// intent into query text.
//
// Compile errors are "bad request" failures and propagate as typed errors
// so callers can distinguish them from backend unavailability. They are
// surfaced immediately and never retried.
type CompileError struct {
	// Code identifies the error category.
	Code CompileErrorCode

	// Concept is the concept being compiled, if known.
	Concept string

	// Attribute is the attribute involved, if any.
	Attribute string

	// Message is a human-readable description. For operator errors the
	// message enumerates the legal operator set.
	Message string
}

// CompileErrorCode categorizes compile errors.
type CompileErrorCode string

const (
	// ErrCodeUnsupportedOperator indicates an operator not legal for the
	// attribute's declared type.
	ErrCodeUnsupportedOperator CompileErrorCode = "UNSUPPORTED_OPERATOR"

	// ErrCodeUnsupportedType indicates an unrecognized attribute type.
	ErrCodeUnsupportedType CompileErrorCode = "UNSUPPORTED_TYPE"

	// ErrCodeInvalidParameter indicates an out-of-range or unsupported
	// parameter, e.g. a k-core k below 2 or an unknown compute action.
	ErrCodeInvalidParameter CompileErrorCode = "INVALID_PARAMETER"

	// ErrCodeTypeError indicates an attribute of the wrong type for the
	// requested operation, e.g. a statistical action on a string.
	ErrCodeTypeError CompileErrorCode = "TYPE_ERROR"

	// ErrCodeInvalidValue indicates a condition value of the wrong Go
	// type for the attribute, e.g. a string where a number is needed.
	ErrCodeInvalidValue CompileErrorCode = "INVALID_VALUE"
)

// Error implements the error interface.
func (e *CompileError) Error() string {
	switch {
	case e.Concept != "" && e.Attribute != "":
		return fmt.Sprintf("%s: %s (concept=%s, attribute=%s)", e.Code, e.Message, e.Concept, e.Attribute)
	case e.Concept != "":
		return fmt.Sprintf("%s: %s (concept=%s)", e.Code, e.Message, e.Concept)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsUnsupportedOperator reports whether err is an unsupported-operator
// error. Uses errors.As to handle wrapped errors.
func IsUnsupportedOperator(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce) && ce.Code == ErrCodeUnsupportedOperator
}

// IsUnsupportedType reports whether err is an unsupported-type error.
func IsUnsupportedType(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce) && ce.Code == ErrCodeUnsupportedType
}

// IsInvalidParameter reports whether err is an invalid-parameter error.
func IsInvalidParameter(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce) && ce.Code == ErrCodeInvalidParameter
}

// IsTypeError reports whether err is a type error.
func IsTypeError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce) && ce.Code == ErrCodeTypeError
}
