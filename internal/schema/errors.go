package schema

import (
	"errors"
	"fmt"
)

// Error represents a schema resolution or mutation failure.
//
// Schema errors are validation failures: a referenced name does not exist,
// or a lookup is ambiguous. They are surfaced immediately and never
// retried.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Concept is the entity or relationship name involved, if any.
	Concept string

	// Attribute is the attribute name involved, if any.
	Attribute string

	// Message is a human-readable description.
	Message string
}

// ErrorCode categorizes schema errors.
type ErrorCode string

const (
	// ErrCodeUnknownConcept indicates a referenced entity/relationship
	// name is absent from the registry.
	ErrCodeUnknownConcept ErrorCode = "UNKNOWN_CONCEPT"

	// ErrCodeUnknownAttribute indicates a referenced attribute is absent
	// on the resolved concept.
	ErrCodeUnknownAttribute ErrorCode = "UNKNOWN_ATTRIBUTE"

	// ErrCodeAmbiguousRelationship indicates more than one relationship
	// connects the same entity pair and no explicit name was given.
	ErrCodeAmbiguousRelationship ErrorCode = "AMBIGUOUS_RELATIONSHIP"

	// ErrCodeDuplicateConcept indicates a define collides with an
	// existing entity or relationship name.
	ErrCodeDuplicateConcept ErrorCode = "DUPLICATE_CONCEPT"

	// ErrCodeVersionConflict indicates the persisted document moved
	// underneath an optimistic save.
	ErrCodeVersionConflict ErrorCode = "VERSION_CONFLICT"
)

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Concept != "" && e.Attribute != "":
		return fmt.Sprintf("%s: %s (concept=%s, attribute=%s)", e.Code, e.Message, e.Concept, e.Attribute)
	case e.Concept != "":
		return fmt.Sprintf("%s: %s (concept=%s)", e.Code, e.Message, e.Concept)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsUnknownConcept reports whether err is an unknown-concept error.
// Uses errors.As to handle wrapped errors.
func IsUnknownConcept(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Code == ErrCodeUnknownConcept
}

// IsUnknownAttribute reports whether err is an unknown-attribute error.
func IsUnknownAttribute(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Code == ErrCodeUnknownAttribute
}

// IsAmbiguousRelationship reports whether err is an ambiguous-relationship
// error.
func IsAmbiguousRelationship(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Code == ErrCodeAmbiguousRelationship
}

// IsVersionConflict reports whether err is an optimistic-save conflict.
func IsVersionConflict(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Code == ErrCodeVersionConflict
}

func unknownConcept(name string) *Error {
	return &Error{
		Code:    ErrCodeUnknownConcept,
		Concept: name,
		Message: "concept not defined in schema",
	}
}

func unknownAttribute(concept, attr string) *Error {
	return &Error{
		Code:      ErrCodeUnknownAttribute,
		Concept:   concept,
		Attribute: attr,
		Message:   "attribute not defined on concept",
	}
}
