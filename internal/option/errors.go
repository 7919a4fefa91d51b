package option

import (
	"errors"
	"fmt"
	"strings"
)

// SchemaError represents a malformed schema document or a declared default
// that does not validate under its own type. Schema errors are fatal to the
// operation that loaded the schema.
type SchemaError struct {
	// File is the schema document path, when known.
	File string

	// Namespace is the owning namespace, when known.
	Namespace string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	switch {
	case e.File != "":
		return fmt.Sprintf("schema %s: %s", e.File, e.Message)
	case e.Namespace != "":
		return fmt.Sprintf("schema for namespace %q: %s", e.Namespace, e.Message)
	default:
		return fmt.Sprintf("schema: %s", e.Message)
	}
}

// IsSchemaError returns true if the error is a SchemaError.
// Uses errors.As to handle wrapped errors.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// ValidationCode categorizes value validation violations.
type ValidationCode string

const (
	// CodeUnknownKey indicates a key not declared in the schema.
	CodeUnknownKey ValidationCode = "UNKNOWN_KEY"

	// CodeTypeMismatch indicates a value of the wrong type for its spec.
	CodeTypeMismatch ValidationCode = "TYPE_MISMATCH"

	// CodeNullValue indicates an explicit null where a value was expected.
	CodeNullValue ValidationCode = "NULL_VALUE"
)

// ValidationError represents one violation found while validating a raw
// value set against a schema.
type ValidationError struct {
	// Code identifies the violation category.
	Code ValidationCode

	// Namespace is the schema's namespace.
	Namespace string

	// Key is the offending option key.
	Key string

	// Expected describes the declared type, for type mismatches.
	Expected string

	// Actual describes the rejected value's type or shape.
	Actual string

	// Message carries detail beyond the expected/actual pair.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	switch e.Code {
	case CodeTypeMismatch:
		return fmt.Sprintf("%s: option %q in namespace %q: expected %s, got %s",
			e.Code, e.Key, e.Namespace, e.Expected, e.Actual)
	default:
		return fmt.Sprintf("%s: option %q in namespace %q: %s",
			e.Code, e.Key, e.Namespace, e.Message)
	}
}

// ValidationErrors is the complete violation list for one validation pass.
// Violations are ordered by option key so identical input always produces
// an identical error value.
type ValidationErrors []*ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return fmt.Sprintf("%d validation errors: %s", len(e), strings.Join(msgs, "; "))
}

// IsValidationError returns true if the error is a ValidationError or a
// ValidationErrors list.
func IsValidationError(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	var ves ValidationErrors
	return errors.As(err, &ves)
}

// UnknownNamespaceError indicates a read against a namespace with no
// loaded schema.
type UnknownNamespaceError struct {
	Namespace string
}

// Error implements the error interface.
func (e *UnknownNamespaceError) Error() string {
	return fmt.Sprintf("unknown namespace: %s", e.Namespace)
}

// UnknownOptionError indicates a read of a key absent from its namespace
// schema.
type UnknownOptionError struct {
	Namespace string
	Key       string
}

// Error implements the error interface.
func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("unknown option %q in namespace %q", e.Key, e.Namespace)
}

// IsUnknownNamespace returns true if the error is an UnknownNamespaceError.
func IsUnknownNamespace(err error) bool {
	var ue *UnknownNamespaceError
	return errors.As(err, &ue)
}

// IsUnknownOption returns true if the error is an UnknownOptionError.
func IsUnknownOption(err error) bool {
	var ue *UnknownOptionError
	return errors.As(err, &ue)
}
