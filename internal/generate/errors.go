package generate

import (
	"errors"
	"fmt"
)

// AuthoringError reports a structural problem with the authoring tree: a
// file at the wrong depth, a namespace without a schema, a forbidden
// extension, or a document that is not a single options mapping.
type AuthoringError struct {
	// Path is the offending file or directory, relative to the tree root
	// when possible.
	Path string

	// Message describes the problem.
	Message string
}

// Error implements the error interface.
func (e *AuthoringError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// IsAuthoringError returns true if the error is an AuthoringError.
func IsAuthoringError(err error) bool {
	var ae *AuthoringError
	return errors.As(err, &ae)
}

// SizeError reports a serialized document exceeding the distribution
// ceiling. It fails the whole run; documents are never truncated.
type SizeError struct {
	// Name is the artifact file or manifest name.
	Name string

	// Namespace and Target identify the offending pair, when known.
	Namespace string
	Target    string

	Size  int
	Limit int
}

// Error implements the error interface.
func (e *SizeError) Error() string {
	if e.Namespace != "" {
		return fmt.Sprintf("%s: namespace %q target %q serializes to %d bytes, over the %d byte ceiling",
			e.Name, e.Namespace, e.Target, e.Size, e.Limit)
	}
	return fmt.Sprintf("%s: serializes to %d bytes, over the %d byte ceiling", e.Name, e.Size, e.Limit)
}

// IsSizeError returns true if the error is a SizeError.
func IsSizeError(err error) bool {
	var se *SizeError
	return errors.As(err, &se)
}
