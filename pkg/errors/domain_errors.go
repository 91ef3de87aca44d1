package custom_error

import (
	"errors"
	"fmt"
)

// ResourceNotFoundError means the referenced entity does not exist for the
// caller's tenant. Recoverable by supplying a valid identifier.
type ResourceNotFoundError struct {
	Resource   string
	Identifier any
}

func NewNotFoundError(resource string, identifier any) *ResourceNotFoundError {
	return &ResourceNotFoundError{Resource: resource, Identifier: identifier}
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("%s with id %v not found", e.Resource, e.Identifier)
}

// ValidationError is a caller-correctable business rule violation. The
// message always carries the concrete limit (e.g. "only 12g remaining").
type ValidationError struct {
	Message string
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return e.Message
}

// DuplicateResourceError is raised when a unique business key already exists.
type DuplicateResourceError struct {
	Resource string
	Field    string
	Value    any
}

func NewDuplicateError(resource, field string, value any) *DuplicateResourceError {
	return &DuplicateResourceError{Resource: resource, Field: field, Value: value}
}

func (e *DuplicateResourceError) Error() string {
	return fmt.Sprintf("%s with %s '%v' already exists", e.Resource, e.Field, e.Value)
}

func IsNotFound(err error) bool {
	var nf *ResourceNotFoundError
	return errors.As(err, &nf)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsDuplicate(err error) bool {
	var de *DuplicateResourceError
	return errors.As(err, &de)
}
