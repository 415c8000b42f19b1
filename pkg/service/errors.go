package service

import (
	"errors"
	"fmt"
	"strings"
)

// The service layer's externally observable contract is this error
// taxonomy. Handlers match with errors.Is / errors.As and translate to
// resputil codes; nothing here is retried automatically.
var (
	// ErrNotFound: the entity does not exist.
	ErrNotFound = errors.New("entity not found")
	// ErrAccessDenied: the caller is not a member of the project.
	ErrAccessDenied = errors.New("access denied")
	// ErrInsufficientPermissions: the caller is a member but lacks the
	// capability the operation requires.
	ErrInsufficientPermissions = errors.New("insufficient permissions")
	// ErrInvalidAssignee: the assignee is not a project member.
	ErrInvalidAssignee = errors.New("assignee is not a project member")
	// ErrDuplicateKey: a unique constraint was violated.
	ErrDuplicateKey = errors.New("duplicate key")
)

// FieldError is one field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects field-level failures so the client can report
// them all at once.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
