package core

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const duplicateKeyMessage = "Duplicate field value entered, please provide a unique value."

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if len(err.Fields) > 0 {
		msgs := make([]string, 0, len(err.Fields))
		for _, f := range err.Fields {
			msgs = append(msgs, f.Error)
		}
		return strings.Join(msgs, ", ")
	}
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// NotFoundError is returned when no record matches a well-formed identifier.
type NotFoundError struct {
	Resource string
	ID       string
}

func NewNotFoundError(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

func (err NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", err.Resource, err.ID)
}

// InvalidIDError is returned when an identifier is not a valid record ID.
type InvalidIDError struct {
	ID string
}

func NewInvalidIDError(id string) error {
	return &InvalidIDError{ID: id}
}

func (err InvalidIDError) Error() string {
	return "Resource not found with ID: " + err.ID
}

// DuplicateKeyError is returned by the store when a unique field is already taken.
type DuplicateKeyError struct {
	Field string
}

func NewDuplicateKeyError(field string) error {
	return &DuplicateKeyError{Field: field}
}

func (err DuplicateKeyError) Error() string {
	return duplicateKeyMessage
}

// IsNotFound reports whether err is a NotFoundError or an InvalidIDError.
func IsNotFound(err error) bool {
	switch errors.Cause(err).(type) {
	case *NotFoundError, *InvalidIDError:
		return true
	}
	return false
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
