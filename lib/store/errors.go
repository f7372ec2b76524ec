package store

import (
	"errors"
	"fmt"
	"net/http"
)

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Kind classifies domain errors. The string value is what clients see in the
// "error" field of an error body.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindValidationFailed Kind = "validation_failed"
)

// Error is the single domain error type of the store layer. It carries a kind
// and a human readable reason. Use the factory functions below to create one
// so that wording stays consistent.
type Error struct {
	Kind   Kind   `json:"error"`
	Reason string `json:"reason"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Status returns the HTTP status analog of the error kind.
func (e *Error) Status() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// NewError creates a new Error with the given kind and reason.
func NewError(kind Kind, reason string) *Error {
	return &Error{
		Kind:   kind,
		Reason: reason,
	}
}

// --------------------------------------------------------------------------
// Factories
// --------------------------------------------------------------------------

// ErrNotFound is returned for missing documents, design documents and views.
func ErrNotFound() *Error {
	return NewError(KindNotFound, "missing")
}

// ErrDatabaseNotFound is returned for unknown database names.
func ErrDatabaseNotFound() *Error {
	return NewError(KindNotFound, "no_db_file")
}

// ErrConflict is returned when a revision does not match the stored one.
func ErrConflict() *Error {
	return NewError(KindConflict, "Document update conflict.")
}

// ErrInvalidPayload is returned when a payload is not a JSON object.
func ErrInvalidPayload(id string, cause error) *Error {
	return NewError(KindValidationFailed, fmt.Sprintf("the document %s is not a valid JSON object: %v", id, cause))
}

// ErrInvalidDesignDocument is returned when a design document lacks a views object.
func ErrInvalidDesignDocument(id string) *Error {
	return NewError(KindValidationFailed, fmt.Sprintf("the design document %s must contain a views object", id))
}

// --------------------------------------------------------------------------
// Predicates
// --------------------------------------------------------------------------

// AsError returns the *Error in err's chain, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

func hasKind(err error, kind Kind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == kind
}

// IsNotFound reports whether err is a not found domain error.
func IsNotFound(err error) bool { return hasKind(err, KindNotFound) }

// IsConflict reports whether err is a conflict domain error.
func IsConflict(err error) bool { return hasKind(err, KindConflict) }

// IsValidationFailed reports whether err is a validation domain error.
func IsValidationFailed(err error) bool { return hasKind(err, KindValidationFailed) }
