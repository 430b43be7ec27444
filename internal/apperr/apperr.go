// Package apperr defines the error variant shared by services and the HTTP
// boundary. Services decide the kind; the boundary decides what the client
// gets to see.
package apperr

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindValidation     Kind = "validation"
	KindConflict       Kind = "conflict"
	KindAuthentication Kind = "authentication"
	KindCSRF           Kind = "csrf"
	KindNotFound       Kind = "not_found"
	KindInternal       Kind = "internal"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	// Operational errors are expected outcomes whose message is safe to
	// return to clients. Non-operational errors are bugs or infrastructure
	// failures.
	Operational bool
	Fields      []string
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func statusFor(kind Kind) int {
	switch kind {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindCSRF:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Status: statusFor(kind), Operational: kind != KindInternal}
}

func Validation(message string, fields ...string) *Error {
	e := New(KindValidation, message)
	e.Fields = fields
	return e
}

func Conflict(message string) *Error { return New(KindConflict, message) }

func Unauthorized(message string) *Error { return New(KindAuthentication, message) }

func CSRF() *Error { return New(KindCSRF, "invalid csrf token") }

func NotFound(message string) *Error { return New(KindNotFound, message) }

// Internal wraps an unexpected failure. The message is what operators see in
// logs next to the cause; clients in production get a generic message.
func Internal(message string, err error) *Error {
	e := New(KindInternal, message)
	e.Err = err
	return e
}

// As classifies any error. Unclassified errors become non-operational
// internal errors.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindInternal, Message: err.Error(), Status: http.StatusInternalServerError, Err: err}
}

func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
