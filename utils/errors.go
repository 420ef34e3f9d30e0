package utils

import (
	"errors"
	"net/http"
)

// ErrorKind classifies domain errors for the response formatter.
type ErrorKind int

const (
	// KindInternal is anything not explicitly classified.
	KindInternal ErrorKind = iota
	KindValidation
	KindUnauthenticated
	KindUnauthorized
	// KindForbidden is reported as 404 so non-owners cannot confirm a resource exists.
	KindForbidden
	KindNotFound
)

// Status maps the kind onto an HTTP status code.
func (k ErrorKind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated, KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden, KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// AppError is a domain error with an explicit kind, a business code and a client-safe message.
type AppError struct {
	Kind    ErrorKind
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches another *AppError with the same kind and code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Code == e.Code
}

// Wrap returns a copy of e carrying cause.
func (e *AppError) Wrap(cause error) *AppError {
	cp := *e
	cp.Err = cause
	return &cp
}

func newAppError(kind ErrorKind, code int, msg string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: msg}
}

// NewValidation creates a 400 error.
func NewValidation(code int, msg string) *AppError {
	return newAppError(KindValidation, code, msg)
}

// NewUnauthenticated creates a 401 error for missing or bad sessions.
func NewUnauthenticated(code int, msg string) *AppError {
	return newAppError(KindUnauthenticated, code, msg)
}

// NewUnauthorized creates a 401 error for bad credentials.
func NewUnauthorized(code int, msg string) *AppError {
	return newAppError(KindUnauthorized, code, msg)
}

// NewForbidden creates an ownership error.
func NewForbidden(code int, msg string) *AppError {
	return newAppError(KindForbidden, code, msg)
}

// NewNotFound creates a 404 error.
func NewNotFound(code int, msg string) *AppError {
	return newAppError(KindNotFound, code, msg)
}

// KindOf returns the kind of err, KindInternal when unclassified.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}
