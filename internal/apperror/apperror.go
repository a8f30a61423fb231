// Package apperror defines the error taxonomy shared by every layer.
//
// Components below the HTTP boundary return these errors (usually wrapped with
// fmt.Errorf("...: %w", err)); only the response layer maps them to status codes.
package apperror

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrBadRequest   = errors.New("bad request")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limit exceeded")
	ErrUpstream     = errors.New("upstream provider error")
)

type AppError struct {
	Err     error             // sentinel, one of the Err* values above
	Message string            // human-readable message
	Field   string            // optional: single field causing the error
	Fields  map[string]string // optional: per-field problems for structured validation errors
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
		Fields:  map[string]string{field: message},
	}
}

// Invalid builds a structured validation error from a field→message map.
// The message lists the failing fields in sorted order so it is stable in logs.
func Invalid(fields map[string]string) *AppError {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	return &AppError{
		Err:     ErrValidation,
		Message: "invalid fields: " + strings.Join(names, ", "),
		Fields:  fields,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:     ErrBadRequest,
		Message: message,
	}
}

func Conflict(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with ID %v", resource, id),
	}
}

// Unauthorized returns an AppError for a missing or rejected credential.
// HTTP handlers map this to 401 Unauthorized.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Upstream wraps a failure talking to the plant data provider.
// The underlying cause stays reachable through errors.Is/As on the Unwrap chain
// of the returned error, but it is never shown to API clients.
func Upstream(op string, cause error) error {
	return fmt.Errorf("%w: %s: %w", &AppError{
		Err:     ErrUpstream,
		Message: "provider request failed",
	}, op, cause)
}

// FieldErrors extracts the per-field problems from a validation error chain.
func FieldErrors(err error) (map[string]string, bool) {
	var appErr *AppError
	if !errors.As(err, &appErr) || !errors.Is(appErr, ErrValidation) {
		return nil, false
	}
	return appErr.Fields, len(appErr.Fields) > 0
}
