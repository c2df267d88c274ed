package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies an application error.
type Kind string

const (
	KindValidation   Kind = "VALIDATION_ERROR"
	KindProvider     Kind = "PROVIDER_ERROR"
	KindGeneration   Kind = "GENERATION_ERROR"
	KindNotFound     Kind = "NOT_FOUND"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindForbidden    Kind = "FORBIDDEN"
	KindRateLimited  Kind = "RATE_LIMITED"
	KindInternal     Kind = "INTERNAL_ERROR"
)

var kindStatus = map[Kind]int{
	KindValidation:   http.StatusBadRequest,
	KindProvider:     http.StatusInternalServerError,
	KindGeneration:   http.StatusInternalServerError,
	KindNotFound:     http.StatusNotFound,
	KindUnauthorized: http.StatusUnauthorized,
	KindForbidden:    http.StatusForbidden,
	KindRateLimited:  http.StatusTooManyRequests,
	KindInternal:     http.StatusInternalServerError,
}

// FieldError is a single violated constraint.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// AppError is the error type returned across package boundaries.
type AppError struct {
	Kind    Kind
	Message string
	Err     error

	// Fields is set for validation errors.
	Fields []FieldError
	// Provider is set for provider errors.
	Provider string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on Kind so errors.Is(err, &AppError{Kind: KindNotFound}) works.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// Status returns the HTTP status code for the error.
func (e *AppError) Status() int {
	if status, ok := kindStatus[e.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Details returns the extra payload rendered in error envelopes.
func (e *AppError) Details() any {
	switch {
	case len(e.Fields) > 0:
		return e.Fields
	case e.Provider != "":
		return map[string]string{"provider": e.Provider}
	default:
		return nil
	}
}

// Sentinel kinds for errors.Is.
var (
	ErrValidation   = &AppError{Kind: KindValidation}
	ErrProvider     = &AppError{Kind: KindProvider}
	ErrGeneration   = &AppError{Kind: KindGeneration}
	ErrNotFound     = &AppError{Kind: KindNotFound}
	ErrUnauthorized = &AppError{Kind: KindUnauthorized}
	ErrForbidden    = &AppError{Kind: KindForbidden}
)

// NewValidation builds a ValidationError listing every violated constraint.
func NewValidation(fields []FieldError) *AppError {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return &AppError{
		Kind:    KindValidation,
		Message: "validation failed: " + strings.Join(parts, "; "),
		Fields:  fields,
	}
}

// NewProvider builds a ProviderError for an unresolvable provider, model or key.
func NewProvider(provider, reason string, err error) *AppError {
	return &AppError{
		Kind:     KindProvider,
		Message:  fmt.Sprintf("provider %s: %s", provider, reason),
		Err:      err,
		Provider: provider,
	}
}

// NewGeneration wraps an upstream failure, including malformed structured output.
func NewGeneration(message string, err error) *AppError {
	return &AppError{Kind: KindGeneration, Message: message, Err: err}
}

// NewNotFound reports a missing persisted entity.
func NewNotFound(entity, id string) *AppError {
	return &AppError{Kind: KindNotFound, Message: fmt.Sprintf("%s not found: %s", entity, id)}
}

func NewUnauthorized(message string) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: message}
}

func NewForbidden(message string) *AppError {
	return &AppError{Kind: KindForbidden, Message: message}
}

func NewRateLimited(message string) *AppError {
	return &AppError{Kind: KindRateLimited, Message: message}
}

func NewInternal(message string, err error) *AppError {
	return &AppError{Kind: KindInternal, Message: message, Err: err}
}

// As extracts the AppError from an error chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HTTPStatus maps any error to a status code; unknown errors are 500.
func HTTPStatus(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.Status()
	}
	return http.StatusInternalServerError
}
