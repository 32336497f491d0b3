package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a ServiceError for callers that need more than a status.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindPrecondition Kind = "precondition"
	KindProvider     Kind = "provider"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

// ServiceError is a typed error with an HTTP status code.
type ServiceError struct {
	Kind       Kind
	StatusCode int
	Message    string
	// Field names the offending input for validation errors.
	Field string
	// Redirect is the list view a client should fall back to on not found.
	Redirect  string
	Retryable bool
	Err       error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error { return e.Err }

func Validation(field, message string) *ServiceError {
	return &ServiceError{Kind: KindValidation, StatusCode: http.StatusBadRequest, Message: message, Field: field}
}

func Precondition(message string) *ServiceError {
	return &ServiceError{Kind: KindPrecondition, StatusCode: http.StatusUnprocessableEntity, Message: message}
}

// Provider wraps a failure reported by an external collaborator. The
// collaborator's own text is kept in the message so admins see what Stripe,
// Shippo or the mail server actually said.
func Provider(prefix string, err error) *ServiceError {
	msg := prefix
	if err != nil {
		msg = prefix + ": " + err.Error()
	}
	return &ServiceError{Kind: KindProvider, StatusCode: http.StatusBadGateway, Message: msg, Err: err}
}

func NotFound(entity, redirect string) *ServiceError {
	return &ServiceError{Kind: KindNotFound, StatusCode: http.StatusNotFound, Message: entity + " not found", Redirect: redirect}
}

func Conflict(message string) *ServiceError {
	return &ServiceError{Kind: KindConflict, StatusCode: http.StatusConflict, Message: message}
}

func Internal(message string, err error) *ServiceError {
	return &ServiceError{Kind: KindInternal, StatusCode: http.StatusInternalServerError, Message: message, Err: err}
}

// AsServiceError unwraps err into a *ServiceError, falling back to an
// internal error.
func AsServiceError(err error) *ServiceError {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return Internal("internal error", err)
}
