// models/errors.go
package models

import (
	"fmt"
	"net/http"
)

// Error codes surfaced to API clients. Stable strings; the human message
// next to them may change, the code never does.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "AUTHORIZATION_ERROR"
	CodeState        = "STATE_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeInternal     = "INTERNAL_ERROR"
)

// APIError is a typed, client-surfaced error with a stable code.
// All violated preconditions in the payment state machine fail fast
// with one of these; nothing is retried and no partial state is kept.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HTTPStatus maps the error code to an HTTP status for the response envelope.
func (e *APIError) HTTPStatus() int {
	switch e.Code {
	case CodeValidation, CodeState:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// NewValidationError reports malformed or out-of-range input.
func NewValidationError(format string, args ...interface{}) *APIError {
	return &APIError{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// NewAuthorizationError reports a wrong role or wrong identity for the entity.
func NewAuthorizationError(format string, args ...interface{}) *APIError {
	return &APIError{Code: CodeUnauthorized, Message: fmt.Sprintf(format, args...)}
}

// NewStateError reports an operation that is not legal in the current state.
func NewStateError(format string, args ...interface{}) *APIError {
	return &APIError{Code: CodeState, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError reports an unknown entity id.
func NewNotFoundError(entity string) *APIError {
	return &APIError{Code: CodeNotFound, Message: entity + " not found"}
}
