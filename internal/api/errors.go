// errors.go - Structured error handling for API responses
package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/fix-logviewer/backend/internal/parser"
	"github.com/fix-logviewer/backend/internal/session"
	"github.com/fix-logviewer/backend/internal/storage"
)

// APIError represents a structured API error response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// StatusCode returns the HTTP status of the error
func (e *APIError) StatusCode() int {
	return e.Status
}

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 validation error for a specific field
func NewValidationError(field string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("validation failed for field: %s", field),
	}
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewForbiddenError creates a 403 Forbidden error
func NewForbiddenError(message string) *APIError {
	return &APIError{
		Status:  http.StatusForbidden,
		Code:    "FORBIDDEN",
		Message: message,
	}
}

// NewConflictError creates a 409 Conflict error
func NewConflictError(message string) *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "CONFLICT",
		Message: message,
	}
}

// NewUnprocessableError creates a 422 error for input that was well formed
// but could not be rendered.
func NewUnprocessableError(code, message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusUnprocessableEntity,
		Code:    code,
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewServiceUnavailableError creates a 503 Service Unavailable error
func NewServiceUnavailableError(message string) *APIError {
	return &APIError{
		Status:  http.StatusServiceUnavailable,
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
	}
}

// renderError maps a renderer failure to its API error.
func renderError(err error) *APIError {
	switch {
	case errors.Is(err, parser.ErrNoEmbeddedMessage):
		return NewUnprocessableError("NO_FIX_MESSAGE", "line holds no FIX message", nil)
	case errors.Is(err, parser.ErrMalformedField):
		return NewUnprocessableError("MALFORMED_FIELD", "FIX message has a malformed field", err)
	case errors.Is(err, parser.ErrUnknownMessageType):
		return NewUnprocessableError("UNKNOWN_MSG_TYPE", "message type is not in the dictionary", err)
	case errors.Is(err, parser.ErrSchemaUnavailable):
		return NewUnprocessableError("SCHEMA_UNAVAILABLE", "no dictionary for this message", err)
	default:
		return NewInternalError("failed to render message", err)
	}
}

// domainError maps storage and session sentinels to API errors. resource and
// id describe what was being looked up.
func domainError(err error, resource, id string) *APIError {
	switch {
	case errors.Is(err, storage.ErrFileNotFound):
		return NewNotFoundError("file", id)
	case errors.Is(err, session.ErrSessionNotReady):
		return NewConflictError(fmt.Sprintf("session %s not found or still indexing", id))
	case errors.Is(err, parser.ErrMessageNotFound):
		return NewNotFoundError(resource, id)
	default:
		return NewInternalError(fmt.Sprintf("failed to load %s", resource), err)
	}
}

// ErrorHandler middleware for Echo
// Usage: e.HTTPErrorHandler = api.ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError

	switch e := err.(type) {
	case *APIError:
		apiErr = e
	case *echo.HTTPError:
		apiErr = &APIError{
			Status:  e.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", e.Message),
		}
	default:
		apiErr = &APIError{
			Status:  http.StatusInternalServerError,
			Code:    "UNKNOWN_ERROR",
			Message: "An unexpected error occurred",
		}
		if isDevelopment() {
			apiErr.Details = err.Error()
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(apiErr.Status)
		return
	}
	_ = c.JSON(apiErr.Status, apiErr)
}

// isDevelopment reports whether unexpected error details may be returned to
// clients. Set FIXLOG_ENV=production to hide them.
func isDevelopment() bool {
	return os.Getenv("FIXLOG_ENV") != "production"
}

// RespondWithError is a helper to respond with an APIError
func RespondWithError(c echo.Context, err *APIError) error {
	return c.JSON(err.Status, err)
}
