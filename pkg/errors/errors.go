package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error types
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrConflict     = errors.New("resource conflict")
	ErrInternal     = errors.New("internal server error")
	ErrValidation   = errors.New("validation error")

	// Tracking-domain error types
	ErrNotMapped             = errors.New("label is not mapped to any location")
	ErrNotPresentAtLocation  = errors.New("label is not present at location")
	ErrProjectionUnavailable = errors.New("current-state projection unavailable")
	ErrConfirmationTimeout   = errors.New("placement confirmation timed out")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// Common error constructors

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Code:       "FORBIDDEN",
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       "VALIDATION_ERROR",
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// Tracking-domain error constructors

// NotMapped is returned when an operation requires the label to be placed
// somewhere but the event log shows it has no current location.
func NotMapped(labelID string) *AppError {
	return &AppError{
		Err:        ErrNotMapped,
		Code:       "NOT_MAPPED",
		Message:    fmt.Sprintf("label %s is not mapped to any location", labelID),
		StatusCode: http.StatusConflict,
	}
}

// NotPresentAtLocation is returned when a pick is attempted against a
// location the label is not currently at.
func NotPresentAtLocation(labelID, locationCode string) *AppError {
	return &AppError{
		Err:        ErrNotPresentAtLocation,
		Code:       "NOT_PRESENT_AT_LOCATION",
		Message:    fmt.Sprintf("label %s is not present at location %s", labelID, locationCode),
		StatusCode: http.StatusConflict,
	}
}

// ProjectionUnavailable marks a state source as unusable so the resolution
// chain falls through to the next one. It is never surfaced to HTTP callers.
func ProjectionUnavailable(err error) *AppError {
	return &AppError{
		Err:        fmt.Errorf("%w: %w", ErrProjectionUnavailable, err),
		Code:       "PROJECTION_UNAVAILABLE",
		Message:    "current-state projection unavailable",
		StatusCode: http.StatusServiceUnavailable,
	}
}

// ConfirmationTimeout reports that a recorded placement never showed up in
// the read-side projection within the polling budget. Warning-grade: the
// ledger write already succeeded, so callers surface the message alongside
// a successful result rather than failing the scan.
func ConfirmationTimeout(labelID, locationCode string) *AppError {
	return &AppError{
		Err:        ErrConfirmationTimeout,
		Code:       "CONFIRMATION_TIMEOUT",
		Message:    fmt.Sprintf("placement of label %s at %s recorded but not yet visible in stock listings", labelID, locationCode),
		StatusCode: http.StatusAccepted,
	}
}

// IsProjectionUnavailable reports whether err marks an unusable state source.
func IsProjectionUnavailable(err error) bool {
	return errors.Is(err, ErrProjectionUnavailable)
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
