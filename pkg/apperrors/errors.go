package apperrors

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Kind classifies a failure by how the rest of the engine must react to
// it, independent of the HTTP status a request handler maps it to.
type Kind string

const (
	KindProviderUnavailable       Kind = "provider_unavailable"
	KindMalformedTick             Kind = "malformed_tick"
	KindMalformedCandle           Kind = "malformed_candle"
	KindInsufficientHistory       Kind = "insufficient_history"
	KindStaleData                 Kind = "stale_data"
	KindLiquidityFail             Kind = "liquidity_fail"
	KindInvalidRequest            Kind = "invalid_request"
	KindInternalInvariantViolated Kind = "internal_invariant_violation"
)

// AppError represents an application error
type AppError struct {
	Code    int
	Kind    Kind
	Message string
	Err     error
}

// Error returns the error message
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap lets errors.Is/As see through to the wrapped cause.
func (e *AppError) Unwrap() error { return e.Err }

// NewKindError builds an AppError tagged with kind, wrapping cause with
// pkg/errors so a stack trace is attached at the point of failure.
func NewKindError(kind Kind, code int, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     errors.Wrap(cause, message),
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, err error) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Message: message,
		Err:     err,
	}
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(message string, err error) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Message: message,
		Err:     err,
	}
}

// NewInternalServerError creates a new internal server error
func NewInternalServerError(message string, err error) *AppError {
	return &AppError{
		Code:    http.StatusInternalServerError,
		Message: message,
		Err:     err,
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string, err error) *AppError {
	return &AppError{
		Code:    http.StatusUnauthorized,
		Message: message,
		Err:     err,
	}
}

// Response represents an error response
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// NewErrorResponse creates a new error response
func NewErrorResponse(message string, err error) Response {
	return Response{
		Success: false,
		Message: message,
		Error:   err.Error(),
	}
}
