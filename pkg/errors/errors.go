package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error types
var (
	ErrNotFound       = errors.New("resource not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrConflict       = errors.New("resource conflict")
	ErrInternal       = errors.New("internal server error")
	ErrValidation     = errors.New("validation error")
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("invalid token")
)

// Error codes returned to API clients. The set is closed: handlers never invent
// new codes, so clients can switch on them.
const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeForbidden      = "FORBIDDEN"
	CodeNotFound       = "NOT_FOUND"
	CodeDuplicateSlug  = "DUPLICATE_SLUG"
	CodeDuplicateEmail = "DUPLICATE_EMAIL"
	CodeConflict       = "CONFLICT"
	CodeRateLimit      = "RATE_LIMIT"
	CodeInternal       = "INTERNAL_ERROR"
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
	RetryAfter int               `json:"retry_after,omitempty"` // seconds, RATE_LIMIT only
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
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Code:       CodeUnauthorized,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// Forbidden reports a denied privileged action. The message is deliberately
// generic so callers cannot probe which check failed.
func Forbidden() *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Code:       CodeForbidden,
		Message:    "forbidden",
		StatusCode: http.StatusForbidden,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       CodeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       CodeConflict,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// DuplicateSlug reports a tenant slug uniqueness conflict.
func DuplicateSlug(slug string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       CodeDuplicateSlug,
		Message:    fmt.Sprintf("a tenant with slug %q already exists", slug),
		StatusCode: http.StatusConflict,
	}
}

// DuplicateEmail reports an owner account email uniqueness conflict.
func DuplicateEmail(email string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       CodeDuplicateEmail,
		Message:    fmt.Sprintf("an account with email %q already exists", email),
		StatusCode: http.StatusConflict,
	}
}

// RateLimit reports that a rate limit was exceeded. retryAfter is a hint in
// seconds for when the client may try again.
func RateLimit(retryAfter int) *AppError {
	return &AppError{
		Err:        ErrRateLimited,
		Code:       CodeRateLimit,
		Message:    "rate limit exceeded, try again later",
		StatusCode: http.StatusTooManyRequests,
		RetryAfter: retryAfter,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       CodeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// Validation reports field-level validation failures. Each entry names the
// field and the rule it violated.
func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       CodeValidation,
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

func TokenExpired() *AppError {
	return &AppError{
		Err:        ErrTokenExpired,
		Code:       CodeUnauthorized,
		Message:    "token has expired",
		StatusCode: http.StatusUnauthorized,
	}
}

func TokenInvalid() *AppError {
	return &AppError{
		Err:        ErrTokenInvalid,
		Code:       CodeUnauthorized,
		Message:    "invalid token",
		StatusCode: http.StatusUnauthorized,
	}
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
