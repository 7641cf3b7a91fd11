package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a structured error code
type ErrorCode string

const (
	// Configuration errors
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"

	// Resource errors
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	ErrCodeConflict ErrorCode = "CONFLICT"

	// Validation errors
	ErrCodeValidation   ErrorCode = "VALIDATION"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// Pipeline errors
	ErrCodeAccessUnavailable ErrorCode = "ACCESS_UNAVAILABLE"
	ErrCodeExtraction        ErrorCode = "EXTRACTION_FAILED"
	ErrCodeInference         ErrorCode = "INFERENCE_FAILED"
	ErrCodeCancelled         ErrorCode = "CANCELLED"
	ErrCodePersistence       ErrorCode = "PERSISTENCE_FAILED"
	ErrCodeNotReady          ErrorCode = "NOT_READY"

	// Internal errors
	ErrCodeInternal   ErrorCode = "INTERNAL"
	ErrCodeRateLimit  ErrorCode = "RATE_LIMIT"
	ErrCodeDatabase   ErrorCode = "DATABASE"
	ErrCodeUnexpected ErrorCode = "UNEXPECTED"
)

// AppError represents a structured application error
type AppError struct {
	Code     ErrorCode              `json:"code"`
	Message  string                 `json:"message"`
	Details  map[string]interface{} `json:"details,omitempty"`
	Cause    error                  `json:"-"`
	HTTPCode int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// GetHTTPCode returns the appropriate HTTP status code
func (e *AppError) GetHTTPCode() int {
	if e.HTTPCode != 0 {
		return e.HTTPCode
	}
	return getDefaultHTTPCode(e.Code)
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		HTTPCode: getDefaultHTTPCode(code),
	}
}

// Newf creates a new AppError with formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with an AppError
func Wrap(cause error, code ErrorCode, message string) *AppError {
	e := New(code, message)
	e.Cause = cause
	return e
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(cause error, code ErrorCode, format string, args ...interface{}) *AppError {
	return Wrap(cause, code, fmt.Sprintf(format, args...))
}

func getDefaultHTTPCode(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeValidation, ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeAccessUnavailable:
		return http.StatusPreconditionFailed
	case ErrCodeNotReady:
		return http.StatusServiceUnavailable
	case ErrCodeRateLimit:
		return http.StatusTooManyRequests
	case ErrCodeExtraction, ErrCodeInference:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Common error constructors

// NotFound creates a not found error
func NotFound(resource string, id interface{}) *AppError {
	return Newf(ErrCodeNotFound, "%s not found", resource).
		WithDetail("resource", resource).
		WithDetail("id", id)
}

// ValidationError creates a validation error
func ValidationError(field string, reason string) *AppError {
	return Newf(ErrCodeValidation, "validation failed for field '%s': %s", field, reason).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

// ExtractionError wraps a failure while producing the intermediate audio file
func ExtractionError(sourceID uint64, cause error) *AppError {
	return Wrap(cause, ErrCodeExtraction, "audio extraction failed").
		WithDetail("source_id", sourceID)
}

// InferenceError wraps a failure reported by the inference engine
func InferenceError(sourceID uint64, cause error) *AppError {
	return Wrap(cause, ErrCodeInference, "transcription failed").
		WithDetail("source_id", sourceID)
}

// PersistenceError wraps an archive load or save failure
func PersistenceError(operation string, cause error) *AppError {
	return Wrapf(cause, ErrCodePersistence, "document %s failed", operation).
		WithDetail("operation", operation)
}

// ConfigError creates a configuration error
func ConfigError(key string, reason string) *AppError {
	return Newf(ErrCodeConfigInvalid, "configuration error for '%s': %s", key, reason).
		WithDetail("key", key).
		WithDetail("reason", reason)
}

// Is reports whether any error in err's chain is an AppError with the given code
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// GetHTTPCode extracts the HTTP status code from an error
func GetHTTPCode(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.GetHTTPCode()
	}
	return http.StatusInternalServerError
}
