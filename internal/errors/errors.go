package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// Error is the structured error type for leedrag.
// It carries a stable code for classification and enough context for logs and CLI output.
type Error struct {
	// Code is the unique error code (e.g., "ERR_401_INVALID_OPTION").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is derived from the code.
	Category Category

	// Severity is derived from the code.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code so errors.Is works against sentinel values.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// New creates a new Error with the given code and message.
func New(code string, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an Error from an existing error, reusing its message.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration error.
func ConfigError(message string, cause error) *Error {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates an invalid-option error.
// Search treats it the same as ConfigError: the request fails before any backend call.
func ValidationError(message string, cause error) *Error {
	return New(ErrCodeInvalidOption, message, cause)
}

// SnapshotError creates a snapshot loading error with the given code.
func SnapshotError(code, message string, cause error) *Error {
	return New(code, message, cause)
}

// BackendError classifies a failed backend call as a timeout or an unavailable backend.
func BackendError(backend string, cause error) *Error {
	code := ErrCodeBackendUnavailable
	msg := backend + " backend unavailable"
	if stderrors.Is(cause, context.DeadlineExceeded) {
		code = ErrCodeBackendTimeout
		msg = backend + " backend timed out"
	}
	return New(code, msg, cause).WithDetail("backend", backend)
}

// IsConfiguration reports whether err is a configuration or option validation error.
func IsConfiguration(err error) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	return e.Category == CategoryConfig || e.Code == ErrCodeInvalidOption
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code, or "" when err is not an *Error.
func GetCode(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

// GetCategory extracts the category, or "" when err is not an *Error.
func GetCategory(err error) Category {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Category
	}
	return ""
}
