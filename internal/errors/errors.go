// Package errors provides error codes shared by the sync core and the desktop UI bridge.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a unique error code that is surfaced to the desktop UI.
type ErrorCode string

const (
	// General errors
	ErrInternal   ErrorCode = "INTERNAL_ERROR"
	ErrInvalid    ErrorCode = "INVALID_INPUT"
	ErrNotFound   ErrorCode = "NOT_FOUND"
	ErrValidation ErrorCode = "VALIDATION_ERROR"

	// Storage errors
	ErrDatabase  ErrorCode = "DATABASE_ERROR"
	ErrMigration ErrorCode = "MIGRATION_FAILED"

	// Remote API errors
	ErrConnectivity ErrorCode = "CONNECTIVITY"
	ErrRemote       ErrorCode = "REMOTE_ERROR"

	// Inventory errors
	ErrInsufficientStock ErrorCode = "INSUFFICIENT_STOCK"

	// Queue errors
	ErrQueueFull     ErrorCode = "QUEUE_FULL"
	ErrInvalidAction ErrorCode = "INVALID_ACTION"

	// Sync errors
	ErrSyncFailed     ErrorCode = "SYNC_FAILED"
	ErrSyncTimeout    ErrorCode = "SYNC_TIMEOUT"
	ErrSyncInProgress ErrorCode = "SYNC_IN_PROGRESS"
	ErrSyncSkipped    ErrorCode = "SYNC_SKIPPED"
)

// AppError represents an application error with code and message.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with an error code.
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// CodeOf returns the code of the outermost AppError in err's chain,
// or ErrInternal when err carries no code. A nil error has no code.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// Is checks if an error is of a specific code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}

// IsConnectivity reports whether err means the remote API could not be reached.
// These failures are absorbed by the offline layer and never shown as hard errors.
func IsConnectivity(err error) bool {
	return Is(err, ErrConnectivity) || Is(err, ErrSyncTimeout)
}

// MessageOf returns the message of the outermost AppError in err's chain,
// or err.Error() when err carries no code.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
