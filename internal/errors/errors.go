package errors

import (
	"errors"
	"fmt"
	"maps"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict indicates a conflict with existing data (e.g., unique constraint violation).
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeUnauthorized indicates missing or invalid caller credentials.
	ErrCodeUnauthorized ErrorCode = "unauthorized"
	// ErrCodeForbidden indicates a verified caller acting outside its own identity.
	ErrCodeForbidden ErrorCode = "forbidden"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"

	// Identity-provider failure kinds.
	ErrCodeInvalidCredentials ErrorCode = "invalid_credentials"
	ErrCodeEmailAlreadyInUse  ErrorCode = "email_already_in_use"
	ErrCodeWeakCredential     ErrorCode = "weak_credential"
	ErrCodeProviderCancelled  ErrorCode = "provider_cancelled"
	ErrCodeProvider           ErrorCode = "provider_error"
	ErrCodeSignOut            ErrorCode = "sign_out_failed"
	ErrCodeProfileUpdate      ErrorCode = "profile_update_failed"
	ErrCodeSync               ErrorCode = "sync_failed"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Field is the specific field that caused the error (optional, for validation errors)
	Field string
	// Fields holds per-field messages when several inputs failed at once.
	Fields map[string]string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates an AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return New(ErrCodeNotFound, message)
}

// Conflict creates a new Conflict error.
func Conflict(message string) *AppError {
	return New(ErrCodeConflict, message)
}

// Unauthorized creates a new Unauthorized error.
func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

// Forbidden creates a new Forbidden error.
func Forbidden(message string) *AppError {
	return New(ErrCodeForbidden, message)
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
		Field:   field,
	}
}

// ValidationFields creates a Validation error carrying one message per failed field.
// Field is also set when exactly one field failed.
func ValidationFields(message string, fields map[string]string) *AppError {
	e := &AppError{
		Code:    ErrCodeValidation,
		Message: message,
		Fields:  maps.Clone(fields),
	}
	if len(fields) == 1 {
		for k := range fields {
			e.Field = k
		}
	}
	return e
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// GetCode returns the code of the outermost AppError in err's chain, or "" if none.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsAppError reports whether err carries an AppError with the given code.
func IsAppError(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// Message returns the user-facing message of an AppError, or err.Error() otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return IsAppError(err, ErrCodeNotFound)
}

// IsConflict checks if an error is a Conflict error.
func IsConflict(err error) bool {
	return IsAppError(err, ErrCodeConflict)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return IsAppError(err, ErrCodeValidation)
}

// IsInternal checks if an error is an Internal error.
func IsInternal(err error) bool {
	return IsAppError(err, ErrCodeInternal)
}

// IsTimeout checks if an error is a Timeout error.
func IsTimeout(err error) bool {
	return IsAppError(err, ErrCodeTimeout)
}

// IsCanceled checks if an error is a Canceled error.
func IsCanceled(err error) bool {
	return IsAppError(err, ErrCodeCanceled)
}

// IsProviderCancelled reports whether the user aborted a federated sign-in.
func IsProviderCancelled(err error) bool {
	return IsAppError(err, ErrCodeProviderCancelled)
}
