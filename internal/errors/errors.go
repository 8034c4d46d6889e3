package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeInvalidCredentials indicates the backend rejected a username/password pair.
	ErrCodeInvalidCredentials ErrorCode = "invalid_credentials"
	// ErrCodeNetworkUnavailable indicates the backend could not be reached.
	ErrCodeNetworkUnavailable ErrorCode = "network_unavailable"
	// ErrCodeSessionExpired indicates the access token was rejected and renewal also failed.
	ErrCodeSessionExpired ErrorCode = "session_expired"
	// ErrCodeServerError indicates a 5xx response or a malformed response body.
	ErrCodeServerError ErrorCode = "server_error"

	// ErrCodeVoucherNotFound indicates no voucher exists for the submitted code.
	ErrCodeVoucherNotFound ErrorCode = "voucher_not_found"
	// ErrCodeVoucherAlreadyUsed indicates a single-use voucher was already redeemed.
	ErrCodeVoucherAlreadyUsed ErrorCode = "voucher_already_used"
	// ErrCodeVoucherExpired indicates the voucher expiry time has passed.
	ErrCodeVoucherExpired ErrorCode = "voucher_expired"
	// ErrCodeVoucherUsageLimitReached indicates usage_count reached max_usage_count.
	ErrCodeVoucherUsageLimitReached ErrorCode = "voucher_usage_limit_reached"
	// ErrCodeVoucherDisabled indicates an operator deactivated the voucher.
	ErrCodeVoucherDisabled ErrorCode = "voucher_disabled"

	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict indicates a conflict with existing data (e.g., username already taken).
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodePermissionDenied indicates the current identity lacks the required role.
	ErrCodePermissionDenied ErrorCode = "permission_denied"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled or superseded.
	ErrCodeCanceled ErrorCode = "canceled"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message, usually the backend's own text
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Field is the specific field that caused the error (optional, for validation errors)
	Field string
	// Status is the HTTP status code that produced the error, zero for local failures
	Status int
	// Reason is the machine-readable reason the backend attached to the response, if any
	Reason string
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
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates an AppError with the given code and a formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// InvalidCredentials creates a new InvalidCredentials error.
func InvalidCredentials(message string) *AppError {
	return New(ErrCodeInvalidCredentials, message)
}

// NetworkUnavailable wraps a connectivity failure.
func NetworkUnavailable(cause error) *AppError {
	return &AppError{
		Code:    ErrCodeNetworkUnavailable,
		Message: "network unavailable",
		Cause:   cause,
	}
}

// SessionExpired creates a new SessionExpired error.
func SessionExpired(message string) *AppError {
	return New(ErrCodeSessionExpired, message)
}

// ServerError creates a new ServerError error.
func ServerError(message string) *AppError {
	return New(ErrCodeServerError, message)
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return New(ErrCodeNotFound, message)
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
		Field:   field,
	}
}

// PermissionDenied creates a new PermissionDenied error.
func PermissionDenied(message string) *AppError {
	return New(ErrCodePermissionDenied, message)
}

// Canceled creates a new Canceled error.
func Canceled(message string) *AppError {
	return New(ErrCodeCanceled, message)
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
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// Recode returns a copy of err's AppError with a different code. The message, status
// and reason are kept so the user still sees the backend's text. Errors that are not
// AppErrors are wrapped.
func Recode(err error, code ErrorCode) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return Wrap(err, code, err.Error())
	}
	cp := *appErr
	cp.Code = code
	return &cp
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsInvalidCredentials checks if an error is an InvalidCredentials error.
func IsInvalidCredentials(err error) bool {
	return isCode(err, ErrCodeInvalidCredentials)
}

// IsNetworkUnavailable checks if an error is a NetworkUnavailable error.
func IsNetworkUnavailable(err error) bool {
	return isCode(err, ErrCodeNetworkUnavailable)
}

// IsSessionExpired checks if an error is a SessionExpired error.
func IsSessionExpired(err error) bool {
	return isCode(err, ErrCodeSessionExpired)
}

// IsServerError checks if an error is a ServerError error.
func IsServerError(err error) bool {
	return isCode(err, ErrCodeServerError)
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsConflict checks if an error is a Conflict error.
func IsConflict(err error) bool {
	return isCode(err, ErrCodeConflict)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsPermissionDenied checks if an error is a PermissionDenied error.
func IsPermissionDenied(err error) bool {
	return isCode(err, ErrCodePermissionDenied)
}

// IsTimeout checks if an error is a Timeout error.
func IsTimeout(err error) bool {
	return isCode(err, ErrCodeTimeout)
}

// IsCanceled checks if an error is a Canceled error.
func IsCanceled(err error) bool {
	return isCode(err, ErrCodeCanceled)
}

// IsVoucherError reports whether err carries one of the voucher redemption codes.
func IsVoucherError(err error) bool {
	switch GetCode(err) {
	case ErrCodeVoucherNotFound, ErrCodeVoucherAlreadyUsed, ErrCodeVoucherExpired,
		ErrCodeVoucherUsageLimitReached, ErrCodeVoucherDisabled:
		return true
	default:
		return false
	}
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field from an error, or empty string if not an AppError or no field set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}

// GetStatus returns the HTTP status recorded on an AppError, or zero.
func GetStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return 0
}

// UserMessage returns the human-readable text for err: the AppError message when
// present, otherwise err.Error().
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return err.Error()
}
