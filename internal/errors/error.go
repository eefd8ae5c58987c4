// Package errors provides coded errors for the bot's failure taxonomy.
//
// Codes are grouped by how the control loop reacts to them:
//   - Configuration errors (100-199): surfaced to the user, the loop does not start
//   - Connectivity errors (200-299): price fetch or order placement failed, retried next tick
//   - Persistence errors (300-399): save/load failed, the loop keeps its in-memory state
//   - Display errors (400-499): a read handler failed, only that request is affected
//
// Usage:
//
//	err := errors.Wrap(errors.ErrCodeConnectivity, "failed to fetch price", cause)
//	if errors.IsFatal(err) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error is a failure carrying a code, a message and an optional cause.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps cause with the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Wrapf wraps cause with the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode returns the code of the outermost *Error in err's chain,
// or ErrCodeUnknown when there is none.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool {
	return GetCode(err).Category() == CategoryConfiguration
}

// IsConnectivity reports whether err is a connectivity error, including
// authentication and rejected orders.
func IsConnectivity(err error) bool {
	return GetCode(err).Category() == CategoryConnectivity
}

// IsPersistence reports whether err is a persistence error.
func IsPersistence(err error) bool {
	return GetCode(err).Category() == CategoryPersistence
}

// IsFatal reports whether err must stop the control loop.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case ErrCodeAuthentication, ErrCodeInvalidCredentials, ErrCodeRetriesExhausted:
		return true
	}

	return false
}
