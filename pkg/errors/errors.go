// Package errors defines the structured errors bpedit reports.
//
// An [Error] pairs a machine-readable [Code] with a message and an optional
// cause. Codes group by prefix: INVALID_* for rejected input, NOT_FOUND,
// DECODE_* with one code per decode failure kind, ENCODE_FAILED, STORE_*
// for library backends and INTERNAL_ERROR.
//
// Errors from other packages join in by implementing Code() Code, as the
// codec's DecodeError does, so [Is] and [GetCode] see them too:
//
//	if errors.Is(err, errors.ErrCodeBadVersionByte) {
//	    // not a blueprint string
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeInvalidPlacement Code = "INVALID_PLACEMENT"
	ErrCodeInvalidLabel     Code = "INVALID_LABEL"
	ErrCodeInvalidIcons     Code = "INVALID_ICONS"
	ErrCodeInvalidKey       Code = "INVALID_KEY"
	ErrCodeInvalidConfig    Code = "INVALID_CONFIG"

	// Resource not found errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Codec errors
	ErrCodeBadAlphabet         Code = "DECODE_BAD_ALPHABET"
	ErrCodeBadVersionByte      Code = "DECODE_BAD_VERSION_BYTE"
	ErrCodeDecompressionFailed Code = "DECODE_DECOMPRESSION_FAILED"
	ErrCodeSchemaMismatch      Code = "DECODE_SCHEMA_MISMATCH"
	ErrCodeEncodeFailed        Code = "ENCODE_FAILED"

	// Storage errors
	ErrCodeStoreUnavailable Code = "STORE_UNAVAILABLE"
	ErrCodeStoreCorrupt     Code = "STORE_CORRUPT"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// coder is implemented by error types outside this package that map onto a Code,
// such as the codec's DecodeError.
type coder interface {
	Code() Code
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error, or any error exposing
// a Code() method, with a matching code.
func Is(err error, code Code) bool {
	return GetCode(err) == code && code != ""
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if no error in the chain carries a code.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
