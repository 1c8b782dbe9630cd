// Package errors defines stable error codes for all failure modes so
// callers and tool clients can branch on machine-readable categories.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// SymbolNotFound indicates a named symbol doesn't exist in the index
	SymbolNotFound ErrorCode = "SYMBOL_NOT_FOUND"
	// RuleNotFound indicates an unknown rule ID
	RuleNotFound ErrorCode = "RULE_NOT_FOUND"
	// FileNotIndexed indicates the requested path has no index entry
	FileNotIndexed ErrorCode = "FILE_NOT_INDEXED"
	// FileUnreadable indicates a source file could not be read from disk
	FileUnreadable ErrorCode = "FILE_UNREADABLE"
	// ParseFailed indicates the parser could not fully process a file
	ParseFailed ErrorCode = "PARSE_FAILED"
	// QueryInvalid indicates a rule query was rejected or failed to execute
	QueryInvalid ErrorCode = "QUERY_INVALID"
	// InvalidInput indicates a malformed request or argument
	InvalidInput ErrorCode = "INVALID_INPUT"
	// Internal indicates an unexpected error
	Internal ErrorCode = "INTERNAL"
)

// Error represents a codeindex error with a stable code and optional details
type Error struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error       // Underlying error (not exported to JSON)
}

// New creates a new Error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a new Error with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a new Error wrapping an underlying cause
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// CodeOf extracts the ErrorCode from err, or Internal if err carries none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return Internal
}

// IsNotFound reports whether err is one of the not-found categories.
func IsNotFound(err error) bool {
	switch CodeOf(err) {
	case SymbolNotFound, RuleNotFound, FileNotIndexed:
		return true
	}
	return false
}
