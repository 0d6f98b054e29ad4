package sfx

import (
	"errors"
	"fmt"
)

// Stable error codes returned to calling automation tools. These are part of
// the trigger surface's contract; callers branch on them.
const (
	CodeNoPrompt            = "NO_PROMPT"
	CodeAPIKeyNotConfigured = "API_KEY_NOT_CONFIGURED"
	CodeInvalidAPIKey       = "INVALID_API_KEY"
	CodeQuotaExceeded       = "QUOTA_EXCEEDED"
	CodeRateLimited         = "RATE_LIMITED"
	CodeInvalidPrompt       = "INVALID_PROMPT"
	CodeTimeout             = "TIMEOUT"
	CodeNetworkError        = "NETWORK_ERROR"
	CodeUnknownError        = "UNKNOWN_ERROR"
)

// Error is a classified generation failure.
type Error struct {
	Code   string // stable code, or "" for API_ERROR_<status>
	Status int    // HTTP status for API_ERROR classification, 0 otherwise
	Detail string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.CodeString(), e.Detail)
	}
	return e.CodeString()
}

// CodeString returns the flat error code, embedding the HTTP status for
// unclassified API failures.
func (e *Error) CodeString() string {
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("API_ERROR_%d", e.Status)
	}
	return CodeUnknownError
}

// NewError creates an Error with a stable code.
func NewError(code, detail string) *Error {
	return &Error{Code: code, Detail: detail}
}

// NewAPIError creates an Error for an unclassified non-success status.
func NewAPIError(status int, detail string) *Error {
	return &Error{Status: status, Detail: detail}
}

// AsError classifies err as *Error, wrapping anything else as UNKNOWN_ERROR.
// A nil err yields nil.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: CodeUnknownError, Detail: err.Error()}
}
