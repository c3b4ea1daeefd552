package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the engine.
type ErrorCode string

// Configuration error codes. These are fatal and surfaced before any I/O.
const (
	ErrInvalidBudget     ErrorCode = "INVALID_BUDGET"
	ErrInvalidRetention  ErrorCode = "INVALID_RETENTION"
	ErrInvalidStrategy   ErrorCode = "INVALID_STRATEGY"
	ErrProviderNotFound  ErrorCode = "PROVIDER_NOT_FOUND"
	ErrInvalidTranscript ErrorCode = "INVALID_TRANSCRIPT"
)

// Provider error codes. These are recoverable; the engine degrades to a
// per-chunk fallback and never fails the overall compaction on them.
const (
	ErrAuthentication      ErrorCode = "AUTHENTICATION"
	ErrRateLimited         ErrorCode = "RATE_LIMITED"
	ErrTimeout             ErrorCode = "TIMEOUT"
	ErrEmptySummary        ErrorCode = "EMPTY_SUMMARY"
	ErrUpstreamError       ErrorCode = "UPSTREAM_ERROR"
	ErrProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
)

// Internal error codes.
const (
	ErrTokenizerError ErrorCode = "TOKENIZER_ERROR"
	ErrCacheError     ErrorCode = "CACHE_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

var configurationCodes = map[ErrorCode]bool{
	ErrInvalidBudget:     true,
	ErrInvalidRetention:  true,
	ErrInvalidStrategy:   true,
	ErrProviderNotFound:  true,
	ErrInvalidTranscript: true,
}

var providerCodes = map[ErrorCode]bool{
	ErrAuthentication:      true,
	ErrRateLimited:         true,
	ErrTimeout:             true,
	ErrEmptySummary:        true,
	ErrUpstreamError:       true,
	ErrProviderUnavailable: true,
}

// IsConfiguration reports whether err is a fatal configuration error.
func IsConfiguration(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return configurationCodes[e.Code]
	}
	return false
}

// IsProvider reports whether err is a recoverable provider error.
func IsProvider(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return providerCodes[e.Code]
	}
	return false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
