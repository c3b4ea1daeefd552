package summarizer

import (
	"context"
	"errors"
	"net/http"

	"github.com/BaSui01/chatflow/types"
)

// MapHTTPError converts an upstream HTTP status into a typed provider
// error. Adapters share this mapping so the engine sees a uniform
// taxonomy regardless of backend.
func MapHTTPError(status int, msg, provider string) *types.Error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return types.NewError(types.ErrAuthentication, msg).
			WithHTTPStatus(status).
			WithProvider(provider)
	case status == http.StatusTooManyRequests:
		return types.NewError(types.ErrRateLimited, msg).
			WithHTTPStatus(status).
			WithRetryable(true).
			WithProvider(provider)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return types.NewError(types.ErrTimeout, msg).
			WithHTTPStatus(status).
			WithRetryable(true).
			WithProvider(provider)
	case status == http.StatusServiceUnavailable:
		return types.NewError(types.ErrProviderUnavailable, msg).
			WithHTTPStatus(status).
			WithRetryable(true).
			WithProvider(provider)
	case status >= 500:
		return types.NewError(types.ErrUpstreamError, msg).
			WithHTTPStatus(status).
			WithRetryable(true).
			WithProvider(provider)
	default:
		return types.NewError(types.ErrUpstreamError, msg).
			WithHTTPStatus(status).
			WithProvider(provider)
	}
}

// MapTransportError converts a transport-level failure (connection
// refused, context deadline) into a typed provider error.
func MapTransportError(err error, provider string) *types.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewError(types.ErrTimeout, "request timed out").
			WithRetryable(true).
			WithProvider(provider).
			WithCause(err)
	}
	return types.NewError(types.ErrProviderUnavailable, "request failed").
		WithRetryable(true).
		WithProvider(provider).
		WithCause(err)
}

// ErrEmpty builds the typed error for an empty model output.
func ErrEmpty(provider string) *types.Error {
	return types.NewError(types.ErrEmptySummary, "provider returned empty summary").
		WithProvider(provider)
}
