package provider

import (
	"errors"
	"net/http"
)

// Sentinel errors for the provider layer. Clients classify SDK and
// transport failures into exactly one of these and wrap with %w so that
// callers can match with errors.Is. No retries happen below the
// application layer; a caller seeing ErrRateLimit decides its own backoff.
var (
	// ErrAuthentication indicates missing or rejected credentials.
	ErrAuthentication = errors.New("authentication failed")

	// ErrRateLimit indicates the provider signalled throttling.
	ErrRateLimit = errors.New("rate limited")

	// ErrInvalidRequest indicates malformed generation parameters or an
	// otherwise rejected request.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUnavailable indicates a network failure or timeout reaching the
	// provider.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrUnknownProvider indicates an unrecognized provider name given to
	// the factory.
	ErrUnknownProvider = errors.New("unknown provider")
)

// sentinelForStatus maps an HTTP status code from a provider API to the
// matching sentinel.
func sentinelForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrAuthentication
	case status == http.StatusTooManyRequests:
		return ErrRateLimit
	case status >= 400 && status < 500:
		return ErrInvalidRequest
	default:
		return ErrUnavailable
	}
}
