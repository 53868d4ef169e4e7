package prewarm

import "github.com/darrell-green/prewarm/internal/types"

// Rejection and validation errors. Their messages double as the Reason
// field of error results.
var (
	ErrDisabled       = types.ErrDisabled
	ErrMaxConcurrent  = types.ErrMaxConcurrent
	ErrRateLimited    = types.ErrRateLimited
	ErrMemoryLimit    = types.ErrMemoryLimit
	ErrConnectionSlow = types.ErrConnectionSlow
	ErrInvalidURL     = types.ErrInvalidURL
	ErrExternalURL    = types.ErrExternalURL

	ErrClosed          = types.ErrClosed
	ErrShutdownTimeout = types.ErrShutdownTimeout
)

// PrefetchError wraps an underlying failure with its operation and target.
type PrefetchError = types.PrefetchError

// IsAdmissionReject reports whether err is an expected admission-control
// rejection rather than an exceptional failure.
func IsAdmissionReject(err error) bool {
	return types.IsAdmissionReject(err)
}

// IsValidationReject reports whether err is a URL validation failure.
func IsValidationReject(err error) bool {
	return types.IsValidationReject(err)
}
