package types

import (
	"errors"
	"fmt"
)

// Admission and validation rejections. The messages double as the Reason
// field of error results, so they are caller-facing strings rather than the
// usual lowercase error text.
var (
	ErrDisabled       = errors.New("Prefetching disabled")
	ErrMaxConcurrent  = errors.New("Max concurrent operations reached")
	ErrRateLimited    = errors.New("Rate limit exceeded")
	ErrMemoryLimit    = errors.New("Memory limit exceeded")
	ErrConnectionSlow = errors.New("Connection too slow")
	ErrInvalidURL     = errors.New("Invalid URL")
	ErrExternalURL    = errors.New("External URL not supported")
)

// Internal lifecycle errors.
var (
	ErrClosed            = errors.New("prewarm: scheduler closed")
	ErrRemoteUnavailable = errors.New("prewarm: remote cache unavailable")
	ErrRemoteMiss        = errors.New("prewarm: remote key not found")
	ErrShutdownTimeout   = errors.New("prewarm: shutdown timeout waiting for background operations")
)

// PrefetchError wraps an underlying failure with the operation and target
// that produced it.
type PrefetchError struct {
	Op  string
	URL string
	Err error
}

func (e *PrefetchError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("prewarm %s [%s]: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("prewarm %s: %v", e.Op, e.Err)
}

func (e *PrefetchError) Unwrap() error {
	return e.Err
}

func NewPrefetchError(op, url string, err error) *PrefetchError {
	return &PrefetchError{Op: op, URL: url, Err: err}
}

// IsAdmissionReject reports whether err is one of the constraint gate's
// expected, non-exceptional rejections.
func IsAdmissionReject(err error) bool {
	return errors.Is(err, ErrDisabled) ||
		errors.Is(err, ErrMaxConcurrent) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrMemoryLimit) ||
		errors.Is(err, ErrConnectionSlow)
}

// IsValidationReject reports whether err is a local URL validation failure.
// Validation failures are never retried.
func IsValidationReject(err error) bool {
	return errors.Is(err, ErrInvalidURL) || errors.Is(err, ErrExternalURL)
}

func IsRemoteMiss(err error) bool {
	return errors.Is(err, ErrRemoteMiss)
}

func IsRemoteUnavailable(err error) bool {
	return errors.Is(err, ErrRemoteUnavailable)
}

// IsRetryable reports whether a failed queue item is worth requeueing.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsValidationReject(err) {
		return false
	}
	// Admission rejections resolve on their own (slots free up, the rate
	// window slides); the queue retries them rather than dropping the item.
	if errors.Is(err, ErrClosed) {
		return false
	}
	return true
}
