package gateway

import (
	"errors"
	"fmt"
	"time"
)

// ThrottledError surfaces after the retry budget is exhausted on upstream
// quota signals (HTTP 429). It is retryable from the caller's point of view.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("upstream throttled, retry after %s", e.RetryAfter)
}

// Retryable marks the error for short negative-caching.
func (e *ThrottledError) Retryable() bool { return true }

// UnavailableError surfaces after the retry budget is exhausted on transient
// failures (network errors and 5xx responses).
type UnavailableError struct {
	Status int // 0 for network-level failures
	Err    error
}

func (e *UnavailableError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("upstream unavailable (status %d)", e.Status)
	}
	return fmt.Sprintf("upstream unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Retryable marks the error for short negative-caching.
func (e *UnavailableError) Retryable() bool { return true }

// RejectedError is a permanent upstream rejection (4xx other than 429).
// It is never retried and never cached.
type RejectedError struct {
	Status int
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("upstream rejected request (status %d)", e.Status)
}

// IsThrottled reports whether err is a terminal throttle failure.
func IsThrottled(err error) bool {
	var te *ThrottledError
	return errors.As(err, &te)
}

// IsUnavailable reports whether err is a terminal transient-failure.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

// IsRejected reports whether err is a permanent upstream rejection.
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}
