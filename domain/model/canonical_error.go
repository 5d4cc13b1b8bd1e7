package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind is the platform-agnostic classification of a publish failure.
// Retry decisions branch on the kind, never on raw platform payloads.
type ErrorKind string

const (
	ErrInvalidToken            ErrorKind = "INVALID_TOKEN"
	ErrTokenExpired            ErrorKind = "TOKEN_EXPIRED"
	ErrInsufficientPermissions ErrorKind = "INSUFFICIENT_PERMISSIONS"
	ErrRateLimitExceeded       ErrorKind = "RATE_LIMIT_EXCEEDED"
	ErrDailyLimitReached       ErrorKind = "DAILY_LIMIT_REACHED"
	ErrContentTooLong          ErrorKind = "CONTENT_TOO_LONG"
	ErrInvalidMedia            ErrorKind = "INVALID_MEDIA"
	ErrMediaTooLarge           ErrorKind = "MEDIA_TOO_LARGE"
	ErrMissingMedia            ErrorKind = "MISSING_MEDIA"
	ErrAccountSuspended        ErrorKind = "ACCOUNT_SUSPENDED"
	ErrDuplicateContent        ErrorKind = "DUPLICATE_CONTENT"
	ErrPlatformUnavailable     ErrorKind = "PLATFORM_UNAVAILABLE"
	ErrNetworkError            ErrorKind = "NETWORK_ERROR"
	ErrValidationError         ErrorKind = "VALIDATION_ERROR"
	ErrUnknown                 ErrorKind = "UNKNOWN"
)

// CanonicalError carries one classified failure. It implements error so
// publisher code can return it directly.
type CanonicalError struct {
	Kind       ErrorKind
	Platform   Platform
	Message    string
	Retryable  bool
	RetryAfter *time.Duration // rate-limit reset hint, when the platform provided one
	HTTPStatus int
}

func (e *CanonicalError) Error() string {
	if e.Platform != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Platform, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewCanonicalError builds a classified error with the default
// retryability for its kind.
func NewCanonicalError(kind ErrorKind, platform Platform, message string) *CanonicalError {
	return &CanonicalError{Kind: kind, Platform: platform, Message: message, Retryable: kindRetryable(kind)}
}

// WithRetryAfter attaches a reset hint. Returns the receiver for chaining.
func (e *CanonicalError) WithRetryAfter(d time.Duration) *CanonicalError {
	e.RetryAfter = &d
	return e
}

// AsCanonical extracts a CanonicalError from an error chain. Unclassified
// errors are wrapped as retryable Unknown so the strategy still gets one
// probe attempt out of them.
func AsCanonical(err error, platform Platform) *CanonicalError {
	if err == nil {
		return nil
	}
	var ce *CanonicalError
	if errors.As(err, &ce) {
		return ce
	}
	return &CanonicalError{Kind: ErrUnknown, Platform: platform, Message: err.Error(), Retryable: true}
}

func kindRetryable(kind ErrorKind) bool {
	switch kind {
	case ErrRateLimitExceeded, ErrDailyLimitReached, ErrPlatformUnavailable, ErrNetworkError, ErrInvalidMedia, ErrUnknown:
		return true
	}
	return false
}
