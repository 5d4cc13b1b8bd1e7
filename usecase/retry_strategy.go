package usecase

import (
	"math"
	"math/rand/v2"
	"time"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"
)

// BackoffShape selects how the retry delay grows with the attempt number.
type BackoffShape string

const (
	BackoffFixed       BackoffShape = "fixed"
	BackoffLinear      BackoffShape = "linear"
	BackoffExponential BackoffShape = "exponential"
)

// RetryPolicy is the per-platform override set. Platforms with stricter
// quotas (video upload) get fewer, longer-spaced attempts.
type RetryPolicy struct {
	MaxAttempts      int
	BaseDelay        time.Duration
	MaxDelay         time.Duration
	Shape            BackoffShape
	RateLimitDefault time.Duration
}

const (
	rateLimitClampMin = time.Second
	rateLimitClampMax = 24 * time.Hour
	dailyLimitDefault = time.Hour
	jitterFraction    = 0.2 // jittered delay stays within ±20% of the base
)

// DefaultRetryPolicy is used for any platform without an override.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:      5,
	BaseDelay:        30 * time.Second,
	MaxDelay:         30 * time.Minute,
	Shape:            BackoffExponential,
	RateLimitDefault: 15 * time.Minute,
}

// platformPolicies carries the per-platform overrides. YouTube video
// uploads are expensive, so it retries less often with longer spacing;
// Twitter's rate windows are short, so it can probe more aggressively.
var platformPolicies = map[model.Platform]RetryPolicy{
	model.PlatformYouTube: {
		MaxAttempts:      3,
		BaseDelay:        2 * time.Minute,
		MaxDelay:         time.Hour,
		Shape:            BackoffExponential,
		RateLimitDefault: time.Hour,
	},
	model.PlatformTwitter: {
		MaxAttempts:      5,
		BaseDelay:        15 * time.Second,
		MaxDelay:         15 * time.Minute,
		Shape:            BackoffExponential,
		RateLimitDefault: 15 * time.Minute,
	},
	model.PlatformInstagram: {
		MaxAttempts:      4,
		BaseDelay:        time.Minute,
		MaxDelay:         30 * time.Minute,
		Shape:            BackoffExponential,
		RateLimitDefault: 30 * time.Minute,
	},
}

// ConfigureRetryDefaults applies the configured backoff bounds to the
// default policy. Platform overrides keep their tuned values.
func ConfigureRetryDefaults(baseDelay, maxDelay time.Duration) {
	if baseDelay > 0 {
		DefaultRetryPolicy.BaseDelay = baseDelay
	}
	if maxDelay > 0 {
		DefaultRetryPolicy.MaxDelay = maxDelay
	}
}

// PolicyFor returns the retry policy for a platform.
func PolicyFor(platform model.Platform) RetryPolicy {
	if p, ok := platformPolicies[platform]; ok {
		return p
	}
	return DefaultRetryPolicy
}

// Decide is the pure retry decision: given a classified error and the
// attempt count, answer retry/no-retry plus delay. attemptsMade counts
// delivery attempts including the one that just failed, so the first
// delivery passes 1. It never performs I/O; the processor applies the
// decision via delayed re-enqueue.
func Decide(cerr *model.CanonicalError, attemptsMade, maxAttempts int, platform model.Platform) model.RetryDecision {
	policy := PolicyFor(platform)
	if maxAttempts <= 0 {
		maxAttempts = policy.MaxAttempts
	}
	if attemptsMade < 1 {
		attemptsMade = 1
	}
	if attemptsMade >= maxAttempts {
		return model.RetryDecision{ShouldRetry: false, Reason: "max attempts reached"}
	}
	// Backoff is indexed by retries already consumed.
	priorRetries := attemptsMade - 1

	switch cerr.Kind {
	case model.ErrRateLimitExceeded:
		return model.RetryDecision{
			ShouldRetry: true,
			Delay:       rateLimitDelay(cerr.RetryAfter, policy.RateLimitDefault),
			Reason:      "rate limit, waiting for reset",
		}
	case model.ErrDailyLimitReached:
		return model.RetryDecision{
			ShouldRetry: true,
			Delay:       rateLimitDelay(cerr.RetryAfter, dailyLimitDefault),
			Reason:      "daily limit, waiting for reset",
		}
	case model.ErrInvalidToken, model.ErrTokenExpired, model.ErrAccountSuspended:
		return model.RetryDecision{ShouldRetry: false, Reason: "requires reconnect or manual action"}
	case model.ErrInsufficientPermissions:
		return model.RetryDecision{ShouldRetry: false, Reason: "missing permissions"}
	case model.ErrValidationError, model.ErrContentTooLong, model.ErrDuplicateContent, model.ErrMissingMedia, model.ErrMediaTooLarge:
		return model.RetryDecision{ShouldRetry: false, Reason: "content must change"}
	case model.ErrInvalidMedia:
		// Media uploads flake; worth two more probes after the first
		// failure, no more.
		if attemptsMade >= 3 {
			return model.RetryDecision{ShouldRetry: false, Reason: "media retries exhausted"}
		}
		return model.RetryDecision{ShouldRetry: true, Delay: Backoff(policy, priorRetries), Reason: "media upload retry"}
	case model.ErrNetworkError, model.ErrPlatformUnavailable:
		return model.RetryDecision{ShouldRetry: true, Delay: Backoff(policy, priorRetries), Reason: "transient platform failure"}
	case model.ErrUnknown:
		if attemptsMade >= 2 {
			return model.RetryDecision{ShouldRetry: false, Reason: "unknown error, single retry spent"}
		}
		logger.GetLogger().
			WithField("platform", platform).
			WithField("message", cerr.Message).
			Warn("Unclassified platform error, classification coverage gap")
		return model.RetryDecision{ShouldRetry: true, Delay: Backoff(policy, priorRetries), Reason: "unknown error, single probe"}
	}

	if cerr.Retryable {
		return model.RetryDecision{ShouldRetry: true, Delay: Backoff(policy, priorRetries), Reason: "retryable error"}
	}
	return model.RetryDecision{ShouldRetry: false, Reason: "non-retryable error"}
}

// Backoff computes the jittered delay for the given attempt (0-indexed:
// attempt 0 is the delay before the first retry).
func Backoff(policy RetryPolicy, attempt int) time.Duration {
	var base time.Duration
	switch policy.Shape {
	case BackoffFixed:
		base = policy.BaseDelay
	case BackoffLinear:
		base = policy.BaseDelay * time.Duration(attempt+1)
	default:
		base = time.Duration(float64(policy.BaseDelay) * math.Pow(2, float64(attempt)))
	}
	if policy.MaxDelay > 0 && base > policy.MaxDelay {
		base = policy.MaxDelay
	}
	return jitter(base)
}

// jitter spreads delays ±20% to avoid a thundering herd of retries.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	factor := 1 + jitterFraction*(2*rand.Float64()-1)
	return time.Duration(float64(d) * factor)
}

func rateLimitDelay(hint *time.Duration, fallback time.Duration) time.Duration {
	if hint == nil {
		return fallback
	}
	d := *hint
	if d < rateLimitClampMin {
		return rateLimitClampMin
	}
	if d > rateLimitClampMax {
		return rateLimitClampMax
	}
	return d
}
