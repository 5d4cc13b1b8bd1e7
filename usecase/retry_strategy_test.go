package usecase_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"social-publisher/domain/model"
	"social-publisher/usecase"
)

func canonical(kind model.ErrorKind) *model.CanonicalError {
	return model.NewCanonicalError(kind, model.PlatformFacebook, "test")
}

func TestDecideMaxAttemptsReached(t *testing.T) {
	d := usecase.Decide(canonical(model.ErrNetworkError), 5, 5, model.PlatformFacebook)
	assert.False(t, d.ShouldRetry)
	assert.Equal(t, "max attempts reached", d.Reason)
}

func TestDecideKindMappingIsPlatformIndependent(t *testing.T) {
	cases := []struct {
		kind  model.ErrorKind
		retry bool
	}{
		{model.ErrInvalidToken, false},
		{model.ErrTokenExpired, false},
		{model.ErrAccountSuspended, false},
		{model.ErrInsufficientPermissions, false},
		{model.ErrValidationError, false},
		{model.ErrContentTooLong, false},
		{model.ErrDuplicateContent, false},
		{model.ErrMissingMedia, false},
		{model.ErrMediaTooLarge, false},
		{model.ErrRateLimitExceeded, true},
		{model.ErrDailyLimitReached, true},
		{model.ErrNetworkError, true},
		{model.ErrPlatformUnavailable, true},
		{model.ErrInvalidMedia, true},
		{model.ErrUnknown, true},
	}
	for _, platform := range model.AllPlatforms() {
		for _, tc := range cases {
			d := usecase.Decide(canonical(tc.kind), 1, 10, platform)
			assert.Equal(t, tc.retry, d.ShouldRetry, "kind %s on %s", tc.kind, platform)
		}
	}
}

func TestDecideRateLimitUsesHint(t *testing.T) {
	cerr := canonical(model.ErrRateLimitExceeded).WithRetryAfter(90 * time.Second)
	d := usecase.Decide(cerr, 1, 5, model.PlatformTwitter)
	assert.True(t, d.ShouldRetry)
	assert.Equal(t, 90*time.Second, d.Delay)
}

func TestDecideRateLimitHintClamped(t *testing.T) {
	low := canonical(model.ErrRateLimitExceeded).WithRetryAfter(10 * time.Millisecond)
	d := usecase.Decide(low, 1, 5, model.PlatformTwitter)
	assert.Equal(t, time.Second, d.Delay)

	high := canonical(model.ErrRateLimitExceeded).WithRetryAfter(48 * time.Hour)
	d = usecase.Decide(high, 1, 5, model.PlatformTwitter)
	assert.Equal(t, 24*time.Hour, d.Delay)
}

func TestDecideRateLimitDefaultWithoutHint(t *testing.T) {
	d := usecase.Decide(canonical(model.ErrRateLimitExceeded), 1, 5, model.PlatformTwitter)
	assert.Equal(t, usecase.PolicyFor(model.PlatformTwitter).RateLimitDefault, d.Delay)
}

func TestDecideDailyLimitDefaultsToOneHour(t *testing.T) {
	d := usecase.Decide(canonical(model.ErrDailyLimitReached), 1, 5, model.PlatformFacebook)
	assert.Equal(t, time.Hour, d.Delay)
}

func TestDecideInvalidMediaAtMostTwoRetries(t *testing.T) {
	// First failed attempt and its first retry may both retry; the third
	// failed attempt is terminal.
	assert.True(t, usecase.Decide(canonical(model.ErrInvalidMedia), 1, 5, model.PlatformInstagram).ShouldRetry)
	assert.True(t, usecase.Decide(canonical(model.ErrInvalidMedia), 2, 5, model.PlatformInstagram).ShouldRetry)
	assert.False(t, usecase.Decide(canonical(model.ErrInvalidMedia), 3, 5, model.PlatformInstagram).ShouldRetry)
}

func TestDecideUnknownRetriesExactlyOnce(t *testing.T) {
	// The first delivery of a job passes attemptsMade 1; an unknown error
	// there must still get its single probe retry.
	assert.True(t, usecase.Decide(canonical(model.ErrUnknown), 1, 5, model.PlatformLinkedIn).ShouldRetry)
	assert.False(t, usecase.Decide(canonical(model.ErrUnknown), 2, 5, model.PlatformLinkedIn).ShouldRetry)
}

func TestConfigureRetryDefaultsReshapesDefaultPolicy(t *testing.T) {
	saved := usecase.DefaultRetryPolicy
	defer func() { usecase.DefaultRetryPolicy = saved }()

	usecase.ConfigureRetryDefaults(45*time.Second, 20*time.Minute)
	policy := usecase.PolicyFor(model.PlatformFacebook) // no platform override
	assert.Equal(t, 45*time.Second, policy.BaseDelay)
	assert.Equal(t, 20*time.Minute, policy.MaxDelay)

	// Zero values leave the policy alone.
	usecase.ConfigureRetryDefaults(0, 0)
	assert.Equal(t, 45*time.Second, usecase.DefaultRetryPolicy.BaseDelay)

	// Platform overrides are untouched.
	assert.Equal(t, 2*time.Minute, usecase.PolicyFor(model.PlatformYouTube).BaseDelay)
}

func TestBackoffMonotonicUpToCap(t *testing.T) {
	policy := usecase.RetryPolicy{
		MaxAttempts: 10,
		BaseDelay:   time.Second,
		MaxDelay:    time.Minute,
		Shape:       usecase.BackoffExponential,
	}
	// Compare unjittered midpoints: with ±20% jitter, delay(n) must stay
	// within [0.8, 1.2] of base*2^n until the cap flattens growth.
	prevCeil := time.Duration(0)
	for attempt := 0; attempt < 8; attempt++ {
		d := usecase.Backoff(policy, attempt)
		base := time.Second << attempt
		if base > time.Minute {
			base = time.Minute
		}
		min := time.Duration(float64(base) * 0.8)
		max := time.Duration(float64(base) * 1.2)
		assert.GreaterOrEqual(t, d, min, "attempt %d", attempt)
		assert.LessOrEqual(t, d, max, "attempt %d", attempt)
		// Jitter bands of consecutive attempts never invert ordering:
		// the lower bound of attempt n is above the upper bound of n-2.
		assert.GreaterOrEqual(t, max, prevCeil/2)
		prevCeil = max
	}
}

func TestBackoffShapes(t *testing.T) {
	fixed := usecase.RetryPolicy{BaseDelay: 10 * time.Second, MaxDelay: time.Minute, Shape: usecase.BackoffFixed}
	linear := usecase.RetryPolicy{BaseDelay: 10 * time.Second, MaxDelay: time.Minute, Shape: usecase.BackoffLinear}

	for attempt := 0; attempt < 5; attempt++ {
		d := usecase.Backoff(fixed, attempt)
		assert.InDelta(t, float64(10*time.Second), float64(d), float64(2*time.Second))
	}
	d := usecase.Backoff(linear, 2)
	assert.InDelta(t, float64(30*time.Second), float64(d), float64(6*time.Second))
}

func TestYouTubePolicyIsStricter(t *testing.T) {
	yt := usecase.PolicyFor(model.PlatformYouTube)
	def := usecase.DefaultRetryPolicy
	assert.Less(t, yt.MaxAttempts, def.MaxAttempts)
	assert.Greater(t, yt.BaseDelay, def.BaseDelay)
}
