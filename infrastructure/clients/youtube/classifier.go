package youtube

import (
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"

	"social-publisher/domain/model"
)

var kindByReason = map[string]model.ErrorKind{
	"authError":                  model.ErrInvalidToken,
	"invalidCredentials":         model.ErrInvalidToken,
	"expired":                    model.ErrTokenExpired,
	"insufficientPermissions":    model.ErrInsufficientPermissions,
	"forbidden":                  model.ErrInsufficientPermissions,
	"quotaExceeded":              model.ErrRateLimitExceeded,
	"rateLimitExceeded":          model.ErrRateLimitExceeded,
	"userRateLimitExceeded":      model.ErrRateLimitExceeded,
	"dailyLimitExceeded":         model.ErrDailyLimitReached,
	"uploadLimitExceeded":        model.ErrDailyLimitReached,
	"invalidVideoMetadata":       model.ErrValidationError,
	"invalidDescription":         model.ErrContentTooLong,
	"invalidTitle":               model.ErrValidationError,
	"mediaBodyRequired":          model.ErrMissingMedia,
	"invalidMedia":               model.ErrInvalidMedia,
	"unsupportedMediaType":       model.ErrInvalidMedia,
	"suspended":                  model.ErrAccountSuspended,
	"accountTerminated":          model.ErrAccountSuspended,
	"backendError":               model.ErrPlatformUnavailable,
	"internalError":              model.ErrPlatformUnavailable,
	"serviceUnavailable":         model.ErrPlatformUnavailable,
	"processingFailure":          model.ErrPlatformUnavailable,
}

// Classify maps a Data API failure onto the canonical taxonomy. The
// googleapi.Error reason string is authoritative; the HTTP code only
// breaks ties when no reason is present.
func Classify(err error) *model.CanonicalError {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return model.NewCanonicalError(model.ErrNetworkError, model.PlatformYouTube, err.Error())
	}

	kind := model.ErrUnknown
	for _, item := range gerr.Errors {
		if k, ok := kindByReason[item.Reason]; ok {
			kind = k
			break
		}
	}
	if kind == model.ErrUnknown {
		switch {
		case gerr.Code == http.StatusUnauthorized:
			kind = model.ErrInvalidToken
		case gerr.Code == http.StatusForbidden:
			kind = model.ErrInsufficientPermissions
		case gerr.Code == http.StatusTooManyRequests:
			kind = model.ErrRateLimitExceeded
		case gerr.Code >= 500:
			kind = model.ErrPlatformUnavailable
		}
	}

	msg := gerr.Message
	if msg == "" && len(gerr.Errors) > 0 {
		msg = gerr.Errors[0].Message
	}
	if msg == "" {
		msg = err.Error()
	}
	cerr := model.NewCanonicalError(kind, model.PlatformYouTube, msg)
	cerr.HTTPStatus = gerr.Code
	if kind == model.ErrUnknown {
		cerr.Retryable = gerr.Code >= 500
	}
	return cerr
}
