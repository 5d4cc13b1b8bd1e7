package twitter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"social-publisher/domain/model"
)

// apiError covers both the v2 problem-details shape and the legacy
// {"errors":[{"code":..}]} envelope, since media endpoints still answer in
// the old vocabulary.
type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Type   string `json:"type"`
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

var kindByLegacyCode = map[int]model.ErrorKind{
	32:  model.ErrInvalidToken,   // could not authenticate
	89:  model.ErrTokenExpired,   // invalid or expired token
	64:  model.ErrAccountSuspended,
	326: model.ErrAccountSuspended, // temporarily locked
	88:  model.ErrRateLimitExceeded,
	185: model.ErrDailyLimitReached, // user is over daily status update limit
	186: model.ErrContentTooLong,
	187: model.ErrDuplicateContent,
	324: model.ErrInvalidMedia,
	130: model.ErrPlatformUnavailable, // over capacity
	131: model.ErrPlatformUnavailable,
}

var kindByProblemTitle = map[string]model.ErrorKind{
	"Unauthorized":        model.ErrInvalidToken,
	"Forbidden":           model.ErrInsufficientPermissions,
	"Too Many Requests":   model.ErrRateLimitExceeded,
	"Duplicate":           model.ErrDuplicateContent,
	"Invalid Request":     model.ErrValidationError,
	"Client Forbidden":    model.ErrInsufficientPermissions,
	"Service Unavailable": model.ErrPlatformUnavailable,
}

// Classify maps an X API failure to a canonical error. Rate-limit
// responses carry the reset epoch in x-rate-limit-reset; the hint rides on
// the canonical error when present.
func Classify(httpStatus int, body []byte, header http.Header) *model.CanonicalError {
	var ae apiError
	_ = json.Unmarshal(body, &ae)

	kind := model.ErrUnknown
	msg := strings.TrimSpace(ae.Detail)
	if msg == "" {
		msg = ae.Title
	}

	if len(ae.Errors) > 0 {
		if k, ok := kindByLegacyCode[ae.Errors[0].Code]; ok {
			kind = k
		}
		if msg == "" {
			msg = ae.Errors[0].Message
		}
	}
	if kind == model.ErrUnknown && ae.Title != "" {
		if k, ok := kindByProblemTitle[ae.Title]; ok {
			kind = k
		}
	}
	if kind == model.ErrUnknown {
		switch {
		case httpStatus == http.StatusTooManyRequests:
			kind = model.ErrRateLimitExceeded
		case httpStatus == http.StatusUnauthorized:
			kind = model.ErrInvalidToken
		case httpStatus == http.StatusForbidden:
			kind = model.ErrInsufficientPermissions
		case httpStatus >= 500:
			kind = model.ErrPlatformUnavailable
		}
	}

	if msg == "" {
		msg = fmt.Sprintf("x api returned %d", httpStatus)
	}
	cerr := model.NewCanonicalError(kind, model.PlatformTwitter, msg)
	cerr.HTTPStatus = httpStatus
	if kind == model.ErrUnknown {
		cerr.Retryable = httpStatus >= 500
	}

	if kind == model.ErrRateLimitExceeded && header != nil {
		if reset := header.Get("x-rate-limit-reset"); reset != "" {
			if epoch, err := strconv.ParseInt(reset, 10, 64); err == nil {
				if wait := time.Until(time.Unix(epoch, 0)); wait > 0 {
					cerr.WithRetryAfter(wait)
				}
			}
		}
	}
	return cerr
}
