package facebook

import (
	"encoding/json"
	"fmt"
	"time"

	"social-publisher/domain/model"
)

// graphError is the error envelope the Graph API wraps every failure in.
type graphError struct {
	Error struct {
		Message          string `json:"message"`
		Type             string `json:"type"`
		Code             int    `json:"code"`
		ErrorSubcode     int    `json:"error_subcode"`
		FBTraceID        string `json:"fbtrace_id"`
		ErrorUserMessage string `json:"error_user_msg"`
	} `json:"error"`
}

// kindByCode maps Graph API error codes to canonical kinds.
var kindByCode = map[int]model.ErrorKind{
	190: model.ErrInvalidToken,          // invalid/expired access token (subcode refines)
	102: model.ErrInvalidToken,          // session invalidated
	10:  model.ErrInsufficientPermissions,
	200: model.ErrInsufficientPermissions, // 200-299 are all permission errors
	4:   model.ErrRateLimitExceeded,       // application throttled
	17:  model.ErrRateLimitExceeded,       // user throttled
	32:  model.ErrRateLimitExceeded,       // page throttled
	613: model.ErrRateLimitExceeded,       // custom rate limit
	341: model.ErrDailyLimitReached,       // application posting limit
	368: model.ErrAccountSuspended,        // temporarily blocked for policy violations
	506: model.ErrDuplicateContent,
	100: model.ErrValidationError, // invalid parameter
	1:   model.ErrPlatformUnavailable,
	2:   model.ErrPlatformUnavailable,
}

// Classify maps a raw Graph API failure to a canonical error. Unmapped
// codes fall back to Unknown, retryable only when the HTTP status says the
// fault is on Facebook's side.
func Classify(httpStatus int, body []byte) *model.CanonicalError {
	var ge graphError
	if err := json.Unmarshal(body, &ge); err != nil || ge.Error.Code == 0 {
		kind := model.ErrUnknown
		if httpStatus == 429 {
			kind = model.ErrRateLimitExceeded
		} else if httpStatus >= 500 {
			kind = model.ErrPlatformUnavailable
		}
		cerr := model.NewCanonicalError(kind, model.PlatformFacebook,
			fmt.Sprintf("graph api returned %d", httpStatus))
		cerr.HTTPStatus = httpStatus
		cerr.Retryable = cerr.Retryable || httpStatus >= 500
		return cerr
	}

	kind, ok := kindByCode[ge.Error.Code]
	if !ok {
		if ge.Error.Code >= 200 && ge.Error.Code <= 299 {
			kind = model.ErrInsufficientPermissions
		} else {
			kind = model.ErrUnknown
		}
	}
	if ge.Error.Code == 190 && ge.Error.ErrorSubcode == 463 {
		kind = model.ErrTokenExpired
	}

	msg := ge.Error.Message
	if ge.Error.ErrorUserMessage != "" {
		msg = ge.Error.ErrorUserMessage
	}
	cerr := model.NewCanonicalError(kind, model.PlatformFacebook, msg)
	cerr.HTTPStatus = httpStatus
	if kind == model.ErrUnknown {
		cerr.Retryable = httpStatus >= 500
	}
	// Graph rate-limit responses carry no reset header worth trusting, so
	// throttles use the strategy default. The application posting block
	// (341) is documented as long-lived; carry an hour hint.
	if ge.Error.Code == 341 {
		cerr.WithRetryAfter(time.Hour)
	}
	return cerr
}
