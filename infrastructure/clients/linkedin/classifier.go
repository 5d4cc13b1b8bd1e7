package linkedin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"social-publisher/domain/model"
)

// apiError is the REST error envelope. serviceErrorCode carries the
// stable identifier; status mirrors the HTTP code.
type apiError struct {
	Message          string `json:"message"`
	ServiceErrorCode int    `json:"serviceErrorCode"`
	Status           int    `json:"status"`
	Code             string `json:"code"`
}

var kindByServiceCode = map[int]model.ErrorKind{
	65600: model.ErrInvalidToken, // invalid access token
	65601: model.ErrTokenExpired, // expired access token
	65603: model.ErrInvalidToken, // revoked token
	100:   model.ErrInsufficientPermissions,
}

var kindByCodeString = map[string]model.ErrorKind{
	"EXPIRED_ACCESS_TOKEN": model.ErrTokenExpired,
	"REVOKED_ACCESS_TOKEN": model.ErrInvalidToken,
	"ACCESS_DENIED":        model.ErrInsufficientPermissions,
	"THROTTLE_LIMIT":       model.ErrRateLimitExceeded,
	"DUPLICATE_POST":       model.ErrDuplicateContent,
	"CONTENT_TOO_LONG":     model.ErrContentTooLong,
	"UNPROCESSABLE_ENTITY": model.ErrValidationError,
	"RESTRICTED_ACCOUNT":   model.ErrAccountSuspended,
	"INVALID_MEDIA":        model.ErrInvalidMedia,
	"SERVICE_UNAVAILABLE":  model.ErrPlatformUnavailable,
}

// Classify maps a LinkedIn REST failure onto the canonical taxonomy.
// Duplicate shares come back as 422 with a "duplicate" message rather
// than a dedicated code, so the message text is checked as a fallback.
func Classify(httpStatus int, body []byte) *model.CanonicalError {
	var ae apiError
	_ = json.Unmarshal(body, &ae)

	kind := model.ErrUnknown
	if k, ok := kindByServiceCode[ae.ServiceErrorCode]; ok {
		kind = k
	}
	if kind == model.ErrUnknown && ae.Code != "" {
		if k, ok := kindByCodeString[ae.Code]; ok {
			kind = k
		}
	}
	if kind == model.ErrUnknown {
		lower := strings.ToLower(ae.Message)
		switch {
		case strings.Contains(lower, "duplicate"):
			kind = model.ErrDuplicateContent
		case strings.Contains(lower, "exceeds the maximum length"):
			kind = model.ErrContentTooLong
		}
	}
	if kind == model.ErrUnknown {
		switch {
		case httpStatus == http.StatusUnauthorized:
			kind = model.ErrInvalidToken
		case httpStatus == http.StatusForbidden:
			kind = model.ErrInsufficientPermissions
		case httpStatus == http.StatusTooManyRequests:
			kind = model.ErrRateLimitExceeded
		case httpStatus == http.StatusUnprocessableEntity:
			kind = model.ErrValidationError
		case httpStatus >= 500:
			kind = model.ErrPlatformUnavailable
		}
	}

	msg := ae.Message
	if msg == "" {
		msg = fmt.Sprintf("linkedin api returned %d", httpStatus)
	}
	cerr := model.NewCanonicalError(kind, model.PlatformLinkedIn, msg)
	cerr.HTTPStatus = httpStatus
	if kind == model.ErrUnknown {
		cerr.Retryable = httpStatus >= 500
	}
	return cerr
}
