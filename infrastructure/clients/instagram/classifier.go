package instagram

import (
	"encoding/json"
	"fmt"

	"social-publisher/domain/model"
)

type graphError struct {
	Error struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
	} `json:"error"`
}

var kindByCode = map[int]model.ErrorKind{
	190: model.ErrInvalidToken,
	10:  model.ErrInsufficientPermissions,
	200: model.ErrInsufficientPermissions,
	4:   model.ErrRateLimitExceeded,
	17:  model.ErrRateLimitExceeded,
	32:  model.ErrRateLimitExceeded,
	613: model.ErrRateLimitExceeded,
	// 25 posts per rolling 24h on the content publishing API
	9006:  model.ErrDailyLimitReached,
	9004:  model.ErrInvalidMedia, // media could not be fetched
	9007:  model.ErrInvalidMedia, // container not ready / media processing failed
	352:   model.ErrInvalidMedia, // unsupported video format
	36003: model.ErrInvalidMedia, // aspect ratio out of bounds
	368:   model.ErrAccountSuspended,
	100:   model.ErrValidationError,
	1:     model.ErrPlatformUnavailable,
	2:     model.ErrPlatformUnavailable,
}

// Classify maps a Graph API content-publishing failure onto the canonical
// taxonomy. Same envelope as Facebook, different code vocabulary.
func Classify(httpStatus int, body []byte) *model.CanonicalError {
	var ge graphError
	if err := json.Unmarshal(body, &ge); err != nil || ge.Error.Code == 0 {
		kind := model.ErrUnknown
		if httpStatus == 429 {
			kind = model.ErrRateLimitExceeded
		} else if httpStatus >= 500 {
			kind = model.ErrPlatformUnavailable
		}
		cerr := model.NewCanonicalError(kind, model.PlatformInstagram,
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
	cerr := model.NewCanonicalError(kind, model.PlatformInstagram, ge.Error.Message)
	cerr.HTTPStatus = httpStatus
	if kind == model.ErrUnknown {
		cerr.Retryable = httpStatus >= 500
	}
	return cerr
}
