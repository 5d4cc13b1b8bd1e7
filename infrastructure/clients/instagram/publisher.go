package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/infrastructure/clients/internal/textutil"
	"social-publisher/infrastructure/logger"
)

const (
	captionLimit     = 2200
	hashtagCeiling   = 30
	carouselMinItems = 2
	carouselMaxItems = 10
	graphHost        = "https://graph.facebook.com"

	statusPollInterval = 2 * time.Second
	statusPollAttempts = 15
)

// Publisher drives the Instagram content publishing API: create a media
// container (or carousel of containers), poll until processing finishes,
// then publish. Requires a BUSINESS or CREATOR account.
type Publisher struct {
	baseURL      string
	version      string
	httpClient   *http.Client
	pollInterval time.Duration
}

func NewPublisher(version string) *Publisher {
	return &Publisher{
		baseURL:      graphHost,
		version:      version,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		pollInterval: statusPollInterval,
	}
}

// WithBaseURL points the publisher at a test server and drops the poll
// interval so tests run fast.
func (p *Publisher) WithBaseURL(u string) *Publisher {
	p.baseURL = u
	p.pollInterval = time.Millisecond
	return p
}

func (p *Publisher) Platform() model.Platform { return model.PlatformInstagram }

func (p *Publisher) Validate(content string, mediaURLs []string) *dto.ValidationResult {
	res := &dto.ValidationResult{
		Valid:          true,
		CharacterCount: textutil.RuneLen(content),
		CharacterLimit: captionLimit,
	}
	if res.CharacterCount > captionLimit {
		res.Valid = false
		res.Errors = append(res.Errors, fmt.Sprintf("caption exceeds %d characters", captionLimit))
	}
	if len(mediaURLs) == 0 {
		res.Valid = false
		res.Errors = append(res.Errors, "instagram requires at least one media item")
	}
	if len(mediaURLs) > carouselMaxItems {
		res.Valid = false
		res.Errors = append(res.Errors, fmt.Sprintf("carousel supports at most %d items", carouselMaxItems))
	}
	if tags := textutil.ExtractHashtags(content); len(tags) > hashtagCeiling {
		res.Valid = false
		res.Errors = append(res.Errors, fmt.Sprintf("more than %d hashtags is rejected by instagram", hashtagCeiling))
	}
	return res
}

func (p *Publisher) FormatContent(content string) string {
	return textutil.Truncate(content, captionLimit)
}

func (p *Publisher) MediaRequirements(kind dto.MediaKind) *dto.MediaRequirements {
	if kind == dto.MediaKindVideo {
		return &dto.MediaRequirements{
			Kind:         dto.MediaKindVideo,
			MaxSizeBytes: 1 << 30, // 1 GB reels
			MaxDuration:  15 * time.Minute,
			AspectRatios: []string{"9:16", "1:1", "4:5"},
			Formats:      []string{"mp4", "mov"},
			MaxCount:     carouselMaxItems,
		}
	}
	return &dto.MediaRequirements{
		Kind:         dto.MediaKindImage,
		MaxSizeBytes: 8 << 20, // 8 MB
		MinWidth:     320,
		MaxWidth:     1440,
		AspectRatios: []string{"1:1", "4:5", "1.91:1"},
		Formats:      []string{"jpg", "png"},
		MaxCount:     carouselMaxItems,
	}
}

// Publish runs the container flow. Single media: container -> poll ->
// publish. Carousel: child containers -> carousel container -> publish.
func (p *Publisher) Publish(ctx context.Context, post *model.Post, conn *model.Connection) (*dto.PublishResult, error) {
	if conn.AccountID == nil || *conn.AccountID == "" {
		return nil, model.NewCanonicalError(model.ErrInvalidToken, model.PlatformInstagram, "connection has no instagram account id")
	}
	if conn.AccountType == nil || (*conn.AccountType != "BUSINESS" && *conn.AccountType != "CREATOR") {
		return nil, model.NewCanonicalError(model.ErrValidationError, model.PlatformInstagram,
			"publishing requires a BUSINESS or CREATOR account")
	}
	if len(post.MediaURLs) == 0 {
		return nil, model.NewCanonicalError(model.ErrMissingMedia, model.PlatformInstagram, "instagram requires media")
	}
	igUserID := *conn.AccountID

	var containerID string
	var err error
	if len(post.MediaURLs) == 1 {
		containerID, err = p.createContainer(ctx, igUserID, conn.AccessToken, url.Values{
			"image_url": {post.MediaURLs[0]},
			"caption":   {post.Content},
		})
	} else {
		if len(post.MediaURLs) < carouselMinItems || len(post.MediaURLs) > carouselMaxItems {
			return nil, model.NewCanonicalError(model.ErrValidationError, model.PlatformInstagram,
				fmt.Sprintf("carousel needs %d-%d items", carouselMinItems, carouselMaxItems))
		}
		containerID, err = p.createCarousel(ctx, igUserID, conn.AccessToken, post)
	}
	if err != nil {
		return nil, err
	}

	if err := p.waitForContainer(ctx, containerID, conn.AccessToken); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("creation_id", containerID)
	form.Set("access_token", conn.AccessToken)
	body, err := p.post(ctx, fmt.Sprintf("%s/%s/%s/media_publish", p.baseURL, p.version, url.PathEscape(igUserID)), form)
	if err != nil {
		return nil, err
	}
	var pubResp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &pubResp); err != nil || pubResp.ID == "" {
		return nil, model.NewCanonicalError(model.ErrUnknown, model.PlatformInstagram, "unparseable media_publish response")
	}
	now := time.Now().UTC()
	logger.GetLogger().
		WithField("post_id", post.ID).
		WithField("media_id", pubResp.ID).
		Info("Instagram media published")
	return &dto.PublishResult{
		Success:        true,
		PlatformPostID: pubResp.ID,
		URL:            fmt.Sprintf("https://www.instagram.com/p/%s/", pubResp.ID),
		PublishedAt:    &now,
	}, nil
}

func (p *Publisher) createCarousel(ctx context.Context, igUserID, token string, post *model.Post) (string, error) {
	children := make([]string, 0, len(post.MediaURLs))
	for _, mediaURL := range post.MediaURLs {
		childID, err := p.createContainer(ctx, igUserID, token, url.Values{
			"image_url":        {mediaURL},
			"is_carousel_item": {"true"},
		})
		if err != nil {
			return "", err
		}
		children = append(children, childID)
	}
	return p.createContainer(ctx, igUserID, token, url.Values{
		"media_type": {"CAROUSEL"},
		"children":   {strings.Join(children, ",")},
		"caption":    {post.Content},
	})
}

func (p *Publisher) createContainer(ctx context.Context, igUserID, token string, form url.Values) (string, error) {
	form.Set("access_token", token)
	body, err := p.post(ctx, fmt.Sprintf("%s/%s/%s/media", p.baseURL, p.version, url.PathEscape(igUserID)), form)
	if err != nil {
		return "", err
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.ID == "" {
		return "", model.NewCanonicalError(model.ErrUnknown, model.PlatformInstagram, "unparseable container response")
	}
	return resp.ID, nil
}

// waitForContainer polls status_code until FINISHED. ERROR/EXPIRED maps to
// InvalidMedia; running out of polls is retryable.
func (p *Publisher) waitForContainer(ctx context.Context, containerID, token string) error {
	for attempt := 0; attempt < statusPollAttempts; attempt++ {
		body, err := p.get(ctx, fmt.Sprintf("%s/%s/%s?fields=status_code&access_token=%s",
			p.baseURL, p.version, url.PathEscape(containerID), url.QueryEscape(token)))
		if err != nil {
			return err
		}
		var status struct {
			StatusCode string `json:"status_code"`
		}
		if err := json.Unmarshal(body, &status); err != nil {
			return model.NewCanonicalError(model.ErrUnknown, model.PlatformInstagram, "unparseable status response")
		}
		switch status.StatusCode {
		case "FINISHED":
			return nil
		case "ERROR", "EXPIRED":
			return model.NewCanonicalError(model.ErrInvalidMedia, model.PlatformInstagram,
				"media container ended in "+status.StatusCode)
		}
		select {
		case <-ctx.Done():
			return model.NewCanonicalError(model.ErrNetworkError, model.PlatformInstagram, ctx.Err().Error())
		case <-time.After(p.pollInterval):
		}
	}
	return model.NewCanonicalError(model.ErrPlatformUnavailable, model.PlatformInstagram,
		"media container still processing after poll budget")
}

func (p *Publisher) post(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return p.do(req)
}

func (p *Publisher) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return p.do(req)
}

func (p *Publisher) do(req *http.Request) ([]byte, error) {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, model.NewCanonicalError(model.ErrNetworkError, model.PlatformInstagram, err.Error())
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, Classify(resp.StatusCode, body)
	}
	return body, nil
}
