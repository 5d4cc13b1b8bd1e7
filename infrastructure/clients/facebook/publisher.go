package facebook

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
	characterLimit = 63206
	hashtagCeiling = 30
	graphHost      = "https://graph.facebook.com"
)

// Publisher posts to a Facebook Page feed through the Graph API. The
// connection's AccountID is the page id and AccessToken the page token.
type Publisher struct {
	baseURL    string
	version    string
	httpClient *http.Client
}

func NewPublisher(version string) *Publisher {
	return &Publisher{
		baseURL:    graphHost,
		version:    version,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL points the publisher at a test server.
func (p *Publisher) WithBaseURL(u string) *Publisher {
	p.baseURL = u
	return p
}

func (p *Publisher) Platform() model.Platform { return model.PlatformFacebook }

func (p *Publisher) Validate(content string, mediaURLs []string) *dto.ValidationResult {
	res := &dto.ValidationResult{
		Valid:          true,
		CharacterCount: textutil.RuneLen(content),
		CharacterLimit: characterLimit,
	}
	if res.CharacterCount > characterLimit {
		res.Valid = false
		res.Errors = append(res.Errors, fmt.Sprintf("content exceeds %d characters", characterLimit))
	}
	if strings.TrimSpace(content) == "" && len(mediaURLs) == 0 {
		res.Valid = false
		res.Errors = append(res.Errors, "post needs text or media")
	}
	if tags := textutil.ExtractHashtags(content); len(tags) > hashtagCeiling {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d hashtags, engagement drops past %d", len(tags), hashtagCeiling))
	}
	if links := textutil.ExtractLinks(content); len(links) > 1 {
		res.Warnings = append(res.Warnings, "multiple links, only the first gets a preview card")
	}
	return res
}

func (p *Publisher) FormatContent(content string) string {
	return textutil.Truncate(content, characterLimit)
}

func (p *Publisher) MediaRequirements(kind dto.MediaKind) *dto.MediaRequirements {
	if kind == dto.MediaKindVideo {
		return &dto.MediaRequirements{
			Kind:         dto.MediaKindVideo,
			MaxSizeBytes: 10 << 30, // 10 GB
			MaxDuration:  4 * time.Hour,
			AspectRatios: []string{"16:9", "9:16", "1:1"},
			Formats:      []string{"mp4", "mov"},
			MaxCount:     1,
		}
	}
	return &dto.MediaRequirements{
		Kind:         dto.MediaKindImage,
		MaxSizeBytes: 4 << 20, // 4 MB per photo
		AspectRatios: []string{"1.91:1", "1:1", "4:5"},
		Formats:      []string{"jpg", "png", "gif"},
		MaxCount:     10,
	}
}

// Publish creates a feed post, or a photo post when media is attached.
// The first extracted link rides along for the preview card, matching
// what the composer UI produces.
func (p *Publisher) Publish(ctx context.Context, post *model.Post, conn *model.Connection) (*dto.PublishResult, error) {
	if conn.AccountID == nil || *conn.AccountID == "" {
		return nil, model.NewCanonicalError(model.ErrInvalidToken, model.PlatformFacebook, "connection has no page id")
	}
	pageID := *conn.AccountID

	form := url.Values{}
	form.Set("access_token", conn.AccessToken)
	var endpoint string
	if len(post.MediaURLs) > 0 {
		endpoint = fmt.Sprintf("%s/%s/%s/photos", p.baseURL, p.version, url.PathEscape(pageID))
		form.Set("url", post.MediaURLs[0])
		form.Set("caption", post.Content)
	} else {
		endpoint = fmt.Sprintf("%s/%s/%s/feed", p.baseURL, p.version, url.PathEscape(pageID))
		form.Set("message", post.Content)
		if links := textutil.ExtractLinks(post.Content); len(links) > 0 {
			form.Set("link", links[0])
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, model.NewCanonicalError(model.ErrNetworkError, model.PlatformFacebook, err.Error())
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, Classify(resp.StatusCode, body)
	}

	var fbResp struct {
		ID     string `json:"id"`
		PostID string `json:"post_id"` // photos return post_id alongside the photo id
	}
	if err := json.Unmarshal(body, &fbResp); err != nil {
		return nil, model.NewCanonicalError(model.ErrUnknown, model.PlatformFacebook, "unparseable publish response")
	}
	externalID := fbResp.PostID
	if externalID == "" {
		externalID = fbResp.ID
	}
	now := time.Now().UTC()
	logger.GetLogger().
		WithField("post_id", post.ID).
		WithField("external_id", externalID).
		Info("Facebook post published")
	return &dto.PublishResult{
		Success:        true,
		PlatformPostID: externalID,
		URL:            fmt.Sprintf("https://www.facebook.com/%s", externalID),
		PublishedAt:    &now,
	}, nil
}
