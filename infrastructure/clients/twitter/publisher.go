package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/infrastructure/clients/internal/textutil"
	"social-publisher/infrastructure/logger"
)

const (
	characterLimit  = 280
	hashtagAdvisory = 5
)

// Publisher creates tweets through the v2 API with the connection's
// OAuth2 user token.
type Publisher struct {
	baseURL    string
	httpClient *http.Client
}

func NewPublisher(baseURL string) *Publisher {
	return &Publisher{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *Publisher) Platform() model.Platform { return model.PlatformTwitter }

func (p *Publisher) Validate(content string, mediaURLs []string) *dto.ValidationResult {
	res := &dto.ValidationResult{
		Valid:          true,
		CharacterCount: textutil.RuneLen(content),
		CharacterLimit: characterLimit,
	}
	if res.CharacterCount > characterLimit {
		res.Valid = false
		res.Errors = append(res.Errors, fmt.Sprintf("tweet exceeds %d characters", characterLimit))
	}
	if res.CharacterCount == 0 && len(mediaURLs) == 0 {
		res.Valid = false
		res.Errors = append(res.Errors, "tweet needs text or media")
	}
	if len(mediaURLs) > 4 {
		res.Valid = false
		res.Errors = append(res.Errors, "at most 4 media items per tweet")
	}
	if tags := textutil.ExtractHashtags(content); len(tags) > hashtagAdvisory {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d hashtags reads as spam on x", len(tags)))
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
			MaxSizeBytes: 512 << 20, // 512 MB
			MaxDuration:  140 * time.Second,
			AspectRatios: []string{"16:9", "1:1", "9:16"},
			Formats:      []string{"mp4", "mov"},
			MaxCount:     1,
		}
	}
	return &dto.MediaRequirements{
		Kind:         dto.MediaKindImage,
		MaxSizeBytes: 5 << 20, // 5 MB
		AspectRatios: []string{"16:9", "1:1"},
		Formats:      []string{"jpg", "png", "gif", "webp"},
		MaxCount:     4,
	}
}

// Publish creates a single text tweet via POST /2/tweets.
func (p *Publisher) Publish(ctx context.Context, post *model.Post, conn *model.Connection) (*dto.PublishResult, error) {
	payload := map[string]any{"text": post.Content}

	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/2/tweets", bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+conn.AccessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, model.NewCanonicalError(model.ErrNetworkError, model.PlatformTwitter, err.Error())
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, Classify(resp.StatusCode, body, resp.Header)
	}

	var tweetResp struct {
		Data struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &tweetResp); err != nil || tweetResp.Data.ID == "" {
		return nil, model.NewCanonicalError(model.ErrUnknown, model.PlatformTwitter, "unparseable tweet response")
	}
	now := time.Now().UTC()
	logger.GetLogger().
		WithField("post_id", post.ID).
		WithField("tweet_id", tweetResp.Data.ID).
		Info("Tweet published")
	return &dto.PublishResult{
		Success:        true,
		PlatformPostID: tweetResp.Data.ID,
		URL:            fmt.Sprintf("https://twitter.com/i/web/status/%s", tweetResp.Data.ID),
		PublishedAt:    &now,
	}, nil
}
