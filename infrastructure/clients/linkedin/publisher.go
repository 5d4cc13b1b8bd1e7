package linkedin

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

const characterLimit = 3000

// Publisher creates member or organization shares through the ugcPosts
// endpoint. Media must first be registered against the author URN and
// uploaded; link previews need no registration.
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

func (p *Publisher) Platform() model.Platform { return model.PlatformLinkedIn }

func (p *Publisher) Validate(content string, mediaURLs []string) *dto.ValidationResult {
	res := &dto.ValidationResult{
		Valid:          true,
		CharacterCount: textutil.RuneLen(content),
		CharacterLimit: characterLimit,
	}
	if res.CharacterCount > characterLimit {
		res.Valid = false
		res.Errors = append(res.Errors, fmt.Sprintf("share text exceeds %d characters", characterLimit))
	}
	if res.CharacterCount == 0 && len(mediaURLs) == 0 {
		res.Valid = false
		res.Errors = append(res.Errors, "share needs text or media")
	}
	if len(mediaURLs) > 9 {
		res.Valid = false
		res.Errors = append(res.Errors, "at most 9 images per share")
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
			MaxSizeBytes: 5 << 30, // 5 GB
			MaxDuration:  15 * time.Minute,
			AspectRatios: []string{"16:9", "1:1", "9:16"},
			Formats:      []string{"mp4"},
			MaxCount:     1,
		}
	}
	return &dto.MediaRequirements{
		Kind:         dto.MediaKindImage,
		MaxSizeBytes: 10 << 20, // 10 MB
		AspectRatios: []string{"1.91:1", "1:1", "4:5"},
		Formats:      []string{"jpg", "png", "gif"},
		MaxCount:     9,
	}
}

type ugcShareContent struct {
	ShareCommentary struct {
		Text string `json:"text"`
	} `json:"shareCommentary"`
	ShareMediaCategory string     `json:"shareMediaCategory"`
	Media              []ugcMedia `json:"media,omitempty"`
}

type ugcMedia struct {
	Status      string `json:"status"`
	OriginalURL string `json:"originalUrl,omitempty"`
	Media       string `json:"media,omitempty"`
}

// Publish creates a ugcPost as the connected member or organization.
// The author URN comes from the stored account id; a missing id means
// the connection was stored before the profile fetch and cannot post.
func (p *Publisher) Publish(ctx context.Context, post *model.Post, conn *model.Connection) (*dto.PublishResult, error) {
	if conn.AccountID == nil || *conn.AccountID == "" {
		return nil, model.NewCanonicalError(model.ErrInvalidToken, model.PlatformLinkedIn, "connection has no linkedin member id")
	}
	author := fmt.Sprintf("urn:li:person:%s", *conn.AccountID)
	if conn.AccountType != nil && *conn.AccountType == "ORGANIZATION" {
		author = fmt.Sprintf("urn:li:organization:%s", *conn.AccountID)
	}

	content := ugcShareContent{ShareMediaCategory: "NONE"}
	content.ShareCommentary.Text = post.Content

	if len(post.MediaURLs) > 0 {
		assets, err := p.registerAndUpload(ctx, author, conn.AccessToken, post.MediaURLs)
		if err != nil {
			return nil, err
		}
		content.ShareMediaCategory = "IMAGE"
		for _, asset := range assets {
			content.Media = append(content.Media, ugcMedia{Status: "READY", Media: asset})
		}
	} else if links := textutil.ExtractLinks(post.Content); len(links) > 0 {
		content.ShareMediaCategory = "ARTICLE"
		content.Media = append(content.Media, ugcMedia{Status: "READY", OriginalURL: links[0]})
	}

	payload := map[string]any{
		"author":         author,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": content,
		},
		"visibility": map[string]any{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}
	body, err := p.post(ctx, p.baseURL+"/v2/ugcPosts", conn.AccessToken, payload)
	if err != nil {
		return nil, err
	}

	var shareResp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &shareResp); err != nil || shareResp.ID == "" {
		return nil, model.NewCanonicalError(model.ErrUnknown, model.PlatformLinkedIn, "unparseable ugcPosts response")
	}
	now := time.Now().UTC()
	logger.GetLogger().
		WithField("post_id", post.ID).
		WithField("share_urn", shareResp.ID).
		Info("LinkedIn share published")
	return &dto.PublishResult{
		Success:        true,
		PlatformPostID: shareResp.ID,
		URL:            fmt.Sprintf("https://www.linkedin.com/feed/update/%s/", shareResp.ID),
		PublishedAt:    &now,
	}, nil
}

// registerAndUpload registers each media URL as an upload asset and
// streams the bytes to the returned upload URL.
func (p *Publisher) registerAndUpload(ctx context.Context, author, token string, mediaURLs []string) ([]string, error) {
	assets := make([]string, 0, len(mediaURLs))
	for _, mediaURL := range mediaURLs {
		payload := map[string]any{
			"registerUploadRequest": map[string]any{
				"recipes": []string{"urn:li:digitalmediaRecipe:feedshare-image"},
				"owner":   author,
				"serviceRelationships": []map[string]any{
					{"relationshipType": "OWNER", "identifier": "urn:li:userGeneratedContent"},
				},
			},
		}
		body, err := p.post(ctx, p.baseURL+"/v2/assets?action=registerUpload", token, payload)
		if err != nil {
			return nil, err
		}
		var reg struct {
			Value struct {
				Asset           string `json:"asset"`
				UploadMechanism map[string]struct {
					UploadURL string `json:"uploadUrl"`
				} `json:"uploadMechanism"`
			} `json:"value"`
		}
		if err := json.Unmarshal(body, &reg); err != nil || reg.Value.Asset == "" {
			return nil, model.NewCanonicalError(model.ErrUnknown, model.PlatformLinkedIn, "unparseable registerUpload response")
		}

		uploadURL := ""
		for _, mech := range reg.Value.UploadMechanism {
			uploadURL = mech.UploadURL
		}
		if uploadURL == "" {
			return nil, model.NewCanonicalError(model.ErrUnknown, model.PlatformLinkedIn, "registerUpload returned no upload url")
		}
		if err := p.uploadFrom(ctx, mediaURL, uploadURL, token); err != nil {
			return nil, err
		}
		assets = append(assets, reg.Value.Asset)
	}
	return assets, nil
}

// uploadFrom fetches the media bytes and PUTs them to the signed upload
// URL. Unreachable media is the caller's fault, not the platform's.
func (p *Publisher) uploadFrom(ctx context.Context, mediaURL, uploadURL, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return model.NewCanonicalError(model.ErrNetworkError, model.PlatformLinkedIn, err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return model.NewCanonicalError(model.ErrInvalidMedia, model.PlatformLinkedIn,
			fmt.Sprintf("media url %s returned %d", mediaURL, resp.StatusCode))
	}

	upload, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, resp.Body)
	if err != nil {
		return err
	}
	upload.Header.Set("Authorization", "Bearer "+token)
	upResp, err := p.httpClient.Do(upload)
	if err != nil {
		return model.NewCanonicalError(model.ErrNetworkError, model.PlatformLinkedIn, err.Error())
	}
	io.Copy(io.Discard, upResp.Body)
	upResp.Body.Close()
	if upResp.StatusCode >= 300 {
		return model.NewCanonicalError(model.ErrInvalidMedia, model.PlatformLinkedIn,
			fmt.Sprintf("asset upload returned %d", upResp.StatusCode))
	}
	return nil
}

func (p *Publisher) post(ctx context.Context, endpoint, token string, payload any) ([]byte, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, model.NewCanonicalError(model.ErrNetworkError, model.PlatformLinkedIn, err.Error())
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, Classify(resp.StatusCode, body)
	}
	return body, nil
}
