package youtube

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	youtubeapi "google.golang.org/api/youtube/v3"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/infrastructure/clients/internal/textutil"
	"social-publisher/infrastructure/configuration"
	"social-publisher/infrastructure/logger"
)

const (
	descriptionLimit = 5000
	titleLimit       = 100
)

// Publisher uploads videos through the Data API v3. Each publish builds
// a service from the connection's OAuth2 token so uploads run as the
// connected channel.
type Publisher struct {
	oauthConfig *oauth2.Config
	httpClient  *http.Client
	newService  func(ctx context.Context, conn *model.Connection) (*youtubeapi.Service, error)
}

func NewPublisher(creds configuration.OAuthClient) *Publisher {
	oauthConfig := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Scopes: []string{
			youtubeapi.YoutubeScope,
			youtubeapi.YoutubeUploadScope,
			youtubeapi.YoutubeForceSslScope,
		},
		Endpoint: google.Endpoint,
	}
	p := &Publisher{
		oauthConfig: oauthConfig,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
	p.newService = p.serviceForConnection
	return p
}

// WithServiceFactory swaps the service constructor, used by tests to
// point uploads at a local server.
func (p *Publisher) WithServiceFactory(f func(ctx context.Context, conn *model.Connection) (*youtubeapi.Service, error)) *Publisher {
	p.newService = f
	return p
}

func (p *Publisher) Platform() model.Platform { return model.PlatformYouTube }

func (p *Publisher) Validate(content string, mediaURLs []string) *dto.ValidationResult {
	res := &dto.ValidationResult{
		Valid:          true,
		CharacterCount: textutil.RuneLen(content),
		CharacterLimit: descriptionLimit,
	}
	if res.CharacterCount > descriptionLimit {
		res.Valid = false
		res.Errors = append(res.Errors, fmt.Sprintf("description exceeds %d characters", descriptionLimit))
	}
	if len(mediaURLs) == 0 {
		res.Valid = false
		res.Errors = append(res.Errors, "youtube requires a video file")
	}
	if len(mediaURLs) > 1 {
		res.Valid = false
		res.Errors = append(res.Errors, "one video per upload")
	}
	if title := titleFrom(content); textutil.RuneLen(title) > titleLimit {
		res.Warnings = append(res.Warnings, fmt.Sprintf("first line is truncated to %d characters for the title", titleLimit))
	}
	return res
}

func (p *Publisher) FormatContent(content string) string {
	return textutil.Truncate(content, descriptionLimit)
}

func (p *Publisher) MediaRequirements(kind dto.MediaKind) *dto.MediaRequirements {
	if kind == dto.MediaKindImage {
		// Images only appear as thumbnails, never as primary media.
		return &dto.MediaRequirements{
			Kind:         dto.MediaKindImage,
			MaxSizeBytes: 2 << 20,
			AspectRatios: []string{"16:9"},
			Formats:      []string{"jpg", "png"},
			MaxCount:     1,
		}
	}
	return &dto.MediaRequirements{
		Kind:         dto.MediaKindVideo,
		MaxSizeBytes: 256 << 30, // 256 GB ceiling for verified accounts
		MaxDuration:  12 * time.Hour,
		AspectRatios: []string{"16:9", "9:16"},
		Formats:      []string{"mp4", "mov", "avi", "webm"},
		MaxCount:     1,
	}
}

// Publish fetches the video bytes from the post's media URL and runs a
// resumable upload via videos.insert. The post's first line becomes the
// title, the full content the description.
func (p *Publisher) Publish(ctx context.Context, post *model.Post, conn *model.Connection) (*dto.PublishResult, error) {
	if len(post.MediaURLs) == 0 {
		return nil, model.NewCanonicalError(model.ErrMissingMedia, model.PlatformYouTube, "youtube requires a video file")
	}

	service, err := p.newService(ctx, conn)
	if err != nil {
		return nil, Classify(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, post.MediaURLs[0], nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, model.NewCanonicalError(model.ErrNetworkError, model.PlatformYouTube, err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, model.NewCanonicalError(model.ErrInvalidMedia, model.PlatformYouTube,
			fmt.Sprintf("media url %s returned %d", post.MediaURLs[0], resp.StatusCode))
	}

	video := &youtubeapi.Video{
		Snippet: &youtubeapi.VideoSnippet{
			Title:       textutil.Truncate(titleFrom(post.Content), titleLimit),
			Description: post.Content,
			Tags:        textutil.ExtractHashtags(post.Content),
		},
		Status: &youtubeapi.VideoStatus{PrivacyStatus: "public"},
	}

	call := service.Videos.Insert([]string{"snippet", "status"}, video).
		Media(resp.Body).
		Context(ctx)
	uploaded, err := call.Do()
	if err != nil {
		return nil, Classify(err)
	}

	now := time.Now().UTC()
	logger.GetLogger().
		WithField("post_id", post.ID).
		WithField("video_id", uploaded.Id).
		Info("YouTube video published")
	return &dto.PublishResult{
		Success:        true,
		PlatformPostID: uploaded.Id,
		URL:            fmt.Sprintf("https://www.youtube.com/watch?v=%s", uploaded.Id),
		PublishedAt:    &now,
	}, nil
}

func (p *Publisher) serviceForConnection(ctx context.Context, conn *model.Connection) (*youtubeapi.Service, error) {
	token := &oauth2.Token{
		AccessToken: conn.AccessToken,
		TokenType:   "Bearer",
	}
	if conn.RefreshToken != nil {
		token.RefreshToken = *conn.RefreshToken
	}
	if conn.ExpiresAt != nil {
		token.Expiry = *conn.ExpiresAt
	}
	return youtubeapi.NewService(ctx, option.WithHTTPClient(p.oauthConfig.Client(ctx, token)))
}

// titleFrom takes the first non-empty line of the content.
func titleFrom(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return "Untitled video"
}
