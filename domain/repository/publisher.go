package repository

import (
	"context"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
)

// IPublisher is the uniform per-platform publishing contract. Each platform
// client owns its content limits, formatting rules, media constraints and
// raw API calls; publish errors come back already classified as
// *model.CanonicalError.
type IPublisher interface {
	Platform() model.Platform
	Validate(content string, mediaURLs []string) *dto.ValidationResult
	FormatContent(content string) string
	MediaRequirements(kind dto.MediaKind) *dto.MediaRequirements
	Publish(ctx context.Context, post *model.Post, conn *model.Connection) (*dto.PublishResult, error)
}
