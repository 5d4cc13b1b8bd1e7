package repository

import (
	"context"

	"social-publisher/domain/model"
)

// IPublication maintains the authoritative row per (post, platform).
type IPublication interface {
	GetByPostPlatform(ctx context.Context, postID string, platform model.Platform) (*model.Publication, error)
	Upsert(ctx context.Context, pub *model.Publication) error
	// MarkPublishedWithPost updates the publication row and flips the post
	// to published inside one transaction; a partial write must never leave
	// the post published without its publication row.
	MarkPublishedWithPost(ctx context.Context, pub *model.Publication) error
}

// IPublicationAudit is the append-only attempt history.
type IPublicationAudit interface {
	Append(ctx context.Context, audit *model.PublicationAudit) error
}
