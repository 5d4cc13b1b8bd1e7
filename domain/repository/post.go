package repository

import (
	"context"
	"time"

	"social-publisher/domain/model"
)

// IPost defines post persistence operations the worker needs. The worker
// never creates or deletes posts.
type IPost interface {
	GetByID(ctx context.Context, id string) (*model.Post, error)
	UpdateStatus(ctx context.Context, id string, status model.PostStatus, publishedAt *time.Time) error
}
