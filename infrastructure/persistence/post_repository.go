package persistence

import (
	"context"
	"database/sql"
	"time"

	"social-publisher/domain/model"

	"github.com/lib/pq"
)

// PostRepository implements post persistence using PostgreSQL (native sql.DB).
type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) *PostRepository { return &PostRepository{db: db} }

func (r *PostRepository) GetByID(ctx context.Context, id string) (*model.Post, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, team_id, content, media_urls, platforms, status, scheduled_at, published_at, created_at, updated_at FROM posts WHERE id=$1`, id)
	post := &model.Post{}
	var mediaURLs, platforms pq.StringArray
	var scheduledAt, publishedAt sql.NullTime
	if err := row.Scan(&post.ID, &post.TeamID, &post.Content, &mediaURLs, &platforms, &post.Status, &scheduledAt, &publishedAt, &post.CreatedAt, &post.UpdatedAt); err != nil {
		return nil, err
	}
	post.MediaURLs = mediaURLs
	post.Platforms = make([]model.Platform, 0, len(platforms))
	for _, p := range platforms {
		post.Platforms = append(post.Platforms, model.Platform(p))
	}
	if scheduledAt.Valid {
		post.ScheduledAt = &scheduledAt.Time
	}
	if publishedAt.Valid {
		post.PublishedAt = &publishedAt.Time
	}
	return post, nil
}

func (r *PostRepository) UpdateStatus(ctx context.Context, id string, status model.PostStatus, publishedAt *time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE posts SET status=$1, published_at=COALESCE($2, published_at), updated_at=$3 WHERE id=$4`,
		status, publishedAt, time.Now().UTC(), id)
	return err
}
