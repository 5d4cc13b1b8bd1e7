package persistence

import (
	"context"
	"database/sql"
	"time"

	"social-publisher/domain/model"
)

// PublicationRepository maintains the authoritative (post, platform) rows
// using PostgreSQL (native sql.DB).
type PublicationRepository struct {
	db *sql.DB
}

func NewPublicationRepository(db *sql.DB) *PublicationRepository {
	return &PublicationRepository{db: db}
}

const publicationColumns = `id, post_id, platform, external_id, url, status, error_code, error_message, retry_count, published_at, created_at, updated_at`

func (r *PublicationRepository) GetByPostPlatform(ctx context.Context, postID string, platform model.Platform) (*model.Publication, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+publicationColumns+` FROM publications WHERE post_id=$1 AND platform=$2`,
		postID, platform)
	pub, err := scanPublication(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return pub, err
}

func (r *PublicationRepository) Upsert(ctx context.Context, pub *model.Publication) error {
	now := time.Now().UTC()
	if pub.CreatedAt.IsZero() {
		pub.CreatedAt = now
	}
	pub.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, upsertPublicationQuery, pub.ID, pub.PostID, pub.Platform, pub.ExternalID, pub.URL,
		pub.Status, pub.ErrorCode, pub.ErrorMessage, pub.RetryCount, pub.PublishedAt, pub.CreatedAt, pub.UpdatedAt)
	return err
}

// MarkPublishedWithPost writes the published publication row and flips the
// post's status inside one transaction. The post only moves to published
// when every targeted platform has a published publication row.
func (r *PublicationRepository) MarkPublishedWithPost(ctx context.Context, pub *model.Publication) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if pub.CreatedAt.IsZero() {
		pub.CreatedAt = now
	}
	pub.UpdatedAt = now
	if _, err = tx.ExecContext(ctx, upsertPublicationQuery, pub.ID, pub.PostID, pub.Platform, pub.ExternalID, pub.URL,
		pub.Status, pub.ErrorCode, pub.ErrorMessage, pub.RetryCount, pub.PublishedAt, pub.CreatedAt, pub.UpdatedAt); err != nil {
		return err
	}

	var remaining int
	row := tx.QueryRowContext(ctx,
		`SELECT count(*) FROM posts p, unnest(p.platforms) AS target
		 WHERE p.id=$1
		   AND NOT EXISTS (
			SELECT 1 FROM publications pub
			WHERE pub.post_id=p.id AND pub.platform=target AND pub.status='published')`,
		pub.PostID)
	if err = row.Scan(&remaining); err != nil {
		return err
	}
	if remaining == 0 {
		if _, err = tx.ExecContext(ctx,
			`UPDATE posts SET status=$1, published_at=COALESCE(published_at, $2), updated_at=$2 WHERE id=$3`,
			model.PostStatusPublished, now, pub.PostID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

const upsertPublicationQuery = `INSERT INTO publications (id, post_id, platform, external_id, url, status, error_code, error_message, retry_count, published_at, created_at, updated_at)
	  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	  ON CONFLICT (post_id, platform) DO UPDATE SET
		external_id=EXCLUDED.external_id,
		url=EXCLUDED.url,
		status=EXCLUDED.status,
		error_code=EXCLUDED.error_code,
		error_message=EXCLUDED.error_message,
		retry_count=EXCLUDED.retry_count,
		published_at=EXCLUDED.published_at,
		updated_at=EXCLUDED.updated_at`

func scanPublication(row rowScanner) (*model.Publication, error) {
	pub := &model.Publication{}
	var externalID, url, errorCode, errorMessage sql.NullString
	var publishedAt sql.NullTime
	if err := row.Scan(&pub.ID, &pub.PostID, &pub.Platform, &externalID, &url, &pub.Status, &errorCode, &errorMessage,
		&pub.RetryCount, &publishedAt, &pub.CreatedAt, &pub.UpdatedAt); err != nil {
		return nil, err
	}
	if externalID.Valid {
		v := externalID.String
		pub.ExternalID = &v
	}
	if url.Valid {
		v := url.String
		pub.URL = &v
	}
	if errorCode.Valid {
		v := errorCode.String
		pub.ErrorCode = &v
	}
	if errorMessage.Valid {
		v := errorMessage.String
		pub.ErrorMessage = &v
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		pub.PublishedAt = &t
	}
	return pub, nil
}
