package persistence

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"social-publisher/domain/model"
)

func TestPublicationRepository_GetByPostPlatform_NoRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPublicationRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, post_id, platform, external_id, url, status, error_code, error_message, retry_count, published_at, created_at, updated_at FROM publications WHERE post_id=$1 AND platform=$2`)).
		WithArgs("post-1", "twitter").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	pub, err := repo.GetByPostPlatform(context.Background(), "post-1", model.PlatformTwitter)
	require.NoError(t, err)
	require.Nil(t, pub)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPublicationRepository_MarkPublishedWithPost_FlipsPostWhenLastPlatform(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPublicationRepository(db)
	now := time.Now().UTC()
	externalID := "fb_123"
	pub := &model.Publication{
		ID:          "pub-1",
		PostID:      "post-1",
		Platform:    model.PlatformFacebook,
		ExternalID:  &externalID,
		Status:      model.PublicationStatusPublished,
		PublishedAt: &now,
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO publications`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM posts`)).
		WithArgs("post-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE posts SET status=$1`)).
		WithArgs(model.PostStatusPublished, sqlmock.AnyArg(), "post-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.MarkPublishedWithPost(context.Background(), pub))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPublicationRepository_MarkPublishedWithPost_LeavesPostWhenPlatformsRemain(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPublicationRepository(db)
	pub := &model.Publication{
		ID:       "pub-1",
		PostID:   "post-1",
		Platform: model.PlatformFacebook,
		Status:   model.PublicationStatusPublished,
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO publications`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM posts`)).
		WithArgs("post-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectCommit()

	require.NoError(t, repo.MarkPublishedWithPost(context.Background(), pub))
	require.NoError(t, mock.ExpectationsWereMet())
}
