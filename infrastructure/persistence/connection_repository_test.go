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

func TestConnectionRepository_FindActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewConnectionRepository(db)
	now := time.Now().UTC()
	expiry := now.Add(time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, team_id, platform, access_token, refresh_token, expires_at, status, account_id, account_type, scopes, created_at, updated_at FROM connections WHERE team_id=$1 AND platform=$2 AND status='active'`)).
		WithArgs("team-1", "facebook").
		WillReturnRows(sqlmock.NewRows([]string{"id", "team_id", "platform", "access_token", "refresh_token", "expires_at", "status", "account_id", "account_type", "scopes", "created_at", "updated_at"}).
			AddRow("conn-1", "team-1", "facebook", "tok", "refresh", expiry, "active", "page-9", nil, "pages_manage_posts", now, now))

	conn, err := repo.FindActive(context.Background(), "team-1", model.PlatformFacebook)
	require.NoError(t, err)
	require.Equal(t, "conn-1", conn.ID)
	require.Equal(t, model.ConnectionStatusActive, conn.Status)
	require.NotNil(t, conn.RefreshToken)
	require.Equal(t, "refresh", *conn.RefreshToken)
	require.NotNil(t, conn.ExpiresAt)
	require.Nil(t, conn.AccountType)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectionRepository_MarkDisconnected(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewConnectionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE connections SET status=$1, updated_at=$2 WHERE id=$3`)).
		WithArgs(model.ConnectionStatusDisconnected, sqlmock.AnyArg(), "conn-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkDisconnected(context.Background(), "conn-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectionRepository_UpdateTokens(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewConnectionRepository(db)
	expiry := time.Now().Add(55 * time.Minute)
	refresh := "new-refresh"

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE connections SET access_token=$1, refresh_token=COALESCE($2, refresh_token), expires_at=$3, updated_at=$4 WHERE id=$5`)).
		WithArgs("new-access", &refresh, &expiry, sqlmock.AnyArg(), "conn-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateTokens(context.Background(), "conn-1", "new-access", &refresh, &expiry))
	require.NoError(t, mock.ExpectationsWereMet())
}
