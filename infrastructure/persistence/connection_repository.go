package persistence

import (
	"context"
	"database/sql"
	"time"

	"social-publisher/domain/model"
)

// ConnectionRepository implements platform connection persistence using
// PostgreSQL (native sql.DB).
type ConnectionRepository struct {
	db *sql.DB
}

func NewConnectionRepository(db *sql.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

const connectionColumns = `id, team_id, platform, access_token, refresh_token, expires_at, status, account_id, account_type, scopes, created_at, updated_at`

func (r *ConnectionRepository) FindActive(ctx context.Context, teamID string, platform model.Platform) (*model.Connection, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+connectionColumns+` FROM connections WHERE team_id=$1 AND platform=$2 AND status='active'`,
		teamID, platform)
	return scanConnection(row)
}

func (r *ConnectionRepository) UpdateTokens(ctx context.Context, id string, accessToken string, refreshToken *string, expiresAt *time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE connections SET access_token=$1, refresh_token=COALESCE($2, refresh_token), expires_at=$3, updated_at=$4 WHERE id=$5`,
		accessToken, refreshToken, expiresAt, time.Now().UTC(), id)
	return err
}

func (r *ConnectionRepository) MarkDisconnected(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE connections SET status=$1, updated_at=$2 WHERE id=$3`,
		model.ConnectionStatusDisconnected, time.Now().UTC(), id)
	return err
}

func (r *ConnectionRepository) Upsert(ctx context.Context, conn *model.Connection) error {
	now := time.Now().UTC()
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = now
	}
	conn.UpdatedAt = now
	q := `INSERT INTO connections (id, team_id, platform, access_token, refresh_token, expires_at, status, account_id, account_type, scopes, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		  ON CONFLICT (team_id, platform) DO UPDATE SET
			access_token=EXCLUDED.access_token,
			refresh_token=EXCLUDED.refresh_token,
			expires_at=EXCLUDED.expires_at,
			status=EXCLUDED.status,
			account_id=EXCLUDED.account_id,
			account_type=EXCLUDED.account_type,
			scopes=EXCLUDED.scopes,
			updated_at=EXCLUDED.updated_at`
	_, err := r.db.ExecContext(ctx, q, conn.ID, conn.TeamID, conn.Platform, conn.AccessToken, conn.RefreshToken,
		conn.ExpiresAt, conn.Status, conn.AccountID, conn.AccountType, conn.Scopes, conn.CreatedAt, conn.UpdatedAt)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnection(row rowScanner) (*model.Connection, error) {
	conn := &model.Connection{}
	var refreshToken, accountID, accountType sql.NullString
	var expiresAt sql.NullTime
	if err := row.Scan(&conn.ID, &conn.TeamID, &conn.Platform, &conn.AccessToken, &refreshToken, &expiresAt,
		&conn.Status, &accountID, &accountType, &conn.Scopes, &conn.CreatedAt, &conn.UpdatedAt); err != nil {
		return nil, err
	}
	if refreshToken.Valid {
		v := refreshToken.String
		conn.RefreshToken = &v
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		conn.ExpiresAt = &t
	}
	if accountID.Valid {
		v := accountID.String
		conn.AccountID = &v
	}
	if accountType.Valid {
		v := accountType.String
		conn.AccountType = &v
	}
	return conn, nil
}
