package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsurePublishingSchema creates the worker's tables when missing and adds
// newer columns to existing installs. Safe to call at startup.
func EnsurePublishingSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tables := []string{
		`CREATE TABLE IF NOT EXISTS posts (
			id TEXT PRIMARY KEY,
			team_id TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			media_urls TEXT[] NOT NULL DEFAULT '{}',
			platforms TEXT[] NOT NULL DEFAULT '{}',
			status TEXT NOT NULL DEFAULT 'draft',
			scheduled_at TIMESTAMPTZ,
			published_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS connections (
			id TEXT PRIMARY KEY,
			team_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			access_token TEXT NOT NULL,
			refresh_token TEXT,
			expires_at TIMESTAMPTZ,
			status TEXT NOT NULL DEFAULT 'active',
			account_id TEXT,
			account_type TEXT,
			scopes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			UNIQUE (team_id, platform)
		)`,
		`CREATE TABLE IF NOT EXISTS publications (
			id TEXT PRIMARY KEY,
			post_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			external_id TEXT,
			url TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			error_code TEXT,
			error_message TEXT,
			retry_count INT NOT NULL DEFAULT 0,
			published_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			UNIQUE (post_id, platform)
		)`,
	}
	for _, ddl := range tables {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("creating table failed: %w", err)
		}
	}

	checks := []struct {
		table  string
		column string
		ddl    string
	}{
		{"connections", "account_type", "ALTER TABLE connections ADD COLUMN account_type TEXT"},
		{"publications", "url", "ALTER TABLE publications ADD COLUMN url TEXT"},
	}
	for _, c := range checks {
		exists, err := columnExists(ctx, db, c.table, c.column)
		if err != nil {
			return err
		}
		if !exists {
			if _, err := db.ExecContext(ctx, c.ddl); err != nil {
				return fmt.Errorf("adding column %s.%s failed: %w", c.table, c.column, err)
			}
		}
	}
	return nil
}

func columnExists(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	row := db.QueryRowContext(ctx, `SELECT 1 FROM information_schema.columns WHERE table_name=$1 AND column_name=$2`, table, column)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
