package repository

import (
	"context"
	"time"

	"social-publisher/domain/model"
)

// IConnection defines platform connection persistence. UpdateTokens is the
// token manager's write path; nothing else mutates token fields.
type IConnection interface {
	FindActive(ctx context.Context, teamID string, platform model.Platform) (*model.Connection, error)
	UpdateTokens(ctx context.Context, id string, accessToken string, refreshToken *string, expiresAt *time.Time) error
	MarkDisconnected(ctx context.Context, id string) error
	Upsert(ctx context.Context, conn *model.Connection) error
}
