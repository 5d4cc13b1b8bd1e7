package model

import "time"

// ConnectionStatus marks whether a platform connection can still be used.
type ConnectionStatus string

const (
	ConnectionStatusActive       ConnectionStatus = "active"
	ConnectionStatusDisconnected ConnectionStatus = "disconnected"
)

// Connection stores platform OAuth credentials per team. The API layer
// creates connections; after creation the token manager is the only writer
// of token fields.
type Connection struct {
	ID           string           `json:"id"`
	TeamID       string           `json:"team_id"`
	Platform     Platform         `json:"platform"`
	AccessToken  string           `json:"access_token"`
	RefreshToken *string          `json:"refresh_token,omitempty"`
	ExpiresAt    *time.Time       `json:"expires_at,omitempty"`
	Status       ConnectionStatus `json:"status"`
	AccountID    *string          `json:"account_id,omitempty"`   // platform-side account/page/channel id
	AccountType  *string          `json:"account_type,omitempty"` // e.g. instagram BUSINESS / CREATOR
	Scopes       string           `json:"scopes"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// TokenExpiresWithin reports whether the access token expires inside the
// given safety window. A connection without expiry never reports true.
func (c *Connection) TokenExpiresWithin(window time.Duration) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return time.Until(*c.ExpiresAt) < window
}
