package oauth

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/configuration"
	"social-publisher/infrastructure/logger"
)

// refreshThreshold is the safety window before expiry at which we refresh.
const refreshThreshold = 5 * time.Minute

// TokenSet is the result of any token exchange.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	Scopes       string
}

// TokenManager refreshes platform connections before use and performs the
// per-platform authorization-code and refresh-token exchanges. It is the
// only writer of token fields after a connection is created.
type TokenManager struct {
	connRepo   repository.IConnection
	httpClient *http.Client

	// Endpoint overrides; tests point these at httptest servers.
	metaTokenURL     string
	twitterTokenURL  string
	linkedinTokenURL string
	googleEndpoint   oauth2.Endpoint
}

func NewTokenManager(connRepo repository.IConnection) *TokenManager {
	ver := configuration.C.Graph.MetaVersion
	return &TokenManager{
		connRepo:         connRepo,
		httpClient:       &http.Client{Timeout: 30 * time.Second},
		metaTokenURL:     "https://graph.facebook.com/" + ver + "/oauth/access_token",
		twitterTokenURL:  configuration.C.Graph.TwitterBaseURL + "/2/oauth2/token",
		linkedinTokenURL: "https://www.linkedin.com/oauth/v2/accessToken",
		googleEndpoint:   google.Endpoint,
	}
}

// WithEndpoints overrides token endpoints. Tests only.
func (m *TokenManager) WithEndpoints(meta, twitter, linkedin string) *TokenManager {
	if meta != "" {
		m.metaTokenURL = meta
	}
	if twitter != "" {
		m.twitterTokenURL = twitter
	}
	if linkedin != "" {
		m.linkedinTokenURL = linkedin
	}
	return m
}

// RefreshIfNeeded returns a connection whose access token is valid for at
// least the safety window. Connections without expiry pass through
// untouched. A refresh failure on the auth side surfaces as InvalidToken
// (non-retryable); transport failures get one local retry before
// surfacing as NetworkError.
func (m *TokenManager) RefreshIfNeeded(ctx context.Context, conn *model.Connection) (*model.Connection, error) {
	if conn.ExpiresAt == nil {
		return conn, nil
	}
	if !conn.TokenExpiresWithin(refreshThreshold) {
		return conn, nil
	}
	if needsRefreshToken(conn.Platform) && (conn.RefreshToken == nil || *conn.RefreshToken == "") {
		return nil, model.NewCanonicalError(model.ErrInvalidToken, conn.Platform,
			"access token expiring and no refresh token stored")
	}

	tokens, err := m.refreshOnce(ctx, conn)
	if err != nil {
		var cerr *model.CanonicalError
		if ce := model.AsCanonical(err, conn.Platform); ce.Kind == model.ErrNetworkError {
			// One local retry covers blips without involving the queue.
			tokens, err = m.refreshOnce(ctx, conn)
			cerr = model.AsCanonical(err, conn.Platform)
		} else {
			cerr = ce
		}
		if err != nil {
			return nil, cerr
		}
	}

	refreshed := *conn
	refreshed.AccessToken = tokens.AccessToken
	if tokens.RefreshToken != "" {
		rt := tokens.RefreshToken
		refreshed.RefreshToken = &rt
	}
	refreshed.ExpiresAt = tokens.ExpiresAt
	if err := m.connRepo.UpdateTokens(ctx, refreshed.ID, refreshed.AccessToken, refreshed.RefreshToken, refreshed.ExpiresAt); err != nil {
		return nil, err
	}
	logger.GetLogger().
		WithField("connection_id", conn.ID).
		WithField("platform", conn.Platform).
		Info("Access token refreshed")
	return &refreshed, nil
}

// needsRefreshToken reports whether the platform's refresh grant requires
// a stored refresh token. Meta extends the access token itself via
// fb_exchange_token.
func needsRefreshToken(p model.Platform) bool {
	return p != model.PlatformFacebook && p != model.PlatformInstagram
}

func (m *TokenManager) refreshOnce(ctx context.Context, conn *model.Connection) (*TokenSet, error) {
	switch conn.Platform {
	case model.PlatformYouTube:
		return m.refreshGoogle(ctx, conn)
	case model.PlatformFacebook, model.PlatformInstagram:
		// Meta has no refresh-token grant; extend via fb_exchange_token.
		return m.GetLongLivedToken(ctx, conn.AccessToken)
	case model.PlatformTwitter:
		return m.refreshTwitter(ctx, *conn.RefreshToken)
	case model.PlatformLinkedIn:
		return m.refreshLinkedIn(ctx, *conn.RefreshToken)
	}
	return nil, model.NewCanonicalError(model.ErrValidationError, conn.Platform, "unsupported platform for refresh")
}

// refreshGoogle runs the refresh through oauth2.TokenSource, the same way
// the YouTube service client does.
func (m *TokenManager) refreshGoogle(ctx context.Context, conn *model.Connection) (*TokenSet, error) {
	creds := configuration.C.OAuth.YouTube
	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Endpoint:     m.googleEndpoint,
	}
	tok := &oauth2.Token{
		AccessToken:  conn.AccessToken,
		RefreshToken: *conn.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(-time.Minute), // force refresh
	}
	newTok, err := conf.TokenSource(ctx, tok).Token()
	if err != nil {
		if rErr, ok := err.(*oauth2.RetrieveError); ok && rErr.Response != nil && rErr.Response.StatusCode < 500 {
			return nil, model.NewCanonicalError(model.ErrInvalidToken, conn.Platform, "google refresh rejected: "+rErr.ErrorCode)
		}
		return nil, model.NewCanonicalError(model.ErrNetworkError, conn.Platform, err.Error())
	}
	set := &TokenSet{AccessToken: newTok.AccessToken, RefreshToken: newTok.RefreshToken}
	if !newTok.Expiry.IsZero() {
		exp := newTok.Expiry.UTC()
		set.ExpiresAt = &exp
	}
	return set, nil
}
