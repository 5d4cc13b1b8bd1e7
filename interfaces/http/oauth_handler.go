package http

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/configuration"
	"social-publisher/infrastructure/logger"
	"social-publisher/infrastructure/oauth"
)

// IConnectionHandler drives the platform connect flow: build the consent
// URL, take the callback, exchange the code and persist the connection.
type IConnectionHandler interface {
	GetAuthURL(ctx *gin.Context)
	Callback(ctx *gin.Context)
	Status(ctx *gin.Context)
}

type connectionHandler struct {
	connRepo repository.IConnection
	tokens   *oauth.TokenManager
	stateMu  sync.Mutex
	states   map[string]stateEntry // state -> metadata with expiry
}

type stateEntry struct {
	teamID       string
	platform     model.Platform
	pkceVerifier string
	expiresAt    time.Time
}

func NewConnectionHandler(connRepo repository.IConnection, tokens *oauth.TokenManager) IConnectionHandler {
	return &connectionHandler{
		connRepo: connRepo,
		tokens:   tokens,
		states:   map[string]stateEntry{},
	}
}

func randomToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

var authorizeEndpoints = map[model.Platform]struct {
	host, path, scopes string
}{
	model.PlatformFacebook:  {"www.facebook.com", "/v19.0/dialog/oauth", "pages_show_list,pages_read_engagement,pages_manage_posts,public_profile"},
	model.PlatformInstagram: {"www.facebook.com", "/v19.0/dialog/oauth", "instagram_basic,instagram_content_publish,pages_show_list"},
	model.PlatformTwitter:   {"twitter.com", "/i/oauth2/authorize", "tweet.read tweet.write users.read offline.access"},
	model.PlatformYouTube:   {"accounts.google.com", "/o/oauth2/v2/auth", "https://www.googleapis.com/auth/youtube.upload https://www.googleapis.com/auth/youtube"},
	model.PlatformLinkedIn:  {"www.linkedin.com", "/oauth/v2/authorization", "w_member_social openid profile"},
}

// GetAuthURL builds the platform consent URL (user must approve in browser).
func (h *connectionHandler) GetAuthURL(c *gin.Context) {
	platform, ok := model.ParsePlatform(c.Param("platform"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown platform"})
		return
	}
	conf := oauthClientFor(platform)
	if conf.ClientID == "" || conf.RedirectURI == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "platform oauth not configured"})
		return
	}
	endpoint := authorizeEndpoints[platform]

	state := randomToken()
	entry := stateEntry{
		teamID:    c.GetString("team_id"),
		platform:  platform,
		expiresAt: time.Now().Add(10 * time.Minute),
	}

	u := url.URL{Scheme: "https", Host: endpoint.host, Path: endpoint.path}
	q := u.Query()
	q.Set("client_id", conf.ClientID)
	q.Set("redirect_uri", conf.RedirectURI)
	q.Set("response_type", "code")
	q.Set("state", state)
	q.Set("scope", endpoint.scopes)
	if platform == model.PlatformTwitter {
		// X mandates PKCE on the authorization-code flow.
		entry.pkceVerifier = randomToken()
		q.Set("code_challenge", entry.pkceVerifier)
		q.Set("code_challenge_method", "plain")
	}
	if platform == model.PlatformYouTube {
		q.Set("access_type", "offline")
		q.Set("prompt", "consent")
	}
	u.RawQuery = q.Encode()

	h.stateMu.Lock()
	h.states[state] = entry
	h.stateMu.Unlock()

	c.JSON(http.StatusOK, gin.H{"auth_url": u.String(), "state": state})
}

// Callback exchanges the authorization code and stores the connection.
func (h *connectionHandler) Callback(c *gin.Context) {
	lg := logger.GetLogger()
	code := c.Query("code")
	state := c.Query("state")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}

	h.stateMu.Lock()
	entry, ok := h.states[state]
	if ok && time.Now().After(entry.expiresAt) {
		ok = false
	}
	if ok {
		delete(h.states, state)
	}
	h.stateMu.Unlock()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_state"})
		return
	}

	teamID := entry.teamID
	if teamID == "" { // fallback for dev
		teamID = "demo-team"
	}
	conf := oauthClientFor(entry.platform)

	tokens, err := h.tokens.ExchangeCodeForToken(c.Request.Context(), entry.platform, code, conf.RedirectURI, entry.pkceVerifier)
	if err != nil {
		lg.WithField("error", err).WithField("platform", entry.platform).Error("Token exchange failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "token_exchange_failed"})
		return
	}

	conn := &model.Connection{
		ID:          uuid.NewString(),
		TeamID:      teamID,
		Platform:    entry.platform,
		AccessToken: tokens.AccessToken,
		ExpiresAt:   tokens.ExpiresAt,
		Status:      model.ConnectionStatusActive,
		Scopes:      tokens.Scopes,
	}
	if tokens.RefreshToken != "" {
		rt := tokens.RefreshToken
		conn.RefreshToken = &rt
	}
	if err := h.connRepo.Upsert(c.Request.Context(), conn); err != nil {
		lg.WithField("error", err).Error("Error while storing connection")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "connection_store_failed"})
		return
	}

	lg.WithField("team_id", teamID).WithField("platform", entry.platform).Info("Platform connected")
	c.JSON(http.StatusOK, gin.H{"connected": true, "platform": entry.platform})
}

// Status reports whether the team has an active connection for a platform.
func (h *connectionHandler) Status(c *gin.Context) {
	platform, ok := model.ParsePlatform(c.Param("platform"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown platform"})
		return
	}
	teamID := c.GetString("team_id")
	conn, err := h.connRepo.FindActive(c.Request.Context(), teamID, platform)
	if err != nil || conn == nil {
		c.JSON(http.StatusOK, gin.H{"connected": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"connected":  true,
		"expires_at": conn.ExpiresAt,
		"scopes":     conn.Scopes,
	})
}

func oauthClientFor(platform model.Platform) configuration.OAuthClient {
	switch platform {
	case model.PlatformFacebook:
		return configuration.C.OAuth.Facebook
	case model.PlatformInstagram:
		return configuration.C.OAuth.Instagram
	case model.PlatformTwitter:
		return configuration.C.OAuth.Twitter
	case model.PlatformYouTube:
		return configuration.C.OAuth.YouTube
	case model.PlatformLinkedIn:
		return configuration.C.OAuth.LinkedIn
	}
	return configuration.OAuthClient{}
}
