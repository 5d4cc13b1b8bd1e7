package oauth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/oauth"
)

type MockConnectionRepo struct {
	mock.Mock
}

func (m *MockConnectionRepo) FindActive(ctx context.Context, teamID string, platform model.Platform) (*model.Connection, error) {
	args := m.Called(ctx, teamID, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Connection), args.Error(1)
}

func (m *MockConnectionRepo) UpdateTokens(ctx context.Context, id string, accessToken string, refreshToken *string, expiresAt *time.Time) error {
	args := m.Called(ctx, id, accessToken, refreshToken, expiresAt)
	return args.Error(0)
}

func (m *MockConnectionRepo) MarkDisconnected(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockConnectionRepo) Upsert(ctx context.Context, conn *model.Connection) error {
	args := m.Called(ctx, conn)
	return args.Error(0)
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func TestRefreshIfNeededNoExpiryPassesThrough(t *testing.T) {
	repo := new(MockConnectionRepo)
	tm := oauth.NewTokenManager(repo)
	conn := &model.Connection{ID: "c1", Platform: model.PlatformFacebook, AccessToken: "tok"}

	got, err := tm.RefreshIfNeeded(context.Background(), conn)
	require.NoError(t, err)
	assert.Same(t, conn, got)
	repo.AssertNotCalled(t, "UpdateTokens", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRefreshIfNeededFarFromExpiryPassesThrough(t *testing.T) {
	repo := new(MockConnectionRepo)
	tm := oauth.NewTokenManager(repo)
	conn := &model.Connection{
		ID: "c1", Platform: model.PlatformTwitter, AccessToken: "tok",
		RefreshToken: strPtr("refresh"),
		ExpiresAt:    timePtr(time.Now().Add(time.Hour)),
	}

	got, err := tm.RefreshIfNeeded(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, "tok", got.AccessToken)
}

func TestRefreshIfNeededMissingRefreshTokenIsInvalidToken(t *testing.T) {
	repo := new(MockConnectionRepo)
	tm := oauth.NewTokenManager(repo)
	conn := &model.Connection{
		ID: "c1", Platform: model.PlatformTwitter, AccessToken: "tok",
		ExpiresAt: timePtr(time.Now().Add(time.Minute)),
	}

	_, err := tm.RefreshIfNeeded(context.Background(), conn)
	cerr := model.AsCanonical(err, model.PlatformTwitter)
	assert.Equal(t, model.ErrInvalidToken, cerr.Kind)
	assert.False(t, cerr.Retryable)
}

func TestRefreshFacebookWithoutRefreshTokenUsesLongLivedExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "fb_exchange_token", q.Get("grant_type"))
		assert.Equal(t, "short-token", q.Get("fb_exchange_token"))
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "long-token", "expires_in": 5184000})
	}))
	defer srv.Close()

	repo := new(MockConnectionRepo)
	repo.On("UpdateTokens", mock.Anything, "c1", "long-token", mock.Anything, mock.Anything).Return(nil).Once()

	// Meta connections carry no refresh token; expiry is extended through
	// the access token itself.
	tm := oauth.NewTokenManager(repo).WithEndpoints(srv.URL, "", "")
	conn := &model.Connection{
		ID: "c1", Platform: model.PlatformFacebook, AccessToken: "short-token",
		ExpiresAt: timePtr(time.Now().Add(time.Minute)),
	}

	got, err := tm.RefreshIfNeeded(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, "long-token", got.AccessToken)
	repo.AssertExpectations(t)
}

func TestRefreshTwitterExchangesAndPersists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.PostForm.Get("refresh_token"))
		assert.NotEmpty(t, r.Header.Get("Authorization"), "twitter refresh requires basic auth")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "new-access",
			"refresh_token": "new-refresh",
			"expires_in":    7200,
		})
	}))
	defer srv.Close()

	repo := new(MockConnectionRepo)
	repo.On("UpdateTokens", mock.Anything, "c1", "new-access", mock.Anything, mock.Anything).Return(nil).Once()

	tm := oauth.NewTokenManager(repo).WithEndpoints("", srv.URL, "")
	conn := &model.Connection{
		ID: "c1", Platform: model.PlatformTwitter, AccessToken: "old",
		RefreshToken: strPtr("old-refresh"),
		ExpiresAt:    timePtr(time.Now().Add(time.Minute)),
	}

	got, err := tm.RefreshIfNeeded(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, "new-access", got.AccessToken)
	require.NotNil(t, got.RefreshToken)
	assert.Equal(t, "new-refresh", *got.RefreshToken)
	require.NotNil(t, got.ExpiresAt)
	repo.AssertExpectations(t)
}

func TestRefreshRejectedGrantIsInvalidToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "invalid_grant", "error_description": "revoked"})
	}))
	defer srv.Close()

	repo := new(MockConnectionRepo)
	tm := oauth.NewTokenManager(repo).WithEndpoints("", srv.URL, "")
	conn := &model.Connection{
		ID: "c1", Platform: model.PlatformTwitter, AccessToken: "old",
		RefreshToken: strPtr("revoked-refresh"),
		ExpiresAt:    timePtr(time.Now().Add(time.Minute)),
	}

	_, err := tm.RefreshIfNeeded(context.Background(), conn)
	cerr := model.AsCanonical(err, model.PlatformTwitter)
	assert.Equal(t, model.ErrInvalidToken, cerr.Kind)
	assert.Contains(t, cerr.Message, "revoked")
}

func TestExchangeCodeTwitterRequiresPKCE(t *testing.T) {
	repo := new(MockConnectionRepo)
	tm := oauth.NewTokenManager(repo)

	_, err := tm.ExchangeCodeForToken(context.Background(), model.PlatformTwitter, "code", "https://cb", "")
	cerr := model.AsCanonical(err, model.PlatformTwitter)
	assert.Equal(t, model.ErrValidationError, cerr.Kind)
}

func TestExchangeCodeLinkedIn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "li-token", "expires_in": 5184000})
	}))
	defer srv.Close()

	repo := new(MockConnectionRepo)
	tm := oauth.NewTokenManager(repo).WithEndpoints("", "", srv.URL)

	set, err := tm.ExchangeCodeForToken(context.Background(), model.PlatformLinkedIn, "the-code", "https://cb", "")
	require.NoError(t, err)
	assert.Equal(t, "li-token", set.AccessToken)
	require.NotNil(t, set.ExpiresAt)
}

func TestGetLongLivedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "fb_exchange_token", q.Get("grant_type"))
		assert.Equal(t, "short-token", q.Get("fb_exchange_token"))
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "long-token", "expires_in": 5184000})
	}))
	defer srv.Close()

	repo := new(MockConnectionRepo)
	tm := oauth.NewTokenManager(repo).WithEndpoints(srv.URL, "", "")

	set, err := tm.GetLongLivedToken(context.Background(), "short-token")
	require.NoError(t, err)
	assert.Equal(t, "long-token", set.AccessToken)
}
