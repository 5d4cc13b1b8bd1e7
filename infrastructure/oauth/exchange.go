package oauth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/configuration"
)

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int    `json:"expires_in"`
	Scope            string `json:"scope"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ExchangeCodeForToken runs the authorization-code exchange for a
// platform. X (Twitter) requires PKCE plus Basic-auth client credentials;
// the rest take the client secret in the POST body.
func (m *TokenManager) ExchangeCodeForToken(ctx context.Context, platform model.Platform, code, redirectURI, pkceVerifier string) (*TokenSet, error) {
	switch platform {
	case model.PlatformFacebook, model.PlatformInstagram:
		return m.exchangeMeta(ctx, platform, code, redirectURI)
	case model.PlatformTwitter:
		if pkceVerifier == "" {
			return nil, model.NewCanonicalError(model.ErrValidationError, platform, "twitter code exchange requires a PKCE verifier")
		}
		return m.exchangeTwitter(ctx, code, redirectURI, pkceVerifier)
	case model.PlatformLinkedIn:
		return m.exchangeLinkedIn(ctx, code, redirectURI)
	case model.PlatformYouTube:
		return m.exchangeGoogle(ctx, code, redirectURI)
	}
	return nil, model.NewCanonicalError(model.ErrValidationError, platform, "unsupported platform for code exchange")
}

// exchangeMeta swaps the code for a short-lived user token, then
// immediately upgrades it to the ~60-day long-lived token.
func (m *TokenManager) exchangeMeta(ctx context.Context, platform model.Platform, code, redirectURI string) (*TokenSet, error) {
	creds := credsFor(platform)
	q := url.Values{}
	q.Set("client_id", creds.ClientID)
	q.Set("client_secret", creds.ClientSecret)
	q.Set("redirect_uri", redirectURI)
	q.Set("code", code)

	short, err := m.postToken(ctx, platform, m.metaTokenURL+"?"+q.Encode(), nil, nil)
	if err != nil {
		return nil, err
	}
	return m.GetLongLivedToken(ctx, short.AccessToken)
}

// GetLongLivedToken exchanges a short-lived Meta user token for the
// long-lived variant. Meta platforms only.
func (m *TokenManager) GetLongLivedToken(ctx context.Context, shortLivedToken string) (*TokenSet, error) {
	creds := configuration.C.OAuth.Facebook
	q := url.Values{}
	q.Set("grant_type", "fb_exchange_token")
	q.Set("client_id", creds.ClientID)
	q.Set("client_secret", creds.ClientSecret)
	q.Set("fb_exchange_token", shortLivedToken)
	return m.postToken(ctx, model.PlatformFacebook, m.metaTokenURL+"?"+q.Encode(), nil, nil)
}

func (m *TokenManager) exchangeTwitter(ctx context.Context, code, redirectURI, pkceVerifier string) (*TokenSet, error) {
	creds := configuration.C.OAuth.Twitter
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	form.Set("code_verifier", pkceVerifier)
	form.Set("client_id", creds.ClientID)
	basic := base64.StdEncoding.EncodeToString([]byte(creds.ClientID + ":" + creds.ClientSecret))
	headers := map[string]string{"Authorization": "Basic " + basic}
	return m.postToken(ctx, model.PlatformTwitter, m.twitterTokenURL, form, headers)
}

func (m *TokenManager) refreshTwitter(ctx context.Context, refreshToken string) (*TokenSet, error) {
	creds := configuration.C.OAuth.Twitter
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", creds.ClientID)
	basic := base64.StdEncoding.EncodeToString([]byte(creds.ClientID + ":" + creds.ClientSecret))
	headers := map[string]string{"Authorization": "Basic " + basic}
	return m.postToken(ctx, model.PlatformTwitter, m.twitterTokenURL, form, headers)
}

func (m *TokenManager) exchangeLinkedIn(ctx context.Context, code, redirectURI string) (*TokenSet, error) {
	creds := configuration.C.OAuth.LinkedIn
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	form.Set("client_id", creds.ClientID)
	form.Set("client_secret", creds.ClientSecret)
	return m.postToken(ctx, model.PlatformLinkedIn, m.linkedinTokenURL, form, nil)
}

func (m *TokenManager) refreshLinkedIn(ctx context.Context, refreshToken string) (*TokenSet, error) {
	creds := configuration.C.OAuth.LinkedIn
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", creds.ClientID)
	form.Set("client_secret", creds.ClientSecret)
	return m.postToken(ctx, model.PlatformLinkedIn, m.linkedinTokenURL, form, nil)
}

func (m *TokenManager) exchangeGoogle(ctx context.Context, code, redirectURI string) (*TokenSet, error) {
	creds := configuration.C.OAuth.YouTube
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	form.Set("client_id", creds.ClientID)
	form.Set("client_secret", creds.ClientSecret)
	return m.postToken(ctx, model.PlatformYouTube, m.googleEndpoint.TokenURL, form, nil)
}

// postToken performs one token-endpoint call and normalizes failures:
// 4xx means the grant is bad (InvalidToken), transport and 5xx are
// NetworkError, both classified for the retry engine.
func (m *TokenManager) postToken(ctx context.Context, platform model.Platform, endpoint string, form url.Values, headers map[string]string) (*TokenSet, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, err
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, model.NewCanonicalError(model.ErrNetworkError, platform, err.Error())
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, model.NewCanonicalError(model.ErrNetworkError, platform,
			fmt.Sprintf("token endpoint returned %d", resp.StatusCode))
	}

	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return nil, model.NewCanonicalError(model.ErrUnknown, platform, "unparseable token response")
	}
	if resp.StatusCode != http.StatusOK || tr.AccessToken == "" {
		msg := tr.ErrorDescription
		if msg == "" {
			msg = tr.Error
		}
		if msg == "" {
			msg = fmt.Sprintf("token exchange failed with status %d", resp.StatusCode)
		}
		return nil, model.NewCanonicalError(model.ErrInvalidToken, platform, msg)
	}

	set := &TokenSet{AccessToken: tr.AccessToken, RefreshToken: tr.RefreshToken, Scopes: tr.Scope}
	if tr.ExpiresIn > 0 {
		exp := time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second).UTC()
		set.ExpiresAt = &exp
	}
	return set, nil
}

func credsFor(platform model.Platform) configuration.OAuthClient {
	switch platform {
	case model.PlatformInstagram:
		return configuration.C.OAuth.Instagram
	case model.PlatformTwitter:
		return configuration.C.OAuth.Twitter
	case model.PlatformYouTube:
		return configuration.C.OAuth.YouTube
	case model.PlatformLinkedIn:
		return configuration.C.OAuth.LinkedIn
	}
	return configuration.C.OAuth.Facebook
}
