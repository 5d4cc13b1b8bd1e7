package linkedin_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/clients/linkedin"
)

func strptr(s string) *string { return &s }

func TestValidateCharacterLimit(t *testing.T) {
	p := linkedin.NewPublisher("https://api.linkedin.com")
	res := p.Validate(strings.Repeat("b", 3001), nil)
	assert.False(t, res.Valid)
	assert.Equal(t, 3000, res.CharacterLimit)

	res = p.Validate("a professional update", nil)
	assert.True(t, res.Valid)
}

func TestPublishTextShare(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/ugcPosts", r.URL.Path)
		require.Equal(t, "2.0.0", r.Header.Get("X-Restli-Protocol-Version"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "urn:li:person:abc123", payload["author"])

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "urn:li:ugcPost:6890"})
	}))
	defer srv.Close()

	p := linkedin.NewPublisher(srv.URL)
	post := &model.Post{ID: "p1", Content: "a professional update"}
	conn := &model.Connection{AccessToken: "tok", AccountID: strptr("abc123")}

	res, err := p.Publish(context.Background(), post, conn)
	require.NoError(t, err)
	assert.Equal(t, "urn:li:ugcPost:6890", res.PlatformPostID)
}

func TestPublishMissingMemberID(t *testing.T) {
	p := linkedin.NewPublisher("https://api.linkedin.com")
	_, err := p.Publish(context.Background(), &model.Post{Content: "x"}, &model.Connection{AccessToken: "tok"})
	cerr := model.AsCanonical(err, model.PlatformLinkedIn)
	assert.Equal(t, model.ErrInvalidToken, cerr.Kind)
}

func TestClassifyExpiredToken(t *testing.T) {
	body := []byte(`{"message":"token expired","serviceErrorCode":65601,"status":401}`)
	cerr := linkedin.Classify(http.StatusUnauthorized, body)
	assert.Equal(t, model.ErrTokenExpired, cerr.Kind)
	assert.False(t, cerr.Retryable)
}

func TestClassifyDuplicateByMessage(t *testing.T) {
	body := []byte(`{"message":"Duplicate post is not allowed","status":422}`)
	cerr := linkedin.Classify(http.StatusUnprocessableEntity, body)
	assert.Equal(t, model.ErrDuplicateContent, cerr.Kind)
}
