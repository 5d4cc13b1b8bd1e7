package facebook_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/clients/facebook"
)

func pageConnection() *model.Connection {
	pageID := "page123"
	return &model.Connection{
		ID:          "conn-1",
		TeamID:      "team-1",
		Platform:    model.PlatformFacebook,
		AccessToken: "page-token",
		Status:      model.ConnectionStatusActive,
		AccountID:   &pageID,
	}
}

func TestValidateEmptyPost(t *testing.T) {
	p := facebook.NewPublisher("v19.0")
	res := p.Validate("   ", nil)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors, "post needs text or media")
}

func TestValidateMediaOnlyIsFine(t *testing.T) {
	p := facebook.NewPublisher("v19.0")
	res := p.Validate("", []string{"https://cdn.example.com/a.jpg"})
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
}

func TestValidateWarnsOnHashtagPile(t *testing.T) {
	p := facebook.NewPublisher("v19.0")
	var b strings.Builder
	b.WriteString("launch day")
	for i := 0; i < 31; i++ {
		fmt.Fprintf(&b, " #tag%d", i)
	}
	res := p.Validate(b.String(), nil)
	assert.True(t, res.Valid)
	require.Len(t, res.Warnings, 1)
}

func TestPublishFeedPost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v19.0/page123/feed", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "page-token", r.PostForm.Get("access_token"))
		assert.Equal(t, "hello from the pipeline https://example.com/blog", r.PostForm.Get("message"))
		assert.Equal(t, "https://example.com/blog", r.PostForm.Get("link"))
		w.Write([]byte(`{"id":"page123_789"}`))
	}))
	defer srv.Close()

	p := facebook.NewPublisher("v19.0").WithBaseURL(srv.URL)
	post := &model.Post{ID: "post-1", Content: "hello from the pipeline https://example.com/blog"}

	res, err := p.Publish(context.Background(), post, pageConnection())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "page123_789", res.PlatformPostID)
	assert.Equal(t, "https://www.facebook.com/page123_789", res.URL)
	require.NotNil(t, res.PublishedAt)
	assert.WithinDuration(t, time.Now().UTC(), *res.PublishedAt, 5*time.Second)
}

func TestPublishPhotoPostUsesPostID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v19.0/page123/photos", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "https://cdn.example.com/a.jpg", r.PostForm.Get("url"))
		assert.Equal(t, "caption text", r.PostForm.Get("caption"))
		w.Write([]byte(`{"id":"photo55","post_id":"page123_55"}`))
	}))
	defer srv.Close()

	p := facebook.NewPublisher("v19.0").WithBaseURL(srv.URL)
	post := &model.Post{ID: "post-2", Content: "caption text", MediaURLs: []string{"https://cdn.example.com/a.jpg"}}

	res, err := p.Publish(context.Background(), post, pageConnection())
	require.NoError(t, err)
	assert.Equal(t, "page123_55", res.PlatformPostID)
}

func TestPublishWithoutPageID(t *testing.T) {
	p := facebook.NewPublisher("v19.0")
	conn := pageConnection()
	conn.AccountID = nil

	_, err := p.Publish(context.Background(), &model.Post{ID: "post-3", Content: "x"}, conn)
	var cerr *model.CanonicalError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, model.ErrInvalidToken, cerr.Kind)
	assert.False(t, cerr.Retryable)
}

func TestClassifyGraphCodes(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		body      string
		kind      model.ErrorKind
		retryable bool
	}{
		{"expired token subcode", 400, `{"error":{"message":"Session expired","code":190,"error_subcode":463}}`, model.ErrTokenExpired, false},
		{"invalid token", 400, `{"error":{"message":"Invalid OAuth access token","code":190}}`, model.ErrInvalidToken, false},
		{"app throttled", 403, `{"error":{"message":"Application request limit reached","code":4}}`, model.ErrRateLimitExceeded, true},
		{"permission range", 403, `{"error":{"message":"Requires publish_pages","code":283}}`, model.ErrInsufficientPermissions, false},
		{"policy block", 403, `{"error":{"message":"Temporarily blocked","code":368}}`, model.ErrAccountSuspended, false},
		{"duplicate", 400, `{"error":{"message":"Duplicate status message","code":506}}`, model.ErrDuplicateContent, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cerr := facebook.Classify(tc.status, []byte(tc.body))
			assert.Equal(t, tc.kind, cerr.Kind)
			assert.Equal(t, tc.retryable, cerr.Retryable)
			assert.Equal(t, tc.status, cerr.HTTPStatus)
		})
	}
}

func TestClassifyPostingLimitCarriesHourHint(t *testing.T) {
	cerr := facebook.Classify(403, []byte(`{"error":{"message":"Feed action request limit reached","code":341}}`))
	assert.Equal(t, model.ErrDailyLimitReached, cerr.Kind)
	require.NotNil(t, cerr.RetryAfter)
	assert.Equal(t, time.Hour, *cerr.RetryAfter)
}

func TestClassifyUnparseableBodyFallsBackOnStatus(t *testing.T) {
	cerr := facebook.Classify(503, []byte("<html>oops</html>"))
	assert.Equal(t, model.ErrPlatformUnavailable, cerr.Kind)
	assert.True(t, cerr.Retryable)

	cerr = facebook.Classify(400, []byte("not json"))
	assert.Equal(t, model.ErrUnknown, cerr.Kind)
	assert.False(t, cerr.Retryable)
}
