package realtime_test

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/realtime"
)

func TestServeStreamsEventsForOwningTeam(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := realtime.NewPublicationHub()

	router := gin.New()
	router.GET("/stream", func(c *gin.Context) {
		c.Set("team_id", c.Query("team"))
		hub.Serve(c)
	})
	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream?team=team-1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	greeting, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ":ok\n", greeting)

	post := &model.Post{ID: "post-1", TeamID: "team-1"}
	// An event for another team must not reach this subscriber.
	require.NoError(t, hub.PostPublished(ctx, &model.Post{ID: "post-9", TeamID: "team-2"}, model.PlatformTwitter, "x9"))
	require.NoError(t, hub.PostPublished(ctx, post, model.PlatformTwitter, "tw-123"))

	var data string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimSpace(strings.TrimPrefix(line, "data: "))
			break
		}
	}
	assert.JSONEq(t, `{
		"type": "publication_status",
		"post_id": "post-1",
		"platform": "twitter",
		"status": "published",
		"external_id": "tw-123"
	}`, data)
	cancel()
}

func TestPostFailedCarriesErrorCode(t *testing.T) {
	hub := realtime.NewPublicationHub()
	// No subscribers; must not block or error.
	err := hub.PostFailed(context.Background(), &model.Post{ID: "post-2", TeamID: "team-1"}, model.PlatformLinkedIn, "INVALID_TOKEN", "token revoked")
	assert.NoError(t, err)
}
