package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"social-publisher/domain/model"
)

// PublicationStatusEvent is the SSE payload pushed when a publication
// succeeds or terminally fails on a platform.
type PublicationStatusEvent struct {
	Type       string `json:"type"`
	PostID     string `json:"post_id"`
	Platform   string `json:"platform"`
	Status     string `json:"status"`
	ExternalID string `json:"external_id,omitempty"`
	ErrorCode  string `json:"error_code,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Hub maintains per-team subscribers listening for publication status
// events. It implements repository.IEventPublisher so the worker can fan
// events out to connected dashboards alongside the pubsub topic.
type Hub struct {
	mu    sync.RWMutex
	teams map[string]map[chan PublicationStatusEvent]struct{}
}

func NewPublicationHub() *Hub {
	return &Hub{teams: make(map[string]map[chan PublicationStatusEvent]struct{})}
}

// Serve registers an SSE stream for the authenticated team (team_id set by
// middleware).
func (h *Hub) Serve(c *gin.Context) {
	teamID := c.GetString("team_id")
	if teamID == "" {
		c.Status(http.StatusUnauthorized)
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // disable nginx buffering

	ch := make(chan PublicationStatusEvent, 8)
	h.addSubscriber(teamID, ch)
	defer h.removeSubscriber(teamID, ch)

	// Initial comment to keep connection open
	c.Writer.Write([]byte(":ok\n\n"))
	c.Writer.Flush()

	for {
		select {
		case evt := <-ch:
			data, _ := json.Marshal(evt)
			_, _ = c.Writer.Write([]byte("event: publication_status\n"))
			_, _ = c.Writer.Write([]byte("data: "))
			_, _ = c.Writer.Write(data)
			_, _ = c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (h *Hub) addSubscriber(teamID string, ch chan PublicationStatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.teams[teamID] == nil {
		h.teams[teamID] = make(map[chan PublicationStatusEvent]struct{})
	}
	h.teams[teamID][ch] = struct{}{}
}

func (h *Hub) removeSubscriber(teamID string, ch chan PublicationStatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs := h.teams[teamID]; subs != nil {
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(h.teams, teamID)
		}
	}
}

// PostPublished pushes a success event to the owning team's subscribers.
func (h *Hub) PostPublished(ctx context.Context, post *model.Post, platform model.Platform, externalID string) error {
	h.broadcast(post.TeamID, PublicationStatusEvent{
		Type:       "publication_status",
		PostID:     post.ID,
		Platform:   string(platform),
		Status:     "published",
		ExternalID: externalID,
	})
	return nil
}

// PostFailed pushes a terminal-failure event to the owning team's
// subscribers.
func (h *Hub) PostFailed(ctx context.Context, post *model.Post, platform model.Platform, errorCode, message string) error {
	h.broadcast(post.TeamID, PublicationStatusEvent{
		Type:      "publication_status",
		PostID:    post.ID,
		Platform:  string(platform),
		Status:    "failed",
		ErrorCode: errorCode,
		Error:     message,
	})
	return nil
}

func (h *Hub) broadcast(teamID string, evt PublicationStatusEvent) {
	h.mu.RLock()
	subs := h.teams[teamID]
	for ch := range subs {
		select { // non-blocking
		case ch <- evt:
		default:
		}
	}
	h.mu.RUnlock()
}
