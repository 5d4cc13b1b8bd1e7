package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"cloud.google.com/go/pubsub"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"
)

// NewPubSub creates the Google Pub/Sub client used for lifecycle events.
func NewPubSub(ctx context.Context, projectID string) (*pubsub.Client, error) {
	return pubsub.NewClient(ctx, projectID)
}

// lifecycleEvent is the wire shape consumers receive on the events topic.
type lifecycleEvent struct {
	Event      string         `json:"event"`
	PostID     string         `json:"post_id"`
	TeamID     string         `json:"team_id"`
	Platform   model.Platform `json:"platform"`
	ExternalID string         `json:"external_id,omitempty"`
	ErrorCode  string         `json:"error_code,omitempty"`
	Message    string         `json:"message,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// EventPublisher broadcasts post lifecycle events on a Pub/Sub topic. A nil
// client turns every publish into a logged no-op; event delivery is
// best-effort and never fails a job.
type EventPublisher struct {
	client    *pubsub.Client
	topicName string
}

func NewEventPublisher(client *pubsub.Client, topicName string) *EventPublisher {
	return &EventPublisher{client: client, topicName: topicName}
}

func (p *EventPublisher) PostPublished(ctx context.Context, post *model.Post, platform model.Platform, externalID string) error {
	return p.publish(ctx, lifecycleEvent{
		Event:      "post.published",
		PostID:     post.ID,
		TeamID:     post.TeamID,
		Platform:   platform,
		ExternalID: externalID,
		OccurredAt: time.Now().UTC(),
	})
}

func (p *EventPublisher) PostFailed(ctx context.Context, post *model.Post, platform model.Platform, errorCode, message string) error {
	return p.publish(ctx, lifecycleEvent{
		Event:      "post.failed",
		PostID:     post.ID,
		TeamID:     post.TeamID,
		Platform:   platform,
		ErrorCode:  errorCode,
		Message:    message,
		OccurredAt: time.Now().UTC(),
	})
}

func (p *EventPublisher) publish(ctx context.Context, event lifecycleEvent) error {
	if p.client == nil {
		logger.GetLogger().WithField("event", event.Event).Info("PubSub client is nil - skipping event publish")
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	topic := p.client.Topic(p.topicName)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		logger.GetLogger().WithField("topic", p.topicName).Info("Topic doesn't exist - creating it")
		if _, err = p.client.CreateTopic(ctx, p.topicName); err != nil {
			return err
		}
	}

	serverID, err := topic.Publish(ctx, &pubsub.Message{Data: payload}).Get(ctx)
	if err != nil {
		return err
	}
	logger.GetLogger().
		WithField("server ID", serverID).
		WithField("event", event.Event).
		Info("Event published")
	return nil
}
