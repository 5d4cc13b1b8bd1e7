package pubsub

import (
	"context"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
)

// EventFanout forwards lifecycle events to every target. All targets are
// attempted; the first error is returned.
type EventFanout struct {
	targets []repository.IEventPublisher
}

func NewEventFanout(targets ...repository.IEventPublisher) *EventFanout {
	return &EventFanout{targets: targets}
}

func (f *EventFanout) PostPublished(ctx context.Context, post *model.Post, platform model.Platform, externalID string) error {
	var first error
	for _, t := range f.targets {
		if err := t.PostPublished(ctx, post, platform, externalID); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f *EventFanout) PostFailed(ctx context.Context, post *model.Post, platform model.Platform, errorCode, message string) error {
	var first error
	for _, t := range f.targets {
		if err := t.PostFailed(ctx, post, platform, errorCode, message); err != nil && first == nil {
			first = err
		}
	}
	return first
}
