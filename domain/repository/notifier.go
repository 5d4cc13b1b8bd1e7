package repository

import (
	"context"

	"social-publisher/domain/model"
)

// IEventPublisher broadcasts post lifecycle events (published / failed) so
// downstream consumers (UI, analytics) can react. Implementations must be
// safe to call with best-effort semantics; the worker never fails a job on
// a notification error.
type IEventPublisher interface {
	PostPublished(ctx context.Context, post *model.Post, platform model.Platform, externalID string) error
	PostFailed(ctx context.Context, post *model.Post, platform model.Platform, errorCode, message string) error
}

// IFailureNotifier receives terminal failures (dead-letter style) for
// operator attention.
type IFailureNotifier interface {
	NotifyTerminalFailure(ctx context.Context, job *model.PublishJob, errorCode, message string) error
}
