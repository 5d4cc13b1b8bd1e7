package repository

import (
	"context"
	"time"

	"social-publisher/domain/model"
)

// IJobQueue is the durable delayed queue the worker consumes. Delivery is
// at-least-once; the processor tolerates duplicates via its idempotency
// check. Retries are delayed re-enqueues, never in-process sleeps.
type IJobQueue interface {
	Enqueue(ctx context.Context, job *model.PublishJob, runAt time.Time) error
	// Dequeue claims the next due job. Returns nil without error when
	// nothing is due.
	Dequeue(ctx context.Context) (*model.PublishJob, error)
	Size(ctx context.Context) (int64, error)
}
