package model

import "time"

// PublishJob is one queued unit of work: publish post PostID to Platform.
// Jobs are transient and owned by the queue; the processor reads them and
// answers with a result the queue uses to decide re-delivery.
type PublishJob struct {
	PostID       string    `json:"post_id"`
	Platform     Platform  `json:"platform"`
	ScheduledFor time.Time `json:"scheduled_for"`
	RetryCount   int       `json:"retry_count"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

// RetryDecision is the pure outcome of the retry strategy for one failed
// attempt. Never persisted.
type RetryDecision struct {
	ShouldRetry bool
	Delay       time.Duration
	Reason      string
}
