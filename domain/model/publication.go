package model

import "time"

// PublicationStatus tracks one post×platform publish attempt.
type PublicationStatus string

const (
	PublicationStatusPending    PublicationStatus = "pending"
	PublicationStatusPublishing PublicationStatus = "publishing"
	PublicationStatusPublished  PublicationStatus = "published"
	PublicationStatusFailed     PublicationStatus = "failed"
)

// Publication is the authoritative row per (post, platform). Exactly one
// row exists after processing; append-only attempt history goes to the
// audit store.
type Publication struct {
	ID           string            `json:"id"`
	PostID       string            `json:"post_id"`
	Platform     Platform          `json:"platform"`
	ExternalID   *string           `json:"external_id,omitempty"`
	URL          *string           `json:"url,omitempty"`
	Status       PublicationStatus `json:"status"`
	ErrorCode    *string           `json:"error_code,omitempty"`
	ErrorMessage *string           `json:"error_message,omitempty"`
	RetryCount   int               `json:"retry_count"`
	PublishedAt  *time.Time        `json:"published_at,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// PublicationAudit is an append-only log entry of a single publish attempt.
type PublicationAudit struct {
	PostID       string    `json:"post_id" bson:"post_id"`
	Platform     Platform  `json:"platform" bson:"platform"`
	Status       string    `json:"status" bson:"status"`
	ErrorCode    *string   `json:"error_code,omitempty" bson:"error_code,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty" bson:"error_message,omitempty"`
	Attempt      int       `json:"attempt" bson:"attempt"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}
