package model

import "time"

// PostStatus is the lifecycle state of a scheduled post.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusScheduled PostStatus = "scheduled"
	PostStatusPublished PostStatus = "published"
	PostStatusFailed    PostStatus = "failed"
)

// Post is a user-authored post targeting one or more platforms.
// The API layer creates posts; the worker only ever moves Status and
// PublishedAt forward.
type Post struct {
	ID          string     `json:"id"`
	TeamID      string     `json:"team_id"`
	Content     string     `json:"content"`
	MediaURLs   []string   `json:"media_urls,omitempty"` // ordered
	Platforms   []Platform `json:"platforms"`
	Status      PostStatus `json:"status"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TargetsPlatform reports whether the post was scheduled for p.
func (p *Post) TargetsPlatform(platform Platform) bool {
	for _, t := range p.Platforms {
		if t == platform {
			return true
		}
	}
	return false
}
