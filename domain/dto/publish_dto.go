package dto

import "time"

// ValidationResult is the outcome of platform content validation.
type ValidationResult struct {
	Valid          bool     `json:"valid"`
	Errors         []string `json:"errors,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
	CharacterCount int      `json:"character_count"`
	CharacterLimit int      `json:"character_limit"`
}

// PublishResult is what a publisher returns after a platform API call.
type PublishResult struct {
	Success        bool       `json:"success"`
	PlatformPostID string     `json:"platform_post_id,omitempty"`
	URL            string     `json:"url,omitempty"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
}

// MediaKind selects which media requirement set to look up.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// MediaRequirements describes platform constraints for one media kind.
type MediaRequirements struct {
	Kind         MediaKind     `json:"kind"`
	MaxSizeBytes int64         `json:"max_size_bytes"`
	MaxDuration  time.Duration `json:"max_duration,omitempty"`  // video only
	MinWidth     int           `json:"min_width,omitempty"`
	MaxWidth     int           `json:"max_width,omitempty"`
	AspectRatios []string      `json:"aspect_ratios,omitempty"` // e.g. "1:1", "4:5", "16:9"
	Formats      []string      `json:"formats"`                 // e.g. "jpg", "png", "mp4"
	MaxCount     int           `json:"max_count"`               // per post
}

// JobResult is what the processor hands back to the queue runtime. The
// queue only ever sees "done", "retry in Delay" or "terminal failure" -
// never raw platform errors.
type JobResult struct {
	Outcome   JobOutcome    `json:"outcome"`
	Delay     time.Duration `json:"delay,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	ErrorCode string        `json:"error_code,omitempty"`
}

type JobOutcome string

const (
	JobOutcomePublished JobOutcome = "published"
	JobOutcomeRetrying  JobOutcome = "retrying"
	JobOutcomeFailed    JobOutcome = "failed"
	JobOutcomeSkipped   JobOutcome = "skipped"
)
