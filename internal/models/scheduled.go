package models

import "time"

// ScheduledStatus tracks a scheduled post through its one-way lifecycle:
// pending -> processing -> published|failed, or pending -> cancelled.
// Once a row leaves pending it never returns.
type ScheduledStatus string

const (
	SchedulePending    ScheduledStatus = "pending"
	ScheduleProcessing ScheduledStatus = "processing"
	SchedulePublished  ScheduledStatus = "published"
	ScheduleCancelled  ScheduledStatus = "cancelled"
	ScheduleFailed     ScheduledStatus = "failed"
)

// ScheduledPost is a post authored ahead of time, materialized as a live
// Post by the publisher batch once its scheduled time passes.
type ScheduledPost struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	Content     string          `gorm:"type:text;not null" json:"content"`
	ImageURL    string          `gorm:"size:512" json:"image_url,omitempty"`
	ScheduledAt time.Time       `gorm:"not null;index" json:"scheduled_at"`
	Status      ScheduledStatus `gorm:"size:20;not null;default:pending;index" json:"status"`

	// PublishedPostID links to the materialized post once published.
	PublishedPostID *uint  `json:"published_post_id,omitempty"`
	FailureReason   string `gorm:"size:500" json:"failure_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
