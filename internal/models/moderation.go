package models

import "time"

// ReportReason is the closed set of reasons a user can report content for.
type ReportReason string

const (
	ReasonSpam           ReportReason = "spam"
	ReasonHarassment     ReportReason = "harassment"
	ReasonInappropriate  ReportReason = "inappropriate"
	ReasonMisinformation ReportReason = "misinformation"
	ReasonIllegal        ReportReason = "illegal"
	ReasonOther          ReportReason = "other"
)

// Valid reports whether r is a known report reason.
func (r ReportReason) Valid() bool {
	switch r {
	case ReasonSpam, ReasonHarassment, ReasonInappropriate, ReasonMisinformation, ReasonIllegal, ReasonOther:
		return true
	}
	return false
}

// ReportStatus tracks a report's lifecycle.
type ReportStatus string

const (
	ReportPending  ReportStatus = "pending"
	ReportResolved ReportStatus = "resolved"
)

// Report is a user-submitted complaint about a piece of content.
// Reports are never deleted except by cascade when their target is purged.
type Report struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	TargetType  TargetType   `gorm:"size:20;not null;index:idx_report_target" json:"target_type"`
	TargetID    uint         `gorm:"not null;index:idx_report_target" json:"target_id"`
	ReporterID  uint         `gorm:"not null;index" json:"reporter_id"`
	Reason      ReportReason `gorm:"size:30;not null" json:"reason"`
	Description string       `gorm:"size:1000" json:"description,omitempty"`
	Status      ReportStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
}

// AdminNotification flags content for admin attention, typically because it
// crossed the auto-hide threshold. Resolved when an admin restores or purges
// the underlying content.
type AdminNotification struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	TargetType TargetType `gorm:"size:20;not null;index:idx_notif_target" json:"target_type"`
	TargetID   uint       `gorm:"not null;index:idx_notif_target" json:"target_id"`
	Message    string     `gorm:"size:500" json:"message"`
	IsRead     bool       `gorm:"not null;default:false" json:"is_read"`
	IsResolved bool       `gorm:"not null;default:false;index" json:"is_resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// AdminAction names a privileged mutation for the audit trail.
type AdminAction string

const (
	ActionAutoHide    AdminAction = "auto_hide"
	ActionRestore     AdminAction = "restore"
	ActionPurge       AdminAction = "purge"
	ActionSuspendUser AdminAction = "suspend_user"
	ActionGrantAdmin  AdminAction = "grant_admin"
	ActionRevokeAdmin AdminAction = "revoke_admin"
)

// AdminLog is an append-only audit entry. It is written in the same
// transaction as the privileged mutation it records, so state changes and
// their audit trail cannot be split by a partial failure. AdminID zero
// means the automoderator acted.
type AdminLog struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	AdminID    uint        `gorm:"index" json:"admin_id"`
	Action     AdminAction `gorm:"size:30;not null" json:"action"`
	TargetType TargetType  `gorm:"size:20;not null" json:"target_type"`
	TargetID   uint        `gorm:"not null" json:"target_id"`
	Details    string      `gorm:"size:1000" json:"details,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}
