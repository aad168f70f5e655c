// Package models defines the persistent entities shared across services.
package models

import "time"

// User is an account on the network.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Email        string `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Username     string `gorm:"size:64;not null;uniqueIndex" json:"username"`
	PasswordHash string `gorm:"size:128;not null" json:"-"`
	Bio          string `gorm:"size:500" json:"bio"`

	// Suspension is an admin action; a suspended user cannot log in.
	IsSuspended    bool       `gorm:"not null;default:false" json:"is_suspended"`
	SuspendedUntil *time.Time `json:"suspended_until,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AdminGrant establishes that a user holds moderation/administration
// privileges. Grants are looked up per request, never cached, so revoking
// one takes effect on the next call.
type AdminGrant struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;uniqueIndex" json:"user_id"`
	GrantedBy uint       `json:"granted_by"`
	Note      string     `gorm:"size:255" json:"note,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at,omitempty"`
}

// Follow is a directed edge: follower sees followee's posts in their feed.
type Follow struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FollowerID uint      `gorm:"not null;index;uniqueIndex:idx_follow_pair" json:"follower_id"`
	FolloweeID uint      `gorm:"not null;index;uniqueIndex:idx_follow_pair" json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`
}
