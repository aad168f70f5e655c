package models

import "time"

// TargetType identifies a kind of moderatable content. It is a closed enum;
// anything arriving over the wire must pass Valid before use.
type TargetType string

const (
	TargetPost    TargetType = "post"
	TargetComment TargetType = "comment"
	TargetUser    TargetType = "user"
	TargetShop    TargetType = "shop"
	TargetEvent   TargetType = "event"
	TargetReview  TargetType = "review"
)

// AllTargetTypes returns every reportable content kind.
func AllTargetTypes() []TargetType {
	return []TargetType{TargetPost, TargetComment, TargetUser, TargetShop, TargetEvent, TargetReview}
}

// Valid reports whether t is a known target type.
func (t TargetType) Valid() bool {
	switch t {
	case TargetPost, TargetComment, TargetUser, TargetShop, TargetEvent, TargetReview:
		return true
	}
	return false
}

// Hideable is embedded by every content kind subject to the
// hide/restore/purge lifecycle. Invariant: IsHidden implies HiddenAt is set.
type Hideable struct {
	IsHidden bool       `gorm:"not null;default:false;index" json:"is_hidden"`
	HiddenAt *time.Time `json:"hidden_at,omitempty"`
}

// Post is a timeline entry, optionally with an attached image.
type Post struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	UserID   uint   `gorm:"not null;index" json:"user_id"`
	Content  string `gorm:"type:text;not null" json:"content"`
	ImageURL string `gorm:"size:512" json:"image_url,omitempty"`
	Hideable

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Comment belongs to a post.
type Comment struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	PostID  uint   `gorm:"not null;index" json:"post_id"`
	UserID  uint   `gorm:"not null;index" json:"user_id"`
	Content string `gorm:"type:text;not null" json:"content"`
	Hideable

	CreatedAt time.Time `json:"created_at"`
}

// Shop is a bonsai shop directory entry with a geolocation.
type Shop struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	UserID      uint    `gorm:"not null;index" json:"user_id"`
	Name        string  `gorm:"size:200;not null" json:"name"`
	Address     string  `gorm:"size:500" json:"address"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Description string  `gorm:"type:text" json:"description"`
	Hideable

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Event is a listed gathering (exhibition, workshop, club meeting).
type Event struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Location    string    `gorm:"size:500" json:"location"`
	StartsAt    time.Time `gorm:"index" json:"starts_at"`
	Hideable

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Review is a rated writeup of a shop.
type Review struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	ShopID uint   `gorm:"not null;index" json:"shop_id"`
	UserID uint   `gorm:"not null;index" json:"user_id"`
	Rating int    `gorm:"not null" json:"rating"`
	Body   string `gorm:"type:text" json:"body"`
	Hideable

	CreatedAt time.Time `json:"created_at"`
}
