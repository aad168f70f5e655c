// Package feed implements the content surface: creating posts, comments,
// shops, events, and reviews, the follow graph, and the home timeline.
package feed

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"bonlog/internal/apperr"
	"bonlog/internal/models"

	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

// Service creates content and serves timelines. User-supplied text is
// sanitized before storage; moderation relies on the stored form.
type Service struct {
	db       *gorm.DB
	sanitize *bluemonday.Policy
}

// NewService creates the content service.
func NewService(db *gorm.DB) *Service {
	return &Service{
		db:       db,
		sanitize: bluemonday.UGCPolicy(),
	}
}

// CreatePostInput creates a post now, or queues it when ScheduledAt is in
// the future.
type CreatePostInput struct {
	Content     string     `json:"content"`
	ImageURL    string     `json:"image_url"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

// CreatePostResult reports what the create produced: exactly one of Post or
// Scheduled is set.
type CreatePostResult struct {
	Post      *models.Post          `json:"post,omitempty"`
	Scheduled *models.ScheduledPost `json:"scheduled_post,omitempty"`
}

// CreatePost publishes immediately unless scheduled for later.
func (s *Service) CreatePost(ctx context.Context, userID uint, in CreatePostInput) (*CreatePostResult, error) {
	content := s.sanitize.Sanitize(in.Content)
	if content == "" {
		return nil, apperr.Validationf("post content is required")
	}
	if len(content) > 5000 {
		return nil, apperr.Validationf("post content must be at most 5000 characters")
	}

	db := s.db.WithContext(ctx)

	if in.ScheduledAt != nil && in.ScheduledAt.After(time.Now()) {
		sp := &models.ScheduledPost{
			UserID:      userID,
			Content:     content,
			ImageURL:    in.ImageURL,
			ScheduledAt: *in.ScheduledAt,
			Status:      models.SchedulePending,
		}
		if err := db.Create(sp).Error; err != nil {
			return nil, fmt.Errorf("scheduling post: %w", err)
		}
		return &CreatePostResult{Scheduled: sp}, nil
	}

	post := &models.Post{
		UserID:   userID,
		Content:  content,
		ImageURL: in.ImageURL,
	}
	if err := db.Create(post).Error; err != nil {
		return nil, fmt.Errorf("creating post: %w", err)
	}
	return &CreatePostResult{Post: post}, nil
}

// CreateComment adds a comment to a visible post.
func (s *Service) CreateComment(ctx context.Context, userID, postID uint, content string) (*models.Comment, error) {
	content = s.sanitize.Sanitize(content)
	if content == "" {
		return nil, apperr.Validationf("comment content is required")
	}
	if len(content) > 2000 {
		return nil, apperr.Validationf("comment must be at most 2000 characters")
	}

	db := s.db.WithContext(ctx)
	if err := requireVisible(db, &models.Post{}, postID); err != nil {
		return nil, err
	}

	comment := &models.Comment{PostID: postID, UserID: userID, Content: content}
	if err := db.Create(comment).Error; err != nil {
		return nil, fmt.Errorf("creating comment: %w", err)
	}
	return comment, nil
}

// CreateShopInput is a shop directory submission.
type CreateShopInput struct {
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Description string  `json:"description"`
}

// CreateShop lists a new shop.
func (s *Service) CreateShop(ctx context.Context, userID uint, in CreateShopInput) (*models.Shop, error) {
	in.Name = s.sanitize.Sanitize(in.Name)
	if in.Name == "" {
		return nil, apperr.Validationf("shop name is required")
	}
	if in.Latitude < -90 || in.Latitude > 90 || in.Longitude < -180 || in.Longitude > 180 {
		return nil, apperr.Validationf("invalid coordinates")
	}

	shop := &models.Shop{
		UserID:      userID,
		Name:        in.Name,
		Address:     s.sanitize.Sanitize(in.Address),
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Description: s.sanitize.Sanitize(in.Description),
	}
	if err := s.db.WithContext(ctx).Create(shop).Error; err != nil {
		return nil, fmt.Errorf("creating shop: %w", err)
	}
	return shop, nil
}

// CreateEventInput is an event listing.
type CreateEventInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"starts_at"`
}

// CreateEvent lists a new event.
func (s *Service) CreateEvent(ctx context.Context, userID uint, in CreateEventInput) (*models.Event, error) {
	in.Title = s.sanitize.Sanitize(in.Title)
	if in.Title == "" {
		return nil, apperr.Validationf("event title is required")
	}
	if in.StartsAt.IsZero() {
		return nil, apperr.Validationf("event start time is required")
	}

	event := &models.Event{
		UserID:      userID,
		Title:       in.Title,
		Description: s.sanitize.Sanitize(in.Description),
		Location:    s.sanitize.Sanitize(in.Location),
		StartsAt:    in.StartsAt,
	}
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return nil, fmt.Errorf("creating event: %w", err)
	}
	return event, nil
}

// CreateReview rates a visible shop. One review per user per shop.
func (s *Service) CreateReview(ctx context.Context, userID, shopID uint, rating int, body string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, apperr.Validationf("rating must be between 1 and 5")
	}

	db := s.db.WithContext(ctx)
	if err := requireVisible(db, &models.Shop{}, shopID); err != nil {
		return nil, err
	}

	var existing int64
	err := db.Model(&models.Review{}).
		Where("shop_id = ? AND user_id = ?", shopID, userID).
		Count(&existing).Error
	if err != nil {
		return nil, fmt.Errorf("checking existing reviews: %w", err)
	}
	if existing > 0 {
		return nil, apperr.Validationf("you have already reviewed this shop")
	}

	review := &models.Review{
		ShopID: shopID,
		UserID: userID,
		Rating: rating,
		Body:   s.sanitize.Sanitize(body),
	}
	if err := db.Create(review).Error; err != nil {
		return nil, fmt.Errorf("creating review: %w", err)
	}
	return review, nil
}

// Follow adds userID to followeeID's audience. Following twice is a no-op.
func (s *Service) Follow(ctx context.Context, userID, followeeID uint) error {
	if userID == followeeID {
		return apperr.Validationf("you cannot follow yourself")
	}

	db := s.db.WithContext(ctx)

	var followee models.User
	err := db.Select("id").First(&followee, followeeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("loading user %d: %w", followeeID, err)
	}

	var existing int64
	err = db.Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ?", userID, followeeID).
		Count(&existing).Error
	if err != nil {
		return fmt.Errorf("checking follow: %w", err)
	}
	if existing > 0 {
		return nil
	}

	follow := &models.Follow{FollowerID: userID, FolloweeID: followeeID}
	if err := db.Create(follow).Error; err != nil {
		return fmt.Errorf("creating follow: %w", err)
	}
	return nil
}

// Unfollow removes the edge. Unfollowing someone never followed is a no-op.
func (s *Service) Unfollow(ctx context.Context, userID, followeeID uint) error {
	err := s.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", userID, followeeID).
		Delete(&models.Follow{}).Error
	if err != nil {
		return fmt.Errorf("deleting follow: %w", err)
	}
	return nil
}

// TimelinePage is one page of the home feed.
type TimelinePage struct {
	Posts      []models.Post `json:"posts"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// Timeline returns posts by the user and everyone they follow, newest
// first, hidden posts excluded. cursor is the opaque value from the
// previous page; empty starts at the top.
func (s *Service) Timeline(ctx context.Context, userID uint, cursor string, limit int) (*TimelinePage, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	db := s.db.WithContext(ctx)

	var followees []uint
	err := db.Model(&models.Follow{}).
		Where("follower_id = ?", userID).
		Pluck("followee_id", &followees).Error
	if err != nil {
		return nil, fmt.Errorf("loading follows: %w", err)
	}
	authors := append(followees, userID)

	q := db.Where("user_id IN ? AND is_hidden = ?", authors, false)
	if cursor != "" {
		beforeID, err := decodeCursor(cursor)
		if err != nil {
			return nil, apperr.Validationf("invalid cursor")
		}
		q = q.Where("id < ?", beforeID)
	}

	posts := []models.Post{}
	// One extra row decides whether another page exists.
	if err := q.Order("id DESC").Limit(limit + 1).Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("loading timeline: %w", err)
	}

	page := &TimelinePage{}
	if len(posts) > limit {
		posts = posts[:limit]
		page.NextCursor = encodeCursor(posts[len(posts)-1].ID)
	}
	page.Posts = posts
	return page, nil
}

func encodeCursor(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func decodeCursor(cursor string) (uint, error) {
	id, err := strconv.ParseUint(cursor, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// requireVisible returns ErrNotFound unless the row exists and is not
// hidden. Hidden content is indistinguishable from absent content to
// regular users.
func requireVisible(db *gorm.DB, model interface{}, id uint) error {
	var row struct{ IsHidden bool }
	err := db.Model(model).Select("is_hidden").Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("loading target %d: %w", id, err)
	}
	if row.IsHidden {
		return apperr.ErrNotFound
	}
	return nil
}
