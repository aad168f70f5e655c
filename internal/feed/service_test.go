package feed

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"bonlog/internal/apperr"
	"bonlog/internal/database"
	"bonlog/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupFeed(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	return NewService(db), db
}

func createUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()

	user := &models.User{Email: name + "@example.com", Username: name, PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestCreatePost(t *testing.T) {
	svc, db := setupFeed(t)
	user := createUser(t, db, "grower")
	ctx := context.Background()

	t.Run("immediate", func(t *testing.T) {
		res, err := svc.CreatePost(ctx, user.ID, CreatePostInput{Content: "new maple today"})
		require.NoError(t, err)
		require.NotNil(t, res.Post)
		assert.Nil(t, res.Scheduled)
	})

	t.Run("scheduled for later", func(t *testing.T) {
		at := time.Now().Add(time.Hour)
		res, err := svc.CreatePost(ctx, user.ID, CreatePostInput{Content: "later", ScheduledAt: &at})
		require.NoError(t, err)
		require.NotNil(t, res.Scheduled)
		assert.Nil(t, res.Post)
		assert.Equal(t, models.SchedulePending, res.Scheduled.Status)

		var posts int64
		require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
		assert.EqualValues(t, 1, posts, "scheduled posts are not live yet")
	})

	t.Run("scheduled time in the past publishes now", func(t *testing.T) {
		at := time.Now().Add(-time.Hour)
		res, err := svc.CreatePost(ctx, user.ID, CreatePostInput{Content: "overdue", ScheduledAt: &at})
		require.NoError(t, err)
		require.NotNil(t, res.Post)
	})

	t.Run("markup is stripped", func(t *testing.T) {
		res, err := svc.CreatePost(ctx, user.ID, CreatePostInput{
			Content: `check <script>alert(1)</script>this out`,
		})
		require.NoError(t, err)
		assert.NotContains(t, res.Post.Content, "<script>")
		assert.Contains(t, res.Post.Content, "this out")
	})

	t.Run("empty after sanitizing", func(t *testing.T) {
		_, err := svc.CreatePost(ctx, user.ID, CreatePostInput{Content: "<script>only</script>"})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestCreateComment(t *testing.T) {
	svc, db := setupFeed(t)
	author := createUser(t, db, "author")
	commenter := createUser(t, db, "commenter")
	ctx := context.Background()

	res, err := svc.CreatePost(ctx, author.ID, CreatePostInput{Content: "styling question"})
	require.NoError(t, err)

	comment, err := svc.CreateComment(ctx, commenter.ID, res.Post.ID, "try a clip and grow")
	require.NoError(t, err)
	assert.Equal(t, res.Post.ID, comment.PostID)

	t.Run("missing post", func(t *testing.T) {
		_, err := svc.CreateComment(ctx, commenter.ID, 9999, "hi")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("hidden post looks absent", func(t *testing.T) {
		now := time.Now()
		require.NoError(t, db.Model(res.Post).
			Updates(map[string]interface{}{"is_hidden": true, "hidden_at": now}).Error)

		_, err := svc.CreateComment(ctx, commenter.ID, res.Post.ID, "hello?")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestCreateShopAndReview(t *testing.T) {
	svc, db := setupFeed(t)
	owner := createUser(t, db, "owner")
	reviewer := createUser(t, db, "reviewer")
	ctx := context.Background()

	shop, err := svc.CreateShop(ctx, owner.ID, CreateShopInput{
		Name: "Green Valley Bonsai", Latitude: 35.6, Longitude: 139.7,
	})
	require.NoError(t, err)

	_, err = svc.CreateShop(ctx, owner.ID, CreateShopInput{Name: "Nowhere", Latitude: 91})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	review, err := svc.CreateReview(ctx, reviewer.ID, shop.ID, 5, "great stock")
	require.NoError(t, err)
	assert.Equal(t, 5, review.Rating)

	t.Run("one review per user", func(t *testing.T) {
		_, err := svc.CreateReview(ctx, reviewer.ID, shop.ID, 4, "again")
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("rating bounds", func(t *testing.T) {
		_, err := svc.CreateReview(ctx, owner.ID, shop.ID, 0, "")
		assert.ErrorIs(t, err, apperr.ErrValidation)
		_, err = svc.CreateReview(ctx, owner.ID, shop.ID, 6, "")
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("missing shop", func(t *testing.T) {
		_, err := svc.CreateReview(ctx, reviewer.ID, 9999, 3, "")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestCreateEvent(t *testing.T) {
	svc, db := setupFeed(t)
	user := createUser(t, db, "organizer")
	ctx := context.Background()

	event, err := svc.CreateEvent(ctx, user.ID, CreateEventInput{
		Title:    "Autumn Exhibition",
		Location: "Community Hall",
		StartsAt: time.Now().Add(30 * 24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "Autumn Exhibition", event.Title)

	_, err = svc.CreateEvent(ctx, user.ID, CreateEventInput{Title: "No date"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestFollow(t *testing.T) {
	svc, db := setupFeed(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	ctx := context.Background()

	require.NoError(t, svc.Follow(ctx, alice.ID, bob.ID))
	require.NoError(t, svc.Follow(ctx, alice.ID, bob.ID), "double follow is a no-op")

	var edges int64
	require.NoError(t, db.Model(&models.Follow{}).Count(&edges).Error)
	assert.EqualValues(t, 1, edges)

	assert.ErrorIs(t, svc.Follow(ctx, alice.ID, alice.ID), apperr.ErrValidation)
	assert.ErrorIs(t, svc.Follow(ctx, alice.ID, 9999), apperr.ErrNotFound)

	require.NoError(t, svc.Unfollow(ctx, alice.ID, bob.ID))
	require.NoError(t, svc.Unfollow(ctx, alice.ID, bob.ID), "double unfollow is a no-op")

	require.NoError(t, db.Model(&models.Follow{}).Count(&edges).Error)
	assert.Zero(t, edges)
}

func TestTimeline(t *testing.T) {
	svc, db := setupFeed(t)
	reader := createUser(t, db, "reader")
	followed := createUser(t, db, "followed")
	stranger := createUser(t, db, "stranger")
	ctx := context.Background()

	require.NoError(t, svc.Follow(ctx, reader.ID, followed.ID))

	for i := 0; i < 3; i++ {
		_, err := svc.CreatePost(ctx, followed.ID, CreatePostInput{Content: fmt.Sprintf("followed %d", i)})
		require.NoError(t, err)
	}
	_, err := svc.CreatePost(ctx, reader.ID, CreatePostInput{Content: "own post"})
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, stranger.ID, CreatePostInput{Content: "stranger post"})
	require.NoError(t, err)

	page, err := svc.Timeline(ctx, reader.ID, "", 20)
	require.NoError(t, err)
	require.Len(t, page.Posts, 4, "own and followed posts only")
	assert.Empty(t, page.NextCursor)
	assert.Equal(t, "own post", page.Posts[0].Content, "newest first")

	t.Run("hidden posts are excluded", func(t *testing.T) {
		now := time.Now()
		require.NoError(t, db.Model(&models.Post{}).
			Where("content = ?", "followed 1").
			Updates(map[string]interface{}{"is_hidden": true, "hidden_at": now}).Error)

		page, err := svc.Timeline(ctx, reader.ID, "", 20)
		require.NoError(t, err)
		assert.Len(t, page.Posts, 3)
	})

	t.Run("cursor pagination walks every page", func(t *testing.T) {
		var all []string
		cursor := ""
		for {
			page, err := svc.Timeline(ctx, reader.ID, cursor, 2)
			require.NoError(t, err)
			for _, p := range page.Posts {
				all = append(all, p.Content)
			}
			if page.NextCursor == "" {
				break
			}
			cursor = page.NextCursor
		}
		assert.Equal(t, []string{"own post", "followed 2", "followed 0"}, all)
	})

	t.Run("invalid cursor", func(t *testing.T) {
		_, err := svc.Timeline(ctx, reader.ID, "not-a-number", 20)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}
