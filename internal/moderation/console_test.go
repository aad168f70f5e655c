package moderation

import (
	"context"
	"testing"
	"time"

	"bonlog/internal/apperr"
	"bonlog/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestore(t *testing.T) {
	svc, db := setupService(t)
	owner := createUser(t, db, "owner")
	admin := createUser(t, db, "admin")
	post := createPost(t, db, owner.ID)
	ctx := context.Background()

	reportTimes(t, svc, db, models.TargetPost, post.ID, 5)

	require.NoError(t, svc.Restore(ctx, admin.ID, models.TargetPost, post.ID))

	var got models.Post
	require.NoError(t, db.First(&got, post.ID).Error)
	assert.False(t, got.IsHidden)
	assert.Nil(t, got.HiddenAt)

	var pending int64
	require.NoError(t, db.Model(&models.Report{}).
		Where("target_type = ? AND target_id = ? AND status = ?",
			models.TargetPost, post.ID, models.ReportPending).
		Count(&pending).Error)
	assert.Zero(t, pending, "restore resolves every pending report")

	var notif models.AdminNotification
	require.NoError(t, db.Where("target_type = ? AND target_id = ?",
		models.TargetPost, post.ID).Take(&notif).Error)
	assert.True(t, notif.IsResolved)
	assert.NotNil(t, notif.ResolvedAt)

	var audits int64
	require.NoError(t, db.Model(&models.AdminLog{}).
		Where("action = ? AND admin_id = ?", models.ActionRestore, admin.ID).
		Count(&audits).Error)
	assert.EqualValues(t, 1, audits)
}

func TestRestoreVisibleContentIsNoop(t *testing.T) {
	svc, db := setupService(t)
	owner := createUser(t, db, "owner")
	admin := createUser(t, db, "admin")
	post := createPost(t, db, owner.ID)

	require.NoError(t, svc.Restore(context.Background(), admin.ID, models.TargetPost, post.ID))

	var audits int64
	require.NoError(t, db.Model(&models.AdminLog{}).
		Where("action = ?", models.ActionRestore).
		Count(&audits).Error)
	assert.Zero(t, audits, "no audit entry for a no-op restore")
}

func TestRestoreErrors(t *testing.T) {
	svc, db := setupService(t)
	admin := createUser(t, db, "admin")
	ctx := context.Background()

	err := svc.Restore(ctx, admin.ID, models.TargetPost, 9999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	err = svc.Restore(ctx, admin.ID, models.TargetUser, admin.ID)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestPurgePostCascadesToComments(t *testing.T) {
	svc, db := setupService(t)
	owner := createUser(t, db, "owner")
	commenter := createUser(t, db, "commenter")
	admin := createUser(t, db, "admin")
	post := createPost(t, db, owner.ID)
	ctx := context.Background()

	comment := &models.Comment{PostID: post.ID, UserID: commenter.ID, Content: "rude remark"}
	require.NoError(t, db.Create(comment).Error)

	reportTimes(t, svc, db, models.TargetPost, post.ID, 5)
	reportTimes(t, svc, db, models.TargetComment, comment.ID, 1)

	require.NoError(t, svc.Purge(ctx, admin.ID, models.TargetPost, post.ID))

	var posts, comments, reports int64
	require.NoError(t, db.Model(&models.Post{}).Where("id = ?", post.ID).Count(&posts).Error)
	require.NoError(t, db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&comments).Error)
	require.NoError(t, db.Model(&models.Report{}).Count(&reports).Error)
	assert.Zero(t, posts)
	assert.Zero(t, comments)
	assert.Zero(t, reports, "reports on the post and its comments are gone")

	var notif models.AdminNotification
	require.NoError(t, db.Where("target_type = ? AND target_id = ?",
		models.TargetPost, post.ID).Take(&notif).Error)
	assert.True(t, notif.IsResolved)

	var audits int64
	require.NoError(t, db.Model(&models.AdminLog{}).
		Where("action = ? AND admin_id = ?", models.ActionPurge, admin.ID).
		Count(&audits).Error)
	assert.EqualValues(t, 1, audits)
}

func TestPurgeShopCascadesToReviews(t *testing.T) {
	svc, db := setupService(t)
	owner := createUser(t, db, "owner")
	reviewer := createUser(t, db, "reviewer")
	admin := createUser(t, db, "admin")
	ctx := context.Background()

	shop := &models.Shop{UserID: owner.ID, Name: "Shady Nursery"}
	require.NoError(t, db.Create(shop).Error)
	review := &models.Review{ShopID: shop.ID, UserID: reviewer.ID, Rating: 1, Body: "spam"}
	require.NoError(t, db.Create(review).Error)
	reportTimes(t, svc, db, models.TargetReview, review.ID, 2)

	require.NoError(t, svc.Purge(ctx, admin.ID, models.TargetShop, shop.ID))

	var shops, reviews, reports int64
	require.NoError(t, db.Model(&models.Shop{}).Where("id = ?", shop.ID).Count(&shops).Error)
	require.NoError(t, db.Model(&models.Review{}).Where("shop_id = ?", shop.ID).Count(&reviews).Error)
	require.NoError(t, db.Model(&models.Report{}).Count(&reports).Error)
	assert.Zero(t, shops)
	assert.Zero(t, reviews)
	assert.Zero(t, reports)
}

func TestPurgeErrors(t *testing.T) {
	svc, db := setupService(t)
	admin := createUser(t, db, "admin")
	ctx := context.Background()

	assert.ErrorIs(t, svc.Purge(ctx, admin.ID, models.TargetPost, 9999), apperr.ErrNotFound)
	assert.ErrorIs(t, svc.Purge(ctx, admin.ID, models.TargetUser, admin.ID), apperr.ErrValidation)
}

func TestListHidden(t *testing.T) {
	svc, db := setupService(t)
	owner := createUser(t, db, "owner")
	ctx := context.Background()

	at := func(minutesAgo int) *time.Time {
		ts := time.Now().Add(-time.Duration(minutesAgo) * time.Minute)
		return &ts
	}
	hidden := func(minutesAgo int) models.Hideable {
		return models.Hideable{IsHidden: true, HiddenAt: at(minutesAgo)}
	}

	require.NoError(t, db.Create(&models.Post{UserID: owner.ID, Content: "oldest", Hideable: hidden(30)}).Error)
	require.NoError(t, db.Create(&models.Post{UserID: owner.ID, Content: "visible"}).Error)
	require.NoError(t, db.Create(&models.Comment{PostID: 1, UserID: owner.ID, Content: "newest", Hideable: hidden(1)}).Error)
	require.NoError(t, db.Create(&models.Shop{UserID: owner.ID, Name: "middle", Hideable: hidden(10)}).Error)
	require.NoError(t, db.Create(&models.Event{UserID: owner.ID, Title: "older", Hideable: hidden(20)}).Error)
	require.NoError(t, db.Create(&models.Review{ShopID: 1, UserID: owner.ID, Rating: 1, Body: "recent", Hideable: hidden(5)}).Error)

	t.Run("merged and sorted newest first", func(t *testing.T) {
		items, err := svc.ListHidden(ctx, "", 50, 0)
		require.NoError(t, err)
		require.Len(t, items, 5)

		excerpts := make([]string, len(items))
		for i, item := range items {
			excerpts[i] = item.Excerpt
		}
		assert.Equal(t, []string{"newest", "recent", "middle", "older", "oldest"}, excerpts)
	})

	t.Run("type filter", func(t *testing.T) {
		items, err := svc.ListHidden(ctx, models.TargetPost, 50, 0)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, models.TargetPost, items[0].TargetType)
	})

	t.Run("limit and offset", func(t *testing.T) {
		items, err := svc.ListHidden(ctx, "", 2, 1)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "recent", items[0].Excerpt)
		assert.Equal(t, "middle", items[1].Excerpt)
	})

	t.Run("offset past the end", func(t *testing.T) {
		items, err := svc.ListHidden(ctx, "", 50, 100)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("user filter rejected", func(t *testing.T) {
		_, err := svc.ListHidden(ctx, models.TargetUser, 50, 0)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestNotifications(t *testing.T) {
	svc, db := setupService(t)
	owner := createUser(t, db, "owner")
	post := createPost(t, db, owner.ID)
	ctx := context.Background()

	reportTimes(t, svc, db, models.TargetPost, post.ID, 5)

	notifs, err := svc.ListNotifications(ctx, true, 50, 0)
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	assert.False(t, notifs[0].IsRead)

	require.NoError(t, svc.MarkNotificationRead(ctx, notifs[0].ID))
	require.NoError(t, svc.MarkNotificationRead(ctx, notifs[0].ID), "marking twice is fine")

	var got models.AdminNotification
	require.NoError(t, db.First(&got, notifs[0].ID).Error)
	assert.True(t, got.IsRead)

	assert.ErrorIs(t, svc.MarkNotificationRead(ctx, 9999), apperr.ErrNotFound)
}

func TestSuspendUser(t *testing.T) {
	svc, db := setupService(t)
	admin := createUser(t, db, "admin")
	target := createUser(t, db, "target")
	ctx := context.Background()

	until := time.Now().Add(48 * time.Hour)
	require.NoError(t, svc.SuspendUser(ctx, admin.ID, target.ID, &until))

	var got models.User
	require.NoError(t, db.First(&got, target.ID).Error)
	assert.True(t, got.IsSuspended)
	require.NotNil(t, got.SuspendedUntil)

	assert.ErrorIs(t, svc.SuspendUser(ctx, admin.ID, 9999, nil), apperr.ErrNotFound)
}

func TestAdminGrants(t *testing.T) {
	svc, db := setupService(t)
	root := createUser(t, db, "root")
	user := createUser(t, db, "user")
	ctx := context.Background()

	assert.False(t, svc.IsAdmin(ctx, user.ID))
	assert.ErrorIs(t, svc.RequireAdmin(ctx, user.ID), apperr.ErrPermission)

	require.NoError(t, svc.GrantAdmin(ctx, root.ID, user.ID, "moderation team"))
	assert.True(t, svc.IsAdmin(ctx, user.ID))
	assert.NoError(t, svc.RequireAdmin(ctx, user.ID))

	// Granting twice is a no-op.
	require.NoError(t, svc.GrantAdmin(ctx, root.ID, user.ID, "again"))

	require.NoError(t, svc.RevokeAdmin(ctx, root.ID, user.ID))
	assert.False(t, svc.IsAdmin(ctx, user.ID), "revocation takes effect immediately")

	assert.ErrorIs(t, svc.RevokeAdmin(ctx, root.ID, user.ID), apperr.ErrNotFound)

	// Re-granting after revocation reactivates the grant.
	require.NoError(t, svc.GrantAdmin(ctx, root.ID, user.ID, "back again"))
	assert.True(t, svc.IsAdmin(ctx, user.ID))

	assert.ErrorIs(t, svc.GrantAdmin(ctx, root.ID, 9999, ""), apperr.ErrNotFound)
}

func TestCollectStats(t *testing.T) {
	svc, db := setupService(t)
	owner := createUser(t, db, "owner")
	post := createPost(t, db, owner.ID)
	ctx := context.Background()

	reportTimes(t, svc, db, models.TargetPost, post.ID, 5)
	require.NoError(t, db.Create(&models.ScheduledPost{
		UserID: owner.ID, Content: "later", ScheduledAt: time.Now(), Status: models.SchedulePending,
	}).Error)

	stats, err := svc.CollectStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 6, stats.Users) // owner + 5 reporters
	assert.EqualValues(t, 1, stats.Posts)
	assert.EqualValues(t, 1, stats.HiddenContent)
	assert.EqualValues(t, 5, stats.PendingReports)
	assert.EqualValues(t, 1, stats.OpenNotifications)
	assert.EqualValues(t, 1, stats.PendingScheduled)
}
