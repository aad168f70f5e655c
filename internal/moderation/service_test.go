package moderation

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync/atomic"
	"testing"

	"bonlog/internal/apperr"
	"bonlog/internal/database"
	"bonlog/internal/models"
	"bonlog/internal/seclog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	return NewService(db, seclog.New(io.Discard, "test"), 5), db
}

func createUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()

	user := &models.User{
		Email:        name + "@example.com",
		Username:     name,
		PasswordHash: "x",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createPost(t *testing.T, db *gorm.DB, userID uint) *models.Post {
	t.Helper()

	post := &models.Post{UserID: userID, Content: "my juniper this spring"}
	require.NoError(t, db.Create(post).Error)
	return post
}

// reporterSeq keeps generated reporter names unique across reportTimes calls.
var reporterSeq atomic.Uint64

// reportTimes files n reports against the target, each from a fresh user.
func reportTimes(t *testing.T, svc *Service, db *gorm.DB, tt models.TargetType, id uint, n int) {
	t.Helper()

	for i := 0; i < n; i++ {
		reporter := createUser(t, db, fmt.Sprintf("reporter-%s-%d-%d", tt, id, reporterSeq.Add(1)))
		_, err := svc.CreateReport(context.Background(), reporter.ID, CreateReportInput{
			TargetType: tt,
			TargetID:   id,
			Reason:     models.ReasonSpam,
		})
		require.NoError(t, err)
	}
}

func TestCreateReport_Validation(t *testing.T) {
	svc, db := setupService(t)
	owner := createUser(t, db, "owner")
	reporter := createUser(t, db, "reporter")
	post := createPost(t, db, owner.ID)
	ctx := context.Background()

	t.Run("unknown target type", func(t *testing.T) {
		_, err := svc.CreateReport(ctx, reporter.ID, CreateReportInput{
			TargetType: "garden", TargetID: post.ID, Reason: models.ReasonSpam,
		})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("unknown reason", func(t *testing.T) {
		_, err := svc.CreateReport(ctx, reporter.ID, CreateReportInput{
			TargetType: models.TargetPost, TargetID: post.ID, Reason: "boring",
		})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("missing target", func(t *testing.T) {
		_, err := svc.CreateReport(ctx, reporter.ID, CreateReportInput{
			TargetType: models.TargetPost, TargetID: 9999, Reason: models.ReasonSpam,
		})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("own content", func(t *testing.T) {
		_, err := svc.CreateReport(ctx, owner.ID, CreateReportInput{
			TargetType: models.TargetPost, TargetID: post.ID, Reason: models.ReasonSpam,
		})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("duplicate pending report", func(t *testing.T) {
		_, err := svc.CreateReport(ctx, reporter.ID, CreateReportInput{
			TargetType: models.TargetPost, TargetID: post.ID, Reason: models.ReasonSpam,
		})
		require.NoError(t, err)

		_, err = svc.CreateReport(ctx, reporter.ID, CreateReportInput{
			TargetType: models.TargetPost, TargetID: post.ID, Reason: models.ReasonHarassment,
		})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestReportThresholdHidesContent(t *testing.T) {
	svc, db := setupService(t)
	owner := createUser(t, db, "owner")
	post := createPost(t, db, owner.ID)

	reportTimes(t, svc, db, models.TargetPost, post.ID, 4)

	var got models.Post
	require.NoError(t, db.First(&got, post.ID).Error)
	assert.False(t, got.IsHidden, "4 reports must not hide the post")
	assert.Nil(t, got.HiddenAt)

	reportTimes(t, svc, db, models.TargetPost, post.ID, 1)

	require.NoError(t, db.First(&got, post.ID).Error)
	assert.True(t, got.IsHidden, "5th report must hide the post")
	require.NotNil(t, got.HiddenAt)

	var notifs []models.AdminNotification
	require.NoError(t, db.Where("target_type = ? AND target_id = ?", models.TargetPost, post.ID).Find(&notifs).Error)
	require.Len(t, notifs, 1)
	assert.False(t, notifs[0].IsResolved)

	var audit []models.AdminLog
	require.NoError(t, db.Where("action = ?", models.ActionAutoHide).Find(&audit).Error)
	require.Len(t, audit, 1)
	assert.Equal(t, uint(0), audit[0].AdminID)
}

func TestAutoHideIsIdempotent(t *testing.T) {
	svc, db := setupService(t)
	owner := createUser(t, db, "owner")
	post := createPost(t, db, owner.ID)

	reportTimes(t, svc, db, models.TargetPost, post.ID, 5)

	// A report beyond the threshold is recorded but does not re-trigger.
	reportTimes(t, svc, db, models.TargetPost, post.ID, 1)

	var reports int64
	require.NoError(t, db.Model(&models.Report{}).
		Where("target_type = ? AND target_id = ?", models.TargetPost, post.ID).
		Count(&reports).Error)
	assert.EqualValues(t, 6, reports)

	var notifs int64
	require.NoError(t, db.Model(&models.AdminNotification{}).
		Where("target_type = ? AND target_id = ?", models.TargetPost, post.ID).
		Count(&notifs).Error)
	assert.EqualValues(t, 1, notifs, "exactly one notification regardless of extra reports")
}

func TestUserTargetFlagsWithoutHiding(t *testing.T) {
	svc, db := setupService(t)
	reported := createUser(t, db, "troublemaker")

	reportTimes(t, svc, db, models.TargetUser, reported.ID, 6)

	var notifs int64
	require.NoError(t, db.Model(&models.AdminNotification{}).
		Where("target_type = ? AND target_id = ?", models.TargetUser, reported.ID).
		Count(&notifs).Error)
	assert.EqualValues(t, 1, notifs)

	var user models.User
	require.NoError(t, db.First(&user, reported.ID).Error)
	assert.False(t, user.IsSuspended, "reports alone never suspend a user")
}

func TestCreateReport_AllHideableKinds(t *testing.T) {
	svc, db := setupService(t)
	owner := createUser(t, db, "owner")

	comment := &models.Comment{PostID: 1, UserID: owner.ID, Content: "c"}
	require.NoError(t, db.Create(comment).Error)
	shop := &models.Shop{UserID: owner.ID, Name: "Bonsai Corner"}
	require.NoError(t, db.Create(shop).Error)
	event := &models.Event{UserID: owner.ID, Title: "Spring Exhibition"}
	require.NoError(t, db.Create(event).Error)
	review := &models.Review{ShopID: shop.ID, UserID: owner.ID, Rating: 1, Body: "r"}
	require.NoError(t, db.Create(review).Error)

	targets := []struct {
		tt models.TargetType
		id uint
	}{
		{models.TargetComment, comment.ID},
		{models.TargetShop, shop.ID},
		{models.TargetEvent, event.ID},
		{models.TargetReview, review.ID},
	}

	for _, target := range targets {
		reportTimes(t, svc, db, target.tt, target.id, 5)

		var row struct{ IsHidden bool }
		require.NoError(t, db.Model(modelFor(target.tt)).
			Select("is_hidden").Where("id = ?", target.id).Take(&row).Error)
		assert.True(t, row.IsHidden, "%s should be hidden at threshold", target.tt)
	}
}
