package moderation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"bonlog/internal/apperr"
	"bonlog/internal/metrics"
	"bonlog/internal/models"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// HiddenItem is one entry in the merged hidden content listing.
type HiddenItem struct {
	TargetType  models.TargetType `json:"target_type"`
	TargetID    uint              `json:"target_id"`
	UserID      uint              `json:"user_id"`
	Excerpt     string            `json:"excerpt"`
	HiddenAt    *time.Time        `json:"hidden_at,omitempty"`
	ReportCount int64             `json:"report_count"`
}

// hideableKinds are the content kinds carrying the hidden flag.
var hideableKinds = []models.TargetType{
	models.TargetPost,
	models.TargetComment,
	models.TargetShop,
	models.TargetEvent,
	models.TargetReview,
}

// ListHidden returns hidden content across all kinds, newest hidden first.
// typeFilter narrows the listing to one kind; empty means all.
func (s *Service) ListHidden(ctx context.Context, typeFilter models.TargetType, limit, offset int) ([]HiddenItem, error) {
	kinds := hideableKinds
	if typeFilter != "" {
		if !typeFilter.Valid() || typeFilter == models.TargetUser {
			return nil, apperr.Validationf("cannot list hidden %q", typeFilter)
		}
		kinds = []models.TargetType{typeFilter}
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	db := s.db.WithContext(ctx)

	g, gctx := errgroup.WithContext(ctx)
	buckets := make([][]HiddenItem, len(kinds))
	for i, kind := range kinds {
		g.Go(func() error {
			items, err := collectHidden(s.db.WithContext(gctx), kind)
			if err != nil {
				return err
			}
			buckets[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []HiddenItem
	for _, b := range buckets {
		merged = append(merged, b...)
	}

	// Newest first. Items without a hidden timestamp compare equal and keep
	// their relative order.
	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i].HiddenAt, merged[j].HiddenAt
		if a == nil || b == nil {
			return false
		}
		return a.After(*b)
	})

	if offset >= len(merged) {
		return []HiddenItem{}, nil
	}
	merged = merged[offset:]
	if len(merged) > limit {
		merged = merged[:limit]
	}

	for i := range merged {
		err := db.Model(&models.Report{}).
			Where("target_type = ? AND target_id = ?", merged[i].TargetType, merged[i].TargetID).
			Count(&merged[i].ReportCount).Error
		if err != nil {
			return nil, fmt.Errorf("counting reports: %w", err)
		}
	}
	return merged, nil
}

func collectHidden(db *gorm.DB, tt models.TargetType) ([]HiddenItem, error) {
	items := []HiddenItem{}
	hidden := db.Where("is_hidden = ?", true)

	switch tt {
	case models.TargetPost:
		var rows []models.Post
		if err := hidden.Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("listing hidden posts: %w", err)
		}
		for _, r := range rows {
			items = append(items, HiddenItem{tt, r.ID, r.UserID, excerpt(r.Content), r.HiddenAt, 0})
		}
	case models.TargetComment:
		var rows []models.Comment
		if err := hidden.Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("listing hidden comments: %w", err)
		}
		for _, r := range rows {
			items = append(items, HiddenItem{tt, r.ID, r.UserID, excerpt(r.Content), r.HiddenAt, 0})
		}
	case models.TargetShop:
		var rows []models.Shop
		if err := hidden.Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("listing hidden shops: %w", err)
		}
		for _, r := range rows {
			items = append(items, HiddenItem{tt, r.ID, r.UserID, excerpt(r.Name), r.HiddenAt, 0})
		}
	case models.TargetEvent:
		var rows []models.Event
		if err := hidden.Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("listing hidden events: %w", err)
		}
		for _, r := range rows {
			items = append(items, HiddenItem{tt, r.ID, r.UserID, excerpt(r.Title), r.HiddenAt, 0})
		}
	case models.TargetReview:
		var rows []models.Review
		if err := hidden.Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("listing hidden reviews: %w", err)
		}
		for _, r := range rows {
			items = append(items, HiddenItem{tt, r.ID, r.UserID, excerpt(r.Body), r.HiddenAt, 0})
		}
	}
	return items, nil
}

func excerpt(s string) string {
	const max = 120
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

// Restore makes hidden content visible again, resolves its reports and
// notifications, and records the action. Restoring already-visible content
// succeeds without side effects.
func (s *Service) Restore(ctx context.Context, adminID uint, tt models.TargetType, id uint) error {
	if !tt.Valid() || tt == models.TargetUser {
		return apperr.Validationf("cannot restore %q", tt)
	}

	restored := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row struct{ IsHidden bool }
		err := tx.Model(modelFor(tt)).Select("is_hidden").Where("id = ?", id).Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("loading %s %d: %w", tt, id, err)
		}
		if !row.IsHidden {
			return nil
		}

		err = tx.Model(modelFor(tt)).Where("id = ?", id).
			Updates(map[string]interface{}{"is_hidden": false, "hidden_at": nil}).Error
		if err != nil {
			return fmt.Errorf("restoring %s %d: %w", tt, id, err)
		}

		if err := s.resolveReports(tx, tt, id); err != nil {
			return err
		}
		if err := s.resolveNotifications(tx, tt, id); err != nil {
			return err
		}

		audit := models.AdminLog{
			AdminID:    adminID,
			Action:     models.ActionRestore,
			TargetType: tt,
			TargetID:   id,
		}
		if err := tx.Create(&audit).Error; err != nil {
			return fmt.Errorf("writing audit entry: %w", err)
		}
		restored = true
		return nil
	})
	if err != nil {
		return err
	}

	if restored {
		metrics.AdminActionsTotal.WithLabelValues(string(models.ActionRestore)).Inc()
		s.events.AdminAction(adminID, string(models.ActionRestore), string(tt), id)
	}
	return nil
}

// Purge permanently deletes content together with its dependents, reports,
// and open notifications. Irreversible.
func (s *Service) Purge(ctx context.Context, adminID uint, tt models.TargetType, id uint) error {
	if !tt.Valid() || tt == models.TargetUser {
		return apperr.Validationf("cannot purge %q", tt)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row struct{ ID uint }
		err := tx.Model(modelFor(tt)).Select("id").Where("id = ?", id).Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("loading %s %d: %w", tt, id, err)
		}

		switch tt {
		case models.TargetPost:
			if err := purgeChildren(tx, models.TargetComment, &models.Comment{}, "post_id = ?", id); err != nil {
				return err
			}
		case models.TargetShop:
			if err := purgeChildren(tx, models.TargetReview, &models.Review{}, "shop_id = ?", id); err != nil {
				return err
			}
		}

		if err := tx.Where("target_type = ? AND target_id = ?", tt, id).
			Delete(&models.Report{}).Error; err != nil {
			return fmt.Errorf("deleting reports: %w", err)
		}
		if err := s.resolveNotifications(tx, tt, id); err != nil {
			return err
		}
		if err := tx.Delete(modelFor(tt), id).Error; err != nil {
			return fmt.Errorf("deleting %s %d: %w", tt, id, err)
		}

		audit := models.AdminLog{
			AdminID:    adminID,
			Action:     models.ActionPurge,
			TargetType: tt,
			TargetID:   id,
		}
		if err := tx.Create(&audit).Error; err != nil {
			return fmt.Errorf("writing audit entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.AdminActionsTotal.WithLabelValues(string(models.ActionPurge)).Inc()
	s.events.AdminAction(adminID, string(models.ActionPurge), string(tt), id)
	return nil
}

// purgeChildren deletes dependent rows of a purged parent along with any
// reports filed against them.
func purgeChildren(tx *gorm.DB, childType models.TargetType, childModel interface{}, cond string, parentID uint) error {
	var ids []uint
	if err := tx.Model(childModel).Where(cond, parentID).Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("listing %ss of parent %d: %w", childType, parentID, err)
	}
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("target_type = ? AND target_id IN ?", childType, ids).
		Delete(&models.Report{}).Error; err != nil {
		return fmt.Errorf("deleting %s reports: %w", childType, err)
	}
	if err := tx.Where(cond, parentID).Delete(childModel).Error; err != nil {
		return fmt.Errorf("deleting %ss of parent %d: %w", childType, parentID, err)
	}
	return nil
}

func (s *Service) resolveReports(tx *gorm.DB, tt models.TargetType, id uint) error {
	err := tx.Model(&models.Report{}).
		Where("target_type = ? AND target_id = ? AND status = ?", tt, id, models.ReportPending).
		Update("status", models.ReportResolved).Error
	if err != nil {
		return fmt.Errorf("resolving reports: %w", err)
	}
	return nil
}

func (s *Service) resolveNotifications(tx *gorm.DB, tt models.TargetType, id uint) error {
	err := tx.Model(&models.AdminNotification{}).
		Where("target_type = ? AND target_id = ? AND is_resolved = ?", tt, id, false).
		Updates(map[string]interface{}{"is_resolved": true, "resolved_at": s.now()}).Error
	if err != nil {
		return fmt.Errorf("resolving notifications: %w", err)
	}
	return nil
}

// ListNotifications returns admin notifications, newest first.
func (s *Service) ListNotifications(ctx context.Context, unresolvedOnly bool, limit, offset int) ([]models.AdminNotification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := s.db.WithContext(ctx).Model(&models.AdminNotification{})
	if unresolvedOnly {
		q = q.Where("is_resolved = ?", false)
	}

	notifs := []models.AdminNotification{}
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&notifs).Error
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	return notifs, nil
}

// MarkNotificationRead marks one notification as read.
func (s *Service) MarkNotificationRead(ctx context.Context, id uint) error {
	db := s.db.WithContext(ctx)

	var notif models.AdminNotification
	err := db.First(&notif, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("loading notification %d: %w", id, err)
	}
	if notif.IsRead {
		return nil
	}

	if err := db.Model(&notif).Update("is_read", true).Error; err != nil {
		return fmt.Errorf("marking notification %d read: %w", id, err)
	}
	return nil
}

// ListAdminLog returns audit entries, newest first.
func (s *Service) ListAdminLog(ctx context.Context, limit, offset int) ([]models.AdminLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	entries := []models.AdminLog{}
	err := s.db.WithContext(ctx).
		Order("created_at DESC").Limit(limit).Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("listing admin log: %w", err)
	}
	return entries, nil
}

// SuspendUser blocks a user from logging in, optionally until a given time.
// Open notifications flagging the user are resolved.
func (s *Service) SuspendUser(ctx context.Context, adminID, userID uint, until *time.Time) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.First(&user, userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("loading user %d: %w", userID, err)
		}

		err = tx.Model(&user).
			Updates(map[string]interface{}{"is_suspended": true, "suspended_until": until}).Error
		if err != nil {
			return fmt.Errorf("suspending user %d: %w", userID, err)
		}

		if err := s.resolveNotifications(tx, models.TargetUser, userID); err != nil {
			return err
		}

		audit := models.AdminLog{
			AdminID:    adminID,
			Action:     models.ActionSuspendUser,
			TargetType: models.TargetUser,
			TargetID:   userID,
		}
		if err := tx.Create(&audit).Error; err != nil {
			return fmt.Errorf("writing audit entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.AdminActionsTotal.WithLabelValues(string(models.ActionSuspendUser)).Inc()
	s.events.AdminAction(adminID, string(models.ActionSuspendUser), string(models.TargetUser), userID)
	return nil
}

// Stats is a snapshot of moderation-relevant counts.
type Stats struct {
	Users             int64 `json:"users"`
	Posts             int64 `json:"posts"`
	HiddenContent     int64 `json:"hidden_content"`
	PendingReports    int64 `json:"pending_reports"`
	OpenNotifications int64 `json:"open_notifications"`
	PendingScheduled  int64 `json:"pending_scheduled_posts"`
}

// CollectStats counts users, posts, hidden content across all kinds, pending
// reports, open notifications, and queued scheduled posts.
func (s *Service) CollectStats(ctx context.Context) (*Stats, error) {
	db := s.db.WithContext(ctx)
	stats := &Stats{}

	if err := db.Model(&models.User{}).Count(&stats.Users).Error; err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}
	if err := db.Model(&models.Post{}).Count(&stats.Posts).Error; err != nil {
		return nil, fmt.Errorf("counting posts: %w", err)
	}
	for _, kind := range hideableKinds {
		var n int64
		if err := db.Model(modelFor(kind)).Where("is_hidden = ?", true).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("counting hidden %ss: %w", kind, err)
		}
		stats.HiddenContent += n
	}
	err := db.Model(&models.Report{}).
		Where("status = ?", models.ReportPending).
		Count(&stats.PendingReports).Error
	if err != nil {
		return nil, fmt.Errorf("counting pending reports: %w", err)
	}
	err = db.Model(&models.AdminNotification{}).
		Where("is_resolved = ?", false).
		Count(&stats.OpenNotifications).Error
	if err != nil {
		return nil, fmt.Errorf("counting open notifications: %w", err)
	}
	err = db.Model(&models.ScheduledPost{}).
		Where("status = ?", models.SchedulePending).
		Count(&stats.PendingScheduled).Error
	if err != nil {
		return nil, fmt.Errorf("counting scheduled posts: %w", err)
	}
	return stats, nil
}
