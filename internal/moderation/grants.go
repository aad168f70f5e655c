package moderation

import (
	"context"
	"errors"
	"fmt"

	"bonlog/internal/apperr"
	"bonlog/internal/metrics"
	"bonlog/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// IsAdmin reports whether the user holds an unrevoked admin grant. The
// grant is read from the database on every call so revocation takes effect
// on the next request. Lookup failures fail closed.
func (s *Service) IsAdmin(ctx context.Context, userID uint) bool {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.AdminGrant{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Count(&n).Error
	if err != nil {
		log.Warn().Err(err).Uint("user_id", userID).Msg("admin grant lookup failed")
		return false
	}
	return n > 0
}

// RequireAdmin returns ErrPermission unless the user holds an active grant.
func (s *Service) RequireAdmin(ctx context.Context, userID uint) error {
	if !s.IsAdmin(ctx, userID) {
		return apperr.ErrPermission
	}
	return nil
}

// GrantAdmin gives a user admin privileges. Re-granting after a revocation
// reactivates the existing row. granterID zero means a bootstrap grant.
func (s *Service) GrantAdmin(ctx context.Context, granterID, userID uint, note string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.First(&user, userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("loading user %d: %w", userID, err)
		}

		var grant models.AdminGrant
		err = tx.Where("user_id = ?", userID).Take(&grant).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			grant = models.AdminGrant{UserID: userID, GrantedBy: granterID, Note: note}
			if err := tx.Create(&grant).Error; err != nil {
				return fmt.Errorf("creating grant: %w", err)
			}
		case err != nil:
			return fmt.Errorf("loading grant: %w", err)
		case grant.RevokedAt == nil:
			// Already active.
			return nil
		default:
			err = tx.Model(&grant).
				Updates(map[string]interface{}{"revoked_at": nil, "granted_by": granterID, "note": note}).Error
			if err != nil {
				return fmt.Errorf("reactivating grant: %w", err)
			}
		}

		audit := models.AdminLog{
			AdminID:    granterID,
			Action:     models.ActionGrantAdmin,
			TargetType: models.TargetUser,
			TargetID:   userID,
			Details:    note,
		}
		if err := tx.Create(&audit).Error; err != nil {
			return fmt.Errorf("writing audit entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.AdminActionsTotal.WithLabelValues(string(models.ActionGrantAdmin)).Inc()
	s.events.AdminAction(granterID, string(models.ActionGrantAdmin), string(models.TargetUser), userID)
	return nil
}

// RevokeAdmin withdraws a user's admin privileges.
func (s *Service) RevokeAdmin(ctx context.Context, adminID, userID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.AdminGrant{}).
			Where("user_id = ? AND revoked_at IS NULL", userID).
			Update("revoked_at", s.now())
		if res.Error != nil {
			return fmt.Errorf("revoking grant: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.ErrNotFound
		}

		audit := models.AdminLog{
			AdminID:    adminID,
			Action:     models.ActionRevokeAdmin,
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

	metrics.AdminActionsTotal.WithLabelValues(string(models.ActionRevokeAdmin)).Inc()
	s.events.AdminAction(adminID, string(models.ActionRevokeAdmin), string(models.TargetUser), userID)
	return nil
}
