// Package moderation runs the report pipeline and the admin review console.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bonlog/internal/apperr"
	"bonlog/internal/metrics"
	"bonlog/internal/models"
	"bonlog/internal/seclog"
	"bonlog/internal/tracing"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// AlertMailer notifies an operator address about auto-hidden content.
// *email.Sender satisfies this.
type AlertMailer interface {
	Enabled() bool
	AdminEmail() string
	Send(to, subject, body string) error
}

// Service records user reports, applies the auto-hide threshold, and backs
// the admin console.
type Service struct {
	db        *gorm.DB
	events    *seclog.Logger
	threshold int
	now       func() time.Time
	mailer    AlertMailer
}

// NewService creates the moderation service. threshold is the report count
// at which content is hidden automatically; values below 1 fall back to 5.
func NewService(db *gorm.DB, events *seclog.Logger, threshold int) *Service {
	if threshold < 1 {
		threshold = 5
	}
	return &Service{
		db:        db,
		events:    events,
		threshold: threshold,
		now:       time.Now,
	}
}

// CreateReportInput is a user-submitted complaint.
type CreateReportInput struct {
	TargetType  models.TargetType   `json:"target_type"`
	TargetID    uint                `json:"target_id"`
	Reason      models.ReportReason `json:"reason"`
	Description string              `json:"description"`
}

// CreateReport records a report and, when the target's report count reaches
// the threshold, hides the target and notifies admins. The hide is a
// conditional visible-to-hidden update, so two reports racing across the
// threshold produce exactly one notification.
func (s *Service) CreateReport(ctx context.Context, reporterID uint, in CreateReportInput) (*models.Report, error) {
	ctx, span := tracing.ReportSpan(ctx, string(in.TargetType), in.TargetID)
	defer span.End()

	if !in.TargetType.Valid() {
		s.events.InvalidInput("target_type", string(in.TargetType))
		return nil, apperr.Validationf("unknown target type %q", in.TargetType)
	}
	if !in.Reason.Valid() {
		s.events.InvalidInput("reason", string(in.Reason))
		return nil, apperr.Validationf("unknown report reason %q", in.Reason)
	}
	if len(in.Description) > 1000 {
		return nil, apperr.Validationf("description must be at most 1000 characters")
	}

	db := s.db.WithContext(ctx)

	ownerID, err := s.ownerOf(db, in.TargetType, in.TargetID)
	if err != nil {
		return nil, err
	}
	if ownerID == reporterID {
		return nil, apperr.Validationf("you cannot report your own content")
	}

	var dup int64
	err = db.Model(&models.Report{}).
		Where("target_type = ? AND target_id = ? AND reporter_id = ? AND status = ?",
			in.TargetType, in.TargetID, reporterID, models.ReportPending).
		Count(&dup).Error
	if err != nil {
		return nil, fmt.Errorf("checking existing reports: %w", err)
	}
	if dup > 0 {
		return nil, apperr.Validationf("you have already reported this content")
	}

	report := &models.Report{
		TargetType:  in.TargetType,
		TargetID:    in.TargetID,
		ReporterID:  reporterID,
		Reason:      in.Reason,
		Description: in.Description,
		Status:      models.ReportPending,
	}

	var hidden bool
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(report).Error; err != nil {
			return fmt.Errorf("creating report: %w", err)
		}

		var count int64
		err := tx.Model(&models.Report{}).
			Where("target_type = ? AND target_id = ?", in.TargetType, in.TargetID).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("counting reports: %w", err)
		}
		if int(count) < s.threshold {
			return nil
		}

		crossed, err := s.flagTarget(tx, in.TargetType, in.TargetID)
		if err != nil {
			return err
		}
		if !crossed {
			return nil
		}
		hidden = true

		notif := models.AdminNotification{
			TargetType: in.TargetType,
			TargetID:   in.TargetID,
			Message:    fmt.Sprintf("%s %d reached %d reports", in.TargetType, in.TargetID, count),
		}
		if err := tx.Create(&notif).Error; err != nil {
			return fmt.Errorf("creating notification: %w", err)
		}

		audit := models.AdminLog{
			Action:     models.ActionAutoHide,
			TargetType: in.TargetType,
			TargetID:   in.TargetID,
			Details:    fmt.Sprintf("hidden automatically after %d reports", count),
		}
		if err := tx.Create(&audit).Error; err != nil {
			return fmt.Errorf("writing audit entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ReportsTotal.Inc()
	if hidden {
		metrics.AutoHidesTotal.WithLabelValues(string(in.TargetType)).Inc()
		s.events.AdminAction(0, string(models.ActionAutoHide), string(in.TargetType), in.TargetID)
		s.mailAutoHideAlert(in.TargetType, in.TargetID)
	}
	return report, nil
}

// WithMailer enables auto-hide email alerts to the operator address.
func (s *Service) WithMailer(m AlertMailer) *Service {
	s.mailer = m
	return s
}

// mailAutoHideAlert is best effort; a mail outage never fails the report.
func (s *Service) mailAutoHideAlert(tt models.TargetType, id uint) {
	if s.mailer == nil || !s.mailer.Enabled() || s.mailer.AdminEmail() == "" {
		return
	}
	subject := fmt.Sprintf("[bonlog] %s %d hidden pending review", tt, id)
	body := fmt.Sprintf(
		"Reports against %s %d crossed the threshold and it was hidden automatically.\n"+
			"Review it in the admin console under hidden content.\n", tt, id)
	if err := s.mailer.Send(s.mailer.AdminEmail(), subject, body); err != nil {
		log.Warn().Err(err).Str("target_type", string(tt)).Uint("target_id", id).
			Msg("failed to send auto-hide alert")
	}
}

// flagTarget transitions the target to hidden and reports whether this call
// made the transition. User targets have no hidden flag; they are flagged
// through the notification itself, at most one unresolved at a time.
func (s *Service) flagTarget(tx *gorm.DB, tt models.TargetType, id uint) (bool, error) {
	if tt == models.TargetUser {
		var open int64
		err := tx.Model(&models.AdminNotification{}).
			Where("target_type = ? AND target_id = ? AND is_resolved = ?", tt, id, false).
			Count(&open).Error
		if err != nil {
			return false, fmt.Errorf("checking open notifications: %w", err)
		}
		return open == 0, nil
	}

	res := tx.Model(modelFor(tt)).
		Where("id = ? AND is_hidden = ?", id, false).
		Updates(map[string]interface{}{"is_hidden": true, "hidden_at": s.now()})
	if res.Error != nil {
		return false, fmt.Errorf("hiding %s %d: %w", tt, id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ownerOf returns the authoring user of the target, or ErrNotFound.
// For user targets the owner is the user themselves.
func (s *Service) ownerOf(db *gorm.DB, tt models.TargetType, id uint) (uint, error) {
	if tt == models.TargetUser {
		var user models.User
		err := db.Select("id").First(&user, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperr.ErrNotFound
		}
		if err != nil {
			return 0, fmt.Errorf("loading user %d: %w", id, err)
		}
		return user.ID, nil
	}

	var row struct{ UserID uint }
	err := db.Model(modelFor(tt)).Select("user_id").Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, apperr.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("loading %s %d: %w", tt, id, err)
	}
	return row.UserID, nil
}

// modelFor maps a content kind to its gorm model. Exhaustive over the
// hideable kinds; TargetUser has no hideable model and must be handled
// before calling.
func modelFor(tt models.TargetType) interface{} {
	switch tt {
	case models.TargetPost:
		return &models.Post{}
	case models.TargetComment:
		return &models.Comment{}
	case models.TargetShop:
		return &models.Shop{}
	case models.TargetEvent:
		return &models.Event{}
	case models.TargetReview:
		return &models.Review{}
	}
	return nil
}
