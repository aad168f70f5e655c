// Package publisher materializes scheduled posts whose time has come.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bonlog/internal/apperr"
	"bonlog/internal/metrics"
	"bonlog/internal/models"
	"bonlog/internal/tracing"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Publisher runs the scheduled-post batch. It is triggered externally (cron
// hitting an internal endpoint) and processes due rows sequentially; one bad
// row is marked failed and never blocks the rest.
type Publisher struct {
	db  *gorm.DB
	now func() time.Time
}

// New creates a Publisher over the relational store.
func New(db *gorm.DB) *Publisher {
	return &Publisher{db: db, now: time.Now}
}

// Result summarizes one batch run.
type Result struct {
	Published int `json:"published"`
	Failed    int `json:"failed"`
}

// PublishDue publishes every pending scheduled post whose time has passed.
// Each row is first claimed with a conditional pending-to-processing update,
// so a crashed or concurrent run can never publish the same row twice.
func (p *Publisher) PublishDue(ctx context.Context) (Result, error) {
	ctx, span := tracing.PublishSpan(ctx)
	defer span.End()

	db := p.db.WithContext(ctx)
	now := p.now()

	var due []models.ScheduledPost
	err := db.Where("status = ? AND scheduled_at <= ?", models.SchedulePending, now).
		Order("scheduled_at ASC").
		Find(&due).Error
	if err != nil {
		err = fmt.Errorf("listing due posts: %w", err)
		tracing.EndWithError(span, err)
		return Result{}, err
	}

	var res Result
	for _, sp := range due {
		claimed, err := p.claim(db, sp.ID)
		if err != nil {
			log.Error().Err(err).Uint("scheduled_post_id", sp.ID).Msg("failed to claim scheduled post")
			res.Failed++
			metrics.ScheduledPublishesTotal.WithLabelValues("failed").Inc()
			continue
		}
		if !claimed {
			// Another run got there first.
			continue
		}

		if err := p.materialize(db, &sp); err != nil {
			log.Error().Err(err).Uint("scheduled_post_id", sp.ID).Msg("failed to publish scheduled post")
			p.markFailed(db, sp.ID, err)
			res.Failed++
			metrics.ScheduledPublishesTotal.WithLabelValues("failed").Inc()
			continue
		}

		res.Published++
		metrics.ScheduledPublishesTotal.WithLabelValues("published").Inc()
	}

	log.Info().
		Int("published", res.Published).
		Int("failed", res.Failed).
		Msg("scheduled post batch finished")
	return res, nil
}

// claim transitions the row from pending to processing. Returns false when
// the row was no longer pending.
func (p *Publisher) claim(db *gorm.DB, id uint) (bool, error) {
	res := db.Model(&models.ScheduledPost{}).
		Where("id = ? AND status = ?", id, models.SchedulePending).
		Update("status", models.ScheduleProcessing)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// materialize creates the live post and finishes the status transition in
// one transaction.
func (p *Publisher) materialize(db *gorm.DB, sp *models.ScheduledPost) error {
	if sp.Content == "" {
		return fmt.Errorf("scheduled post %d has empty content", sp.ID)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		post := models.Post{
			UserID:   sp.UserID,
			Content:  sp.Content,
			ImageURL: sp.ImageURL,
		}
		if err := tx.Create(&post).Error; err != nil {
			return fmt.Errorf("creating post: %w", err)
		}

		err := tx.Model(&models.ScheduledPost{}).
			Where("id = ?", sp.ID).
			Updates(map[string]interface{}{
				"status":            models.SchedulePublished,
				"published_post_id": post.ID,
				"failure_reason":    "",
			}).Error
		if err != nil {
			return fmt.Errorf("marking published: %w", err)
		}
		return nil
	})
}

// markFailed records the failure reason; the row never returns to pending.
func (p *Publisher) markFailed(db *gorm.DB, id uint, cause error) {
	reason := cause.Error()
	if len(reason) > 500 {
		reason = reason[:500]
	}
	err := db.Model(&models.ScheduledPost{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":         models.ScheduleFailed,
			"failure_reason": reason,
		}).Error
	if err != nil {
		log.Error().Err(err).Uint("scheduled_post_id", id).Msg("failed to mark scheduled post failed")
	}
}

// Cancel withdraws one of the user's scheduled posts. Only the pending
// state can be cancelled; a row that already left pending stays immutable.
func (p *Publisher) Cancel(ctx context.Context, userID, id uint) error {
	db := p.db.WithContext(ctx)

	var sp models.ScheduledPost
	err := db.Where("id = ? AND user_id = ?", id, userID).Take(&sp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("loading scheduled post %d: %w", id, err)
	}

	res := db.Model(&models.ScheduledPost{}).
		Where("id = ? AND status = ?", id, models.SchedulePending).
		Update("status", models.ScheduleCancelled)
	if res.Error != nil {
		return fmt.Errorf("cancelling scheduled post %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Validationf("scheduled post is already %s", sp.Status)
	}
	return nil
}
