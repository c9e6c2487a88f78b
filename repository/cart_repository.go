package repository

import (
	"context"
	"errors"
	"time"

	"github.com/omaree-johnson/myumrahesim-sub002/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Reminder slots on a cart session.
const (
	ReminderSlot1 = 1
	ReminderSlot2 = 2
)

// ErrNotFound is returned when no row matches the given token or code.
var ErrNotFound = errors.New("record not found")

// CartSessionRepository persists cart sessions. All state-advancing writes
// are conditional on the target column still being null; the database, not
// handler memory, is the concurrency-control point.
type CartSessionRepository interface {
	Upsert(ctx context.Context, token, email string, items models.PlanItems, currency string) (*models.CartSession, error)
	FindByToken(ctx context.Context, token string) (*models.CartSession, error)
	SetReminderIfUnset(ctx context.Context, token string, slot int, messageID string, scheduledAt time.Time) (bool, error)
	MarkConvertedIfActive(ctx context.Context, token string, at time.Time) (bool, error)
}

type cartSessionRepository struct {
	db *gorm.DB
}

func NewCartSessionRepository(db *gorm.DB) CartSessionRepository {
	return &cartSessionRepository{db: db}
}

// Upsert creates the session on first save and refreshes the shopper-editable
// fields on re-save. Reminder and conversion columns are deliberately absent
// from the update list so a re-save can never reset them.
func (r *cartSessionRepository) Upsert(ctx context.Context, token, email string, items models.PlanItems, currency string) (*models.CartSession, error) {
	session := models.CartSession{
		Token:    token,
		Email:    email,
		Items:    items,
		Currency: currency,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "items", "currency", "updated_at"}),
		}).
		Create(&session).Error
	if err != nil {
		return nil, err
	}

	return r.FindByToken(ctx, token)
}

func (r *cartSessionRepository) FindByToken(ctx context.Context, token string) (*models.CartSession, error) {
	var session models.CartSession
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// SetReminderIfUnset records a dispatched reminder's message id and scheduled
// send time, but only while the slot is still empty and the session has not
// converted. Returns false when a concurrent scheduler (or a conversion) won.
func (r *cartSessionRepository) SetReminderIfUnset(ctx context.Context, token string, slot int, messageID string, scheduledAt time.Time) (bool, error) {
	idColumn := "reminder1_email_id"
	atColumn := "reminder1_scheduled_at"
	if slot == ReminderSlot2 {
		idColumn = "reminder2_email_id"
		atColumn = "reminder2_scheduled_at"
	}

	res := r.db.WithContext(ctx).
		Model(&models.CartSession{}).
		Where("token = ? AND "+idColumn+" IS NULL AND converted_at IS NULL", token).
		Updates(map[string]interface{}{
			idColumn: messageID,
			atColumn: scheduledAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkConvertedIfActive stamps converted_at once. Repeat calls and races
// lose the conditional update and report false with no error.
func (r *cartSessionRepository) MarkConvertedIfActive(ctx context.Context, token string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CartSession{}).
		Where("token = ? AND converted_at IS NULL", token).
		Update("converted_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
