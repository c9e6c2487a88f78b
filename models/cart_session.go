package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// PlanItem is one line of an unconverted cart: a connectivity plan offer
// plus the display fields the reminder emails need.
type PlanItem struct {
	OfferID    string `json:"offer_id" binding:"required"`
	Name       string `json:"name" binding:"required"`
	PriceLabel string `json:"price_label"`
	Quantity   int    `json:"quantity" binding:"required,min=1"`
}

// PlanItems is stored as a JSONB column on the session row.
type PlanItems []PlanItem

func (p PlanItems) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *PlanItems) Scan(value interface{}) error {
	if value == nil {
		*p = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			b = []byte(s)
		} else {
			return fmt.Errorf("unsupported type for PlanItems: %T", value)
		}
	}
	return json.Unmarshal(b, p)
}

// CartSession is one shopper's unconverted cart, keyed by an opaque token.
// The token is the sole external handle; sessions are never enumerated.
//
// Reminder and conversion columns are write-once (null -> set) and are only
// ever advanced through conditional updates, so concurrent schedulers cannot
// double-send and a converted session never receives further reminders.
type CartSession struct {
	ID       int64     `gorm:"primaryKey" json:"-"`
	Token    string    `gorm:"uniqueIndex;size:64;not null" json:"token"`
	Email    string    `gorm:"size:255;not null" json:"email"`
	Items    PlanItems `gorm:"type:jsonb" json:"items"`
	Currency string    `gorm:"size:8;not null;default:USD" json:"currency"`

	Reminder1EmailID     *string    `gorm:"size:128" json:"reminder1_email_id"`
	Reminder1ScheduledAt *time.Time `json:"reminder1_scheduled_at"`
	Reminder2EmailID     *string    `gorm:"size:128" json:"reminder2_email_id"`
	Reminder2ScheduledAt *time.Time `json:"reminder2_scheduled_at"`
	ConvertedAt          *time.Time `json:"converted_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CartSession) TableName() string {
	return "cart_sessions"
}

// Converted reports whether the session has reached its terminal state.
func (s *CartSession) Converted() bool {
	return s.ConvertedAt != nil
}
