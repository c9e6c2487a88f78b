package models

import "time"

// Discount code scope tags.
const (
	AppliesToAny = "any"
)

// Created-reason values recorded on issued codes.
const (
	ReasonReviewIncentive = "review_incentive"
)

// DiscountCode is a single-use percentage promotional code. Redemption is
// enforced by a conditional update on redeemed_at, so two concurrent
// redemption attempts can never both succeed.
type DiscountCode struct {
	ID        int64  `gorm:"primaryKey" json:"-"`
	Code      string `gorm:"uniqueIndex;size:32;not null" json:"code"`
	PercentOff int   `gorm:"not null" json:"percent_off"`
	AppliesTo string `gorm:"size:64;not null;default:any" json:"applies_to"`

	CreatedReason           string  `gorm:"size:64;not null" json:"created_reason"`
	CreatedForTransactionID *string `gorm:"size:128" json:"created_for_transaction_id"`
	CreatedForEmail         *string `gorm:"size:255" json:"created_for_email"`

	ExpiresAt                *time.Time `json:"expires_at"`
	RedeemedAt               *time.Time `json:"redeemed_at"`
	RedeemedForTransactionID *string    `gorm:"size:128" json:"redeemed_for_transaction_id"`

	CreatedAt time.Time `json:"created_at"`
}

func (DiscountCode) TableName() string {
	return "discount_codes"
}

// Expired reports whether the code is past its expiry at the given instant.
func (d *DiscountCode) Expired(now time.Time) bool {
	return d.ExpiresAt != nil && now.After(*d.ExpiresAt)
}

// DiscountCalculation is the transient result of applying a percentage
// discount to a total under a price floor. It is never persisted.
type DiscountCalculation struct {
	DiscountAmountCents  int64 `json:"discount_amount_cents"`
	DiscountedTotalCents int64 `json:"discounted_total_cents"`
}
