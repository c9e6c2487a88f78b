package models

import "time"

// Review is a post-purchase product review. The unique index on
// TransactionID is the guard that keeps one order from minting two
// incentive discount codes.
type Review struct {
	ID            int64  `gorm:"primaryKey" json:"id"`
	TransactionID string `gorm:"uniqueIndex;size:128;not null" json:"transaction_id"`
	Rating        int    `gorm:"not null" json:"rating"`
	Title         string `gorm:"size:255" json:"title"`
	Body          string `gorm:"type:text" json:"body"`

	CreatedAt time.Time `json:"created_at"`
}

func (Review) TableName() string {
	return "reviews"
}

// Order is a read-only projection of a completed purchase, written by the
// external fulfillment pipeline. The review flow only consults it to
// authorize the reviewer and to address the incentive email.
type Order struct {
	ID            int64     `gorm:"primaryKey" json:"-"`
	TransactionID string    `gorm:"uniqueIndex;size:128;not null" json:"transaction_id"`
	Email         string    `gorm:"size:255;not null" json:"email"`
	Status        string    `gorm:"size:32;not null" json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

func (Order) TableName() string {
	return "orders"
}

// Order statuses set by the fulfillment pipeline.
const (
	OrderStatusCompleted = "completed"
)
