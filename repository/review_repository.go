package repository

import (
	"context"
	"errors"

	"github.com/omaree-johnson/myumrahesim-sub002/models"

	"gorm.io/gorm"
)

// ErrDuplicateReview is returned when a transaction already has a review.
var ErrDuplicateReview = errors.New("review already exists for transaction")

type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, review *models.Review) error {
	err := r.db.WithContext(ctx).Create(review).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateReview
	}
	return err
}

// OrderRepository is a read-only view over orders written by the external
// fulfillment pipeline.
type OrderRepository interface {
	FindByTransactionID(ctx context.Context, transactionID string) (*models.Order, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) FindByTransactionID(ctx context.Context, transactionID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}
