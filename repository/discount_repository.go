package repository

import (
	"context"
	"errors"
	"time"

	"github.com/omaree-johnson/myumrahesim-sub002/models"

	"gorm.io/gorm"
)

// ErrDuplicateCode is returned when an insert collides with an existing code.
var ErrDuplicateCode = errors.New("discount code already exists")

// DiscountCodeRepository persists single-use discount codes. Redemption is a
// conditional update on redeemed_at so exactly one of any set of concurrent
// redeemers wins.
type DiscountCodeRepository interface {
	Insert(ctx context.Context, code *models.DiscountCode) error
	FindByCode(ctx context.Context, code string) (*models.DiscountCode, error)
	RedeemIfUnredeemed(ctx context.Context, code, transactionID string, at time.Time) (bool, error)
}

type discountCodeRepository struct {
	db *gorm.DB
}

func NewDiscountCodeRepository(db *gorm.DB) DiscountCodeRepository {
	return &discountCodeRepository{db: db}
}

func (r *discountCodeRepository) Insert(ctx context.Context, code *models.DiscountCode) error {
	err := r.db.WithContext(ctx).Create(code).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateCode
	}
	return err
}

func (r *discountCodeRepository) FindByCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	var row models.DiscountCode
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// RedeemIfUnredeemed stamps redeemed_at and the redeeming transaction, but
// only while the code is unredeemed and unexpired. The conditional update is
// the sole guard against double redemption.
func (r *discountCodeRepository) RedeemIfUnredeemed(ctx context.Context, code, transactionID string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.DiscountCode{}).
		Where("code = ? AND redeemed_at IS NULL AND (expires_at IS NULL OR expires_at > ?)", code, at).
		Updates(map[string]interface{}{
			"redeemed_at":                 at,
			"redeemed_for_transaction_id": transactionID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
