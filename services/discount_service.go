package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/omaree-johnson/myumrahesim-sub002/apperrors"
	"github.com/omaree-johnson/myumrahesim-sub002/models"
	"github.com/omaree-johnson/myumrahesim-sub002/repository"

	"go.uber.org/zap"
)

// codeAlphabet omits 0/O/1/I/L so codes survive being read aloud or typed
// from a phone screen.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const (
	codeSuffixLength     = 6
	codeCollisionRetries = 5
)

// ComputeFloorClampedDiscount applies percentOff to totalCents without
// letting the discounted total drop below minTotalCents. When the total is
// already below the floor the discount is forced to zero and the total
// passes through unchanged. Rounding is half-up on the desired discount
// only; the clamp itself never rounds.
func ComputeFloorClampedDiscount(totalCents int64, percentOff int, minTotalCents int64) models.DiscountCalculation {
	desired := (totalCents*int64(percentOff) + 50) / 100

	maxPermissible := totalCents - minTotalCents
	if maxPermissible < 0 {
		maxPermissible = 0
	}

	discount := desired
	if discount > maxPermissible {
		discount = maxPermissible
	}

	return models.DiscountCalculation{
		DiscountAmountCents:  discount,
		DiscountedTotalCents: totalCents - discount,
	}
}

// CreateDiscountCodeSpec describes the code to mint.
type CreateDiscountCodeSpec struct {
	PercentOff              int
	AppliesTo               string
	CreatedReason           string
	CreatedForTransactionID *string
	CreatedForEmail         *string
	ExpiresAt               *time.Time
}

// DiscountService owns the discount-code lifecycle: issuance with collision
// retry and exactly-once redemption.
type DiscountService interface {
	CreateDiscountCode(ctx context.Context, spec CreateDiscountCodeSpec) (*models.DiscountCode, error)
	RedeemDiscountCode(ctx context.Context, code, transactionID string) (*models.DiscountCode, error)
}

type discountService struct {
	repo   repository.DiscountCodeRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewDiscountService(repo repository.DiscountCodeRepository, logger *zap.Logger) DiscountService {
	return &discountService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// CreateDiscountCode mints a unique single-use code. Collisions with existing
// codes trigger a bounded regenerate-and-retry; nothing is emailed here.
func (s *discountService) CreateDiscountCode(ctx context.Context, spec CreateDiscountCodeSpec) (*models.DiscountCode, error) {
	if spec.PercentOff < 1 || spec.PercentOff > 100 {
		return nil, apperrors.Validation("percent_off must be between 1 and 100")
	}

	appliesTo := spec.AppliesTo
	if appliesTo == "" {
		appliesTo = models.AppliesToAny
	}

	var lastErr error
	for attempt := 0; attempt < codeCollisionRetries; attempt++ {
		row := &models.DiscountCode{
			Code:                    generateCode(spec.PercentOff),
			PercentOff:              spec.PercentOff,
			AppliesTo:               appliesTo,
			CreatedReason:           spec.CreatedReason,
			CreatedForTransactionID: spec.CreatedForTransactionID,
			CreatedForEmail:         spec.CreatedForEmail,
			ExpiresAt:               spec.ExpiresAt,
		}

		err := s.repo.Insert(ctx, row)
		if err == nil {
			return row, nil
		}
		if !errors.Is(err, repository.ErrDuplicateCode) {
			return nil, apperrors.Persistence("failed to store discount code", err)
		}

		lastErr = err
		s.logger.Warn("discount code collision, regenerating",
			zap.String("code", row.Code),
			zap.Int("attempt", attempt+1),
		)
	}

	return nil, apperrors.Persistence("could not generate a unique discount code", lastErr)
}

// RedeemDiscountCode marks the code redeemed for the given transaction.
// The conditional update means concurrent redeemers get exactly one success;
// every loser is classified by re-reading the row.
func (s *discountService) RedeemDiscountCode(ctx context.Context, code, transactionID string) (*models.DiscountCode, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, apperrors.Validation("code is required")
	}

	now := s.now()
	ok, err := s.repo.RedeemIfUnredeemed(ctx, normalized, transactionID, now)
	if err != nil {
		return nil, apperrors.Persistence("failed to redeem discount code", err)
	}

	row, findErr := s.repo.FindByCode(ctx, normalized)
	if errors.Is(findErr, repository.ErrNotFound) {
		return nil, apperrors.NotFound("discount code not found")
	}
	if findErr != nil {
		return nil, apperrors.Persistence("failed to load discount code", findErr)
	}

	if ok {
		s.logger.Info("discount code redeemed",
			zap.String("code", normalized),
			zap.String("transaction_id", transactionID),
		)
		return row, nil
	}

	if row.Expired(now) {
		return nil, apperrors.Expired("discount code has expired")
	}
	return nil, apperrors.AlreadyRedeemed("discount code has already been redeemed")
}

// NormalizeCode upper-cases and trims a user-entered code so comparisons are
// case-insensitive while storage stays exact.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func generateCode(percentOff int) string {
	buf := make([]byte, codeSuffixLength)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return fmt.Sprintf("SAVE%d-%s", percentOff, string(buf))
}
