package services

import (
	"context"
	"errors"
	"time"

	"github.com/omaree-johnson/myumrahesim-sub002/apperrors"
	"github.com/omaree-johnson/myumrahesim-sub002/models"
	"github.com/omaree-johnson/myumrahesim-sub002/repository"
	"github.com/omaree-johnson/myumrahesim-sub002/sender"

	"go.uber.org/zap"
)

// ReviewService handles post-purchase reviews and the discount incentive
// they unlock: one review per transaction, one code per review.
type ReviewService interface {
	SubmitReview(ctx context.Context, req models.SubmitReviewRequest) (*models.DiscountCode, error)
}

type reviewService struct {
	reviews   repository.ReviewRepository
	orders    repository.OrderRepository
	discounts DiscountService
	email     sender.EmailSender
	renderer  EmailRenderer

	discountPercent int
	discountTTL     time.Duration

	logger *zap.Logger
	now    func() time.Time
}

func NewReviewService(
	reviews repository.ReviewRepository,
	orders repository.OrderRepository,
	discounts DiscountService,
	email sender.EmailSender,
	renderer EmailRenderer,
	discountPercent int,
	discountTTL time.Duration,
	logger *zap.Logger,
) ReviewService {
	return &reviewService{
		reviews:         reviews,
		orders:          orders,
		discounts:       discounts,
		email:           email,
		renderer:        renderer,
		discountPercent: discountPercent,
		discountTTL:     discountTTL,
		logger:          logger,
		now:             time.Now,
	}
}

// reviewEmailData feeds the review-incentive template.
type reviewEmailData struct {
	Code       string
	PercentOff int
	ExpiresAt  *time.Time
}

// SubmitReview records the review and issues a single-use discount code to
// the purchaser. The unique review-per-transaction constraint is the guard
// against the same order minting two codes; a duplicate submission gets
// Conflict and no code.
func (s *reviewService) SubmitReview(ctx context.Context, req models.SubmitReviewRequest) (*models.DiscountCode, error) {
	order, err := s.orders.FindByTransactionID(ctx, req.TransactionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("transaction not found")
	}
	if err != nil {
		return nil, apperrors.Persistence("failed to load order", err)
	}
	if order.Status != models.OrderStatusCompleted {
		return nil, apperrors.Forbidden("reviews are only accepted for completed orders")
	}

	review := &models.Review{
		TransactionID: req.TransactionID,
		Rating:        req.Rating,
		Title:         req.Title,
		Body:          req.Body,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicateReview) {
			return nil, apperrors.Conflict("a review for this transaction already exists")
		}
		return nil, apperrors.Persistence("failed to store review", err)
	}

	expiresAt := s.now().Add(s.discountTTL)
	code, err := s.discounts.CreateDiscountCode(ctx, CreateDiscountCodeSpec{
		PercentOff:              s.discountPercent,
		AppliesTo:               models.AppliesToAny,
		CreatedReason:           models.ReasonReviewIncentive,
		CreatedForTransactionID: &req.TransactionID,
		CreatedForEmail:         &order.Email,
		ExpiresAt:               &expiresAt,
	})
	if err != nil {
		return nil, err
	}

	s.sendIncentiveEmail(ctx, order.Email, code)

	s.logger.Info("review recorded and discount issued",
		zap.String("transaction_id", req.TransactionID),
		zap.String("code", code.Code),
		zap.Int("rating", req.Rating),
	)
	return code, nil
}

// sendIncentiveEmail delivers the code to the purchaser. The code row is
// already committed; a send failure is logged, never rolled back.
func (s *reviewService) sendIncentiveEmail(ctx context.Context, to string, code *models.DiscountCode) {
	subject, html, err := s.renderer.Render(TemplateReviewDiscount, reviewEmailData{
		Code:       code.Code,
		PercentOff: code.PercentOff,
		ExpiresAt:  code.ExpiresAt,
	})
	if err != nil {
		s.logger.Error("failed to render review discount email",
			zap.String("code", code.Code),
			zap.Error(err),
		)
		return
	}

	if _, err := s.email.Send(ctx, sender.Message{To: to, Subject: subject, HTML: html}); err != nil {
		s.logger.Error("failed to send review discount email",
			zap.String("code", code.Code),
			zap.Error(err),
		)
	}
}
