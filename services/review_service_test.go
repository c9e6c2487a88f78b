package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/omaree-johnson/myumrahesim-sub002/apperrors"
	"github.com/omaree-johnson/myumrahesim-sub002/models"
	"github.com/omaree-johnson/myumrahesim-sub002/repository"
	"github.com/omaree-johnson/myumrahesim-sub002/services"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// ---- mock review / order repositories ----

type mockReviewRepo struct {
	created   []*models.Review
	createErr error
}

func (m *mockReviewRepo) Create(_ context.Context, review *models.Review) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, review)
	return nil
}

type mockOrderRepo struct {
	order *models.Order
	err   error
}

func (m *mockOrderRepo) FindByTransactionID(_ context.Context, _ string) (*models.Order, error) {
	return m.order, m.err
}

// ---- helpers ----

func completedOrder() *models.Order {
	return &models.Order{
		TransactionID: "tx_1",
		Email:         "buyer@example.com",
		Status:        models.OrderStatusCompleted,
	}
}

func newTestReviewService(reviews *mockReviewRepo, orders *mockOrderRepo, discounts *mockDiscountRepo, email *mockEmailSender) services.ReviewService {
	logger, _ := zap.NewDevelopment()
	discountSvc := services.NewDiscountService(discounts, zap.NewNop())
	return services.NewReviewService(
		reviews, orders, discountSvc, email, stubRenderer{},
		20, 90*24*time.Hour, logger,
	)
}

func reviewReq() models.SubmitReviewRequest {
	return models.SubmitReviewRequest{
		TransactionID: "tx_1",
		Rating:        5,
		Title:         "Worked the moment we landed",
		Body:          "Activated in Jeddah airport with no hassle.",
	}
}

// ---- tests ----

func TestSubmitReview_IssuesCodeAndSendsEmail(t *testing.T) {
	reviews := &mockReviewRepo{}
	discounts := newMockDiscountRepo()
	email := &mockEmailSender{}
	svc := newTestReviewService(reviews, &mockOrderRepo{order: completedOrder()}, discounts, email)

	code, err := svc.SubmitReview(context.Background(), reviewReq())

	assert.NoError(t, err)
	assert.Equal(t, 20, code.PercentOff)
	assert.Equal(t, models.ReasonReviewIncentive, code.CreatedReason)
	assert.Equal(t, "tx_1", *code.CreatedForTransactionID)
	assert.Equal(t, "buyer@example.com", *code.CreatedForEmail)
	assert.NotNil(t, code.ExpiresAt)
	assert.Len(t, reviews.created, 1)
	assert.Len(t, email.sent, 1)
	assert.Equal(t, "buyer@example.com", email.sent[0].to)
	assert.Nil(t, email.sent[0].sendAt, "incentive email goes out immediately")
}

func TestSubmitReview_DuplicateGetsConflictAndNoCode(t *testing.T) {
	reviews := &mockReviewRepo{createErr: repository.ErrDuplicateReview}
	discounts := newMockDiscountRepo()
	email := &mockEmailSender{}
	svc := newTestReviewService(reviews, &mockOrderRepo{order: completedOrder()}, discounts, email)

	_, err := svc.SubmitReview(context.Background(), reviewReq())

	appErr := apperrors.From(err)
	assert.Equal(t, apperrors.KindConflict, appErr.Kind)
	assert.Zero(t, discounts.insertCalls, "no second code may be issued")
	assert.Empty(t, email.sent)
}

func TestSubmitReview_UnknownTransaction(t *testing.T) {
	svc := newTestReviewService(&mockReviewRepo{}, &mockOrderRepo{err: repository.ErrNotFound}, newMockDiscountRepo(), &mockEmailSender{})

	_, err := svc.SubmitReview(context.Background(), reviewReq())

	appErr := apperrors.From(err)
	assert.Equal(t, apperrors.KindNotFound, appErr.Kind)
}

func TestSubmitReview_IncompleteOrderForbidden(t *testing.T) {
	order := completedOrder()
	order.Status = "pending"
	svc := newTestReviewService(&mockReviewRepo{}, &mockOrderRepo{order: order}, newMockDiscountRepo(), &mockEmailSender{})

	_, err := svc.SubmitReview(context.Background(), reviewReq())

	appErr := apperrors.From(err)
	assert.Equal(t, apperrors.KindForbidden, appErr.Kind)
}

func TestSubmitReview_EmailFailureDoesNotRollBackCode(t *testing.T) {
	reviews := &mockReviewRepo{}
	discounts := newMockDiscountRepo()
	email := &mockEmailSender{sendErr: assert.AnError}
	svc := newTestReviewService(reviews, &mockOrderRepo{order: completedOrder()}, discounts, email)

	code, err := svc.SubmitReview(context.Background(), reviewReq())

	assert.NoError(t, err, "committed code survives a send failure")
	assert.NotEmpty(t, code.Code)
	assert.Equal(t, 1, discounts.insertCalls)
}
