package controllers

import (
	"net/http"

	"github.com/omaree-johnson/myumrahesim-sub002/apperrors"
	"github.com/omaree-johnson/myumrahesim-sub002/models"
	"github.com/omaree-johnson/myumrahesim-sub002/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ReviewController struct {
	service services.ReviewService
	logger  *zap.Logger
}

func NewReviewController(service services.ReviewService, logger *zap.Logger) *ReviewController {
	return &ReviewController{service: service, logger: logger}
}

// SubmitReview records a post-purchase review and returns the issued
// single-use discount code.
func (rc *ReviewController) SubmitReview(c *gin.Context) {
	var req models.SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Validation("invalid review payload"))
		return
	}

	code, err := rc.service.SubmitReview(c.Request.Context(), req)
	if err != nil {
		rc.logger.Warn("review submission rejected",
			zap.String("transaction_id", req.TransactionID),
			zap.Error(err),
		)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SubmitReviewResponse{
		OK:                 true,
		DiscountCode:       code.Code,
		DiscountPercentOff: code.PercentOff,
	})
}
