package controllers

import (
	"net/http"

	"github.com/omaree-johnson/myumrahesim-sub002/apperrors"
	"github.com/omaree-johnson/myumrahesim-sub002/models"
	"github.com/omaree-johnson/myumrahesim-sub002/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DiscountController struct {
	service        services.DiscountService
	minChargeCents int64
	logger         *zap.Logger
}

func NewDiscountController(service services.DiscountService, minChargeCents int64, logger *zap.Logger) *DiscountController {
	return &DiscountController{service: service, minChargeCents: minChargeCents, logger: logger}
}

// Redeem consumes a discount code for a checkout transaction. Exactly one
// of any set of concurrent redemption attempts succeeds.
func (dc *DiscountController) Redeem(c *gin.Context) {
	var req models.RedeemDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Validation("code and transaction_id are required"))
		return
	}

	code, err := dc.service.RedeemDiscountCode(c.Request.Context(), req.Code, req.TransactionID)
	if err != nil {
		dc.logger.Warn("discount redemption rejected",
			zap.String("code", req.Code),
			zap.String("transaction_id", req.TransactionID),
			zap.Error(err),
		)
		respondError(c, err)
		return
	}

	resp := models.RedeemDiscountResponse{OK: true, PercentOff: code.PercentOff}
	if req.TotalCents != nil {
		calc := services.ComputeFloorClampedDiscount(*req.TotalCents, code.PercentOff, dc.minChargeCents)
		resp.DiscountAmountCents = &calc.DiscountAmountCents
		resp.DiscountedTotalCents = &calc.DiscountedTotalCents
	}
	c.JSON(http.StatusOK, resp)
}
