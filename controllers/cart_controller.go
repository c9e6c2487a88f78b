package controllers

import (
	"net/http"

	"github.com/omaree-johnson/myumrahesim-sub002/apperrors"
	"github.com/omaree-johnson/myumrahesim-sub002/models"
	"github.com/omaree-johnson/myumrahesim-sub002/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CartController struct {
	service services.ReminderService
	logger  *zap.Logger
}

func NewCartController(service services.ReminderService, logger *zap.Logger) *CartController {
	return &CartController{service: service, logger: logger}
}

// SaveCart upserts the shopper's cart and accepts reminder scheduling.
// The HTTP contract is "scheduling accepted": dispatch hiccups are logged
// server-side and do not fail the save.
func (cc *CartController) SaveCart(c *gin.Context) {
	var req models.SaveCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Validation("invalid save-cart payload"))
		return
	}

	session, err := cc.service.SaveOrUpdateCart(c.Request.Context(), req)
	if err != nil {
		cc.logger.Error("save cart failed", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SaveCartResponse{OK: true, Token: session.Token})
}

// MarkConverted records a completed purchase for the session. Calling it
// again for the same token is a no-op, not an error.
func (cc *CartController) MarkConverted(c *gin.Context) {
	var req models.MarkConvertedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Validation("token is required"))
		return
	}

	if err := cc.service.MarkConverted(c.Request.Context(), req.Token); err != nil {
		cc.logger.Error("mark converted failed",
			zap.String("token", req.Token),
			zap.Error(err),
		)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// respondError maps an application error onto the wire without leaking
// internal detail.
func respondError(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	c.AbortWithStatusJSON(appErr.Code, appErr)
}
