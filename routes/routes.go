package routes

import (
	"github.com/omaree-johnson/myumrahesim-sub002/controllers"
	"github.com/omaree-johnson/myumrahesim-sub002/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Register wires the storefront-core routes. The mutating cart endpoints sit
// behind the per-IP rate limiter; redemption and reviews validate their own
// uniqueness constraints instead.
func Register(
	r *gin.Engine,
	cart *controllers.CartController,
	review *controllers.ReviewController,
	discount *controllers.DiscountController,
	limiter middleware.RateLimiter,
	logger *zap.Logger,
) {
	limited := r.Group("/")
	limited.Use(middleware.RateLimit(limiter, logger))
	{
		limited.POST("/cart", cart.SaveCart)
		limited.POST("/cart/converted", cart.MarkConverted)
	}

	r.POST("/reviews", review.SubmitReview)
	r.POST("/discounts/redeem", discount.Redeem)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})
}
