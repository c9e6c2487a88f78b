package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/omaree-johnson/myumrahesim-sub002/config"
	"github.com/omaree-johnson/myumrahesim-sub002/controllers"
	"github.com/omaree-johnson/myumrahesim-sub002/database"
	"github.com/omaree-johnson/myumrahesim-sub002/kafka"
	"github.com/omaree-johnson/myumrahesim-sub002/middleware"
	"github.com/omaree-johnson/myumrahesim-sub002/repository"
	"github.com/omaree-johnson/myumrahesim-sub002/routes"
	"github.com/omaree-johnson/myumrahesim-sub002/sender"
	"github.com/omaree-johnson/myumrahesim-sub002/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	cfg := config.Load()

	// Database
	db, err := database.Connect(logger)
	if err != nil {
		logger.Fatal("DB connection failed", zap.Error(err))
	}
	defer database.Close(db)

	// Rate limiter: shared Redis window when available, per-process fallback otherwise
	var limiter middleware.RateLimiter
	if redisClient, err := database.NewRedisClient(cfg.RedisURL); err != nil {
		logger.Warn("Redis unavailable, using in-memory rate limiter", zap.Error(err))
		limiter = middleware.NewMemoryRateLimiter(cfg.RateLimit, cfg.RateLimitWindow)
	} else {
		defer redisClient.Close()
		limiter = middleware.NewRedisRateLimiter(redisClient, cfg.RateLimit, cfg.RateLimitWindow)
	}

	// Email provider
	emailSender, err := sender.NewResendSender(cfg.ResendAPIKey, cfg.EmailFrom)
	if err != nil {
		logger.Fatal("Failed to init email sender", zap.Error(err))
	}

	renderer, err := services.NewTemplateRenderer()
	if err != nil {
		logger.Fatal("Failed to load email templates", zap.Error(err))
	}

	// Conversion events
	producer := kafka.NewProducer(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaTopic, logger)
	defer producer.Close()

	// Dependency injection
	cartRepo := repository.NewCartSessionRepository(db)
	discountRepo := repository.NewDiscountCodeRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	discountService := services.NewDiscountService(discountRepo, logger)
	reminderService := services.NewReminderService(
		cartRepo, emailSender, renderer, producer,
		cfg.Reminder1Delay, cfg.Reminder2Delay,
		cfg.StoreBaseURL, logger,
	)
	reviewService := services.NewReviewService(
		reviewRepo, orderRepo, discountService, emailSender, renderer,
		cfg.ReviewDiscountPercent, cfg.ReviewDiscountTTL, logger,
	)

	cartController := controllers.NewCartController(reminderService, logger)
	reviewController := controllers.NewReviewController(reviewService, logger)
	discountController := controllers.NewDiscountController(discountService, cfg.MinChargeCents, logger)

	// Router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// Request logging
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http_request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	})

	// Request timeout
	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	routes.Register(r, cartController, reviewController, discountController, limiter, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Info("storefront core listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}
