package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string

	RedisURL     string
	KafkaBrokers string
	KafkaTopic   string

	// Email provider
	ResendAPIKey string
	EmailFrom    string
	StoreBaseURL string

	// Reminder schedule
	Reminder1Delay time.Duration
	Reminder2Delay time.Duration

	// Review incentive
	ReviewDiscountPercent int
	ReviewDiscountTTL     time.Duration

	// Checkout floor: the discounted total may never fall below this
	MinChargeCents int64

	// Rate limiting on cart endpoints
	RateLimit       int
	RateLimitWindow time.Duration
}

func Load() Config {
	// .env is optional; system environment wins when absent
	_ = godotenv.Load()

	return Config{
		Port:                  getEnv("PORT", "8080"),
		Environment:           getEnv("ENVIRONMENT", "development"),
		RedisURL:              getEnv("REDIS_URL", "redis://localhost:6379"),
		KafkaBrokers:          getEnv("KAFKA_BROKERS", "localhost:9092"),
		KafkaTopic:            getEnv("KAFKA_TOPIC", "cart.converted"),
		ResendAPIKey:          os.Getenv("RESEND_API_KEY"),
		EmailFrom:             getEnv("EMAIL_FROM", "My Umrah eSIM <hello@myumrahesim.com>"),
		StoreBaseURL:          getEnv("STORE_BASE_URL", "https://myumrahesim.com"),
		Reminder1Delay:        getDuration("REMINDER1_DELAY", time.Hour),
		Reminder2Delay:        getDuration("REMINDER2_DELAY", 24*time.Hour),
		ReviewDiscountPercent: getInt("REVIEW_DISCOUNT_PERCENT", 20),
		ReviewDiscountTTL:     getDuration("REVIEW_DISCOUNT_TTL", 90*24*time.Hour),
		MinChargeCents:        int64(getInt("MIN_CHARGE_CENTS", 50)),
		RateLimit:             getInt("RATE_LIMIT", 30),
		RateLimitWindow:       getDuration("RATE_LIMIT_WINDOW", time.Minute),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
