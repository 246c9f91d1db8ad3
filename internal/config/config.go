package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port        string
	Environment string
	LogLevel    string

	// Database
	DatabaseURL string

	// Auth
	JWTSecret  string
	CronSecret string

	// Background Workers
	WorkerCount       int
	EnableScheduler   bool
	PayoutInterval    time.Duration
	ReconcileInterval time.Duration
	PayoutPayeeDelay  time.Duration

	// CORS
	AllowedOrigins []string

	// Email (Resend)
	ResendAPIKey string
	FromEmail    string
	OpsEmail     string

	// Sentry
	SentryDSN string

	// Redis (optional, summary cache)
	RedisAddr string

	// Payment rail (Razorpay / RazorpayX)
	RazorpayKeyID     string
	RazorpayKeySecret string
	RazorpayXAccount  string

	// Encryption key for payee bank details at rest
	BankDataKey string

	// Payout policy file (YAML, optional)
	PolicyFile string

	// Generated documents
	StoragePath  string
	DeductorName string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		CronSecret:        getEnv("CRON_SECRET", ""),
		WorkerCount:       getEnvAsInt("WORKER_COUNT", 5),
		EnableScheduler:   getEnvAsBool("ENABLE_SCHEDULER", false),
		PayoutInterval:    getEnvAsDuration("PAYOUT_INTERVAL", 24*time.Hour),
		ReconcileInterval: getEnvAsDuration("RECONCILE_INTERVAL", 6*time.Hour),
		PayoutPayeeDelay:  getEnvAsDuration("PAYOUT_PAYEE_DELAY", 500*time.Millisecond),
		AllowedOrigins:    getEnvAsSlice("ALLOWED_ORIGINS", []string{"*"}),
		ResendAPIKey:      getEnv("RESEND_API_KEY", ""),
		FromEmail:         getEnv("FROM_EMAIL", "payouts@coachpay.app"),
		OpsEmail:          getEnv("OPS_EMAIL", ""),
		SentryDSN:         getEnv("SENTRY_DSN", ""),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RazorpayKeyID:     getEnv("RAZORPAY_KEY_ID", ""),
		RazorpayKeySecret: getEnv("RAZORPAY_KEY_SECRET", ""),
		RazorpayXAccount:  getEnv("RAZORPAYX_ACCOUNT", ""),
		BankDataKey:       getEnv("BANK_DATA_KEY", ""),
		PolicyFile:        getEnv("POLICY_FILE", ""),
		StoragePath:       getEnv("STORAGE_PATH", "./storage"),
		DeductorName:      getEnv("DEDUCTOR_NAME", "CoachPay Technologies Pvt Ltd"),
	}

	// Validate required configuration
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.Environment == "production" {
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		if cfg.BankDataKey == "" {
			return nil, fmt.Errorf("BANK_DATA_KEY is required in production")
		}
	}

	// Development defaults
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-change-in-production"
	}
	if cfg.BankDataKey == "" {
		cfg.BankDataKey = "dev-bank-key-change-in-production"
	}

	return cfg, nil
}

// RailConfigured reports whether payment rail credentials are present
func (c *Config) RailConfigured() bool {
	return c.RazorpayKeyID != "" && c.RazorpayKeySecret != "" && c.RazorpayXAccount != ""
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads an environment variable as integer
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration reads values like "30s" or "6h"
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSlice reads an environment variable as comma-separated slice
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
