package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"listing-sync-service/internal/models"
	"listing-sync-service/internal/secrets"
)

// Config holds all configuration for the listing sync service
type Config struct {
	// Server
	Port        string
	Environment string

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// GCP (optional, store tokens fall back to env vars)
	GCPProjectID string

	// NATS (optional)
	NATSURL string

	// Stores, in processing order
	StoreCodes []string

	// Sync settings
	SyncTimeout       time.Duration
	ValidationRetries int
	ValidationDelay   time.Duration
	ReviewThreshold   float64
	DefaultPageSize   int
	MaxPageSize       int
}

// Load loads configuration from environment variables
func Load() *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))

	return &Config{
		Port:        getEnv("PORT", "8097"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "listing_sync_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		GCPProjectID: getEnv("GCP_PROJECT_ID", ""),
		NATSURL:      getEnv("NATS_URL", ""),

		StoreCodes: splitCodes(getEnv("STORES", "MMS,MZM,TSS,GG,GGL,AMH")),

		SyncTimeout:       getEnvAsDuration("SYNC_TIMEOUT", 4*time.Hour),
		ValidationRetries: getEnvAsInt("VALIDATION_RETRIES", 3),
		ValidationDelay:   getEnvAsDuration("VALIDATION_DELAY", time.Second),
		ReviewThreshold:   getEnvAsFloat("REVIEW_THRESHOLD", 50.0),
		DefaultPageSize:   getEnvAsInt("DEFAULT_PAGE_SIZE", 20),
		MaxPageSize:       getEnvAsInt("MAX_PAGE_SIZE", 100),
	}
}

// InitDB opens the postgres connection used for sync job bookkeeping
func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// ResolveStores builds the store list with API tokens. Tokens come from
// <CODE>_API_TOKEN environment variables, or from Secret Manager when a
// GCP project is configured and the env var is absent. Stores without a
// token are still returned so callers can report them as unconfigured.
func (cfg *Config) ResolveStores(ctx context.Context, sm *secrets.GCPSecretManager) []models.Store {
	stores := make([]models.Store, 0, len(cfg.StoreCodes))
	for _, code := range cfg.StoreCodes {
		token := os.Getenv(code + "_API_TOKEN")
		if token == "" && sm != nil {
			token, _ = sm.GetStoreToken(ctx, code)
		}
		stores = append(stores, models.Store{Code: code, APIToken: token})
	}
	return stores
}

func splitCodes(raw string) []string {
	parts := strings.Split(raw, ",")
	codes := make([]string, 0, len(parts))
	for _, p := range parts {
		if code := strings.ToUpper(strings.TrimSpace(p)); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return floatValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}
