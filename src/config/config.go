package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port     string
	LogLevel string

	RiksbankBaseURL string
	RiksbankTimeout time.Duration
	SeriesDataPath  string

	RateCacheTTL             time.Duration
	RateCacheCleanupInterval time.Duration

	MaxRequestBytes int64

	// ExportHeader is the header line of the produced import file. The
	// reconciliation import expects a different label for the middle
	// column, so it is configuration, not logic.
	ExportHeader string
	// EmitInvalidRows keeps rows whose date or amount failed to parse in
	// the output, carrying their raw source text.
	EmitInvalidRows bool
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	maxRequestBytesStr := getEnv("MAX_REQUEST_BYTES", "10485760")
	maxRequestBytes, err := strconv.ParseInt(maxRequestBytesStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_REQUEST_BYTES format '%s'. Using default 10MB. Error: %v", maxRequestBytesStr, err)
		maxRequestBytes = 10 * 1024 * 1024
	}

	Cfg = &AppConfig{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		RiksbankBaseURL: getEnv("RIKSBANK_BASE_URL", "https://api.riksbank.se/swea/v1"),
		RiksbankTimeout: getEnvAsDuration("RIKSBANK_TIMEOUT", 10*time.Second),
		SeriesDataPath:  getEnv("SERIES_DATA_PATH", "data/series.yaml"),

		RateCacheTTL:             getEnvAsDuration("RATE_CACHE_TTL", time.Hour),
		RateCacheCleanupInterval: getEnvAsDuration("RATE_CACHE_CLEANUP_INTERVAL", 2*time.Hour),

		MaxRequestBytes: maxRequestBytes,

		ExportHeader:    getEnv("EXPORT_HEADER", ""),
		EmitInvalidRows: getEnvAsBool("EMIT_INVALID_ROWS", true),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, RiksbankBaseURL=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.RiksbankBaseURL)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid boolean value for %s ('%s'), using default: %t", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Duration value for %s not set or empty, using default: %s", key, fallback.String())
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
