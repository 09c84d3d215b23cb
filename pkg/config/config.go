package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	Environment string
	ServerPort  int
	LogLevel    string

	MongoURI string
	MongoDB  string

	StorageEndpoint  string
	StorageRegion    string
	StorageBucket    string
	StorageAccessKey string
	StorageSecretKey string
	StoragePublicURL string

	ClassifierURL     string
	ClassifierTimeout time.Duration

	JWTSecret string
	TokenTTL  time.Duration

	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
	MailFrom    string
	FrontendURL string

	RedisURL string

	// OTLPEndpoint enables tracing when set; empty keeps it a no-op.
	OTLPEndpoint string

	CORSAllowedOrigins []string

	// TrustProxyHeaders keys rate limiting on X-Forwarded-For. Enable only
	// behind a proxy that strips client-supplied forwarding headers.
	TrustProxyHeaders bool

	StatsIntervalMinutes int
	AuthRateLimit        int
	AuthRateWindow       time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	classifierTimeout, err := strconv.Atoi(getEnv("CLASSIFIER_TIMEOUT_SECONDS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLASSIFIER_TIMEOUT_SECONDS: %w", err)
	}

	tokenTTLHours, err := strconv.Atoi(getEnv("TOKEN_TTL_HOURS", "168"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL_HOURS: %w", err)
	}

	statsInterval, err := strconv.Atoi(getEnv("STATS_INTERVAL_MINUTES", "1"))
	if err != nil {
		return nil, fmt.Errorf("invalid STATS_INTERVAL_MINUTES: %w", err)
	}

	authRateLimit, err := strconv.Atoi(getEnv("AUTH_RATE_LIMIT", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_RATE_LIMIT: %w", err)
	}

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  port,
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		MongoURI: getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGODB_DATABASE", "alertx"),

		StorageEndpoint:  getEnv("STORAGE_ENDPOINT", "http://localhost:9000"),
		StorageRegion:    getEnv("STORAGE_REGION", "us-east-1"),
		StorageBucket:    getEnv("STORAGE_BUCKET", "alertx-evidence"),
		StorageAccessKey: getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
		StorageSecretKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
		StoragePublicURL: getEnv("STORAGE_PUBLIC_URL", "http://localhost:9000/alertx-evidence"),

		ClassifierURL:     getEnv("CLASSIFIER_URL", "http://localhost:6000"),
		ClassifierTimeout: time.Duration(classifierTimeout) * time.Second,

		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTL:  time.Duration(tokenTTLHours) * time.Hour,

		SMTPHost:    getEnv("SMTP_HOST", "localhost"),
		SMTPPort:    smtpPort,
		SMTPUser:    os.Getenv("SMTP_USER"),
		SMTPPass:    os.Getenv("SMTP_PASS"),
		MailFrom:    getEnv("MAIL_FROM", "no-reply@alertx.local"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		RedisURL: os.Getenv("REDIS_URL"),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		TrustProxyHeaders: getEnv("TRUST_PROXY_HEADERS", "false") == "true",

		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),

		StatsIntervalMinutes: statsInterval,
		AuthRateLimit:        authRateLimit,
		AuthRateWindow:       time.Minute,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
