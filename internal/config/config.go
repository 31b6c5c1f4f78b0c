package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// Supabase
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string
	SupabaseJWTSecret  string

	// Direct Postgres access for the registry import
	DatabaseURL string

	// Scheduled trigger
	CronSecretHash string

	// Similar companies
	SimilaritySizePolicy     string
	SimilaritySourceLimit    int
	SimilarityCandidateLimit int
	PrioritySectors          []string

	// Reports
	ReportBrand string

	// Email
	EmailProvider      string
	MailgunDomain      string
	MailgunAPIKey      string
	MailgunAPIBase     string
	SenderEmail        string
	SenderName         string
	EmailRatePerSecond float64

	// CORS
	AllowedOrigins []string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 4),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		SupabaseJWTSecret:  getEnv("SUPABASE_JWT_SECRET", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		CronSecretHash: getEnv("CRON_SECRET_HASH", ""),

		SimilaritySizePolicy:     getEnv("SIMILARITY_SIZE_POLICY", "weightedSizeScore"),
		SimilaritySourceLimit:    getEnvInt("SIMILARITY_SOURCE_LIMIT", 10),
		SimilarityCandidateLimit: getEnvInt("SIMILARITY_CANDIDATE_LIMIT", 500),
		PrioritySectors:          getEnvList("SIMILARITY_PRIORITY_SECTORS", []string{"46", "47"}),

		ReportBrand: getEnv("REPORT_BRAND", "Spread Checker"),

		EmailProvider:      getEnv("EMAIL_PROVIDER", "log"),
		MailgunDomain:      getEnv("MAILGUN_DOMAIN", ""),
		MailgunAPIKey:      getEnv("MAILGUN_API_KEY", ""),
		MailgunAPIBase:     getEnv("MAILGUN_API_BASE", ""),
		SenderEmail:        getEnv("SENDER_EMAIL", ""),
		SenderName:         getEnv("SENDER_NAME", "Spread Checker"),
		EmailRatePerSecond: getEnvFloat("EMAIL_RATE_PER_SECOND", 5),

		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma-separated value, dropping blanks.
func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
