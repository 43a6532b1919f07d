// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetEmailProvider() string
	GetBrevoAPIKey() string
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// NotificationConfig provides settings for the notification fan-out.
type NotificationConfig interface {
	GetAppBaseURL() string
	GetEmailThrottleCooldown() time.Duration
	GetEmailSendInterval() time.Duration
	GetEmailDeliveryMode() string
	GetEffectTimeout() time.Duration
}

// PushConfig provides settings for Firebase Cloud Messaging.
type PushConfig interface {
	GetFirebaseCredentialsFile() string
	GetFirebaseProjectID() string
	IsPushEnabled() bool
}

// SchedulerConfig provides settings for the asynq queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketInterventionDocuments() string
	IsMinIOEnabled() bool
}

// Email delivery modes.
const (
	DeliveryInline = "inline"
	DeliveryQueued = "queued"
)

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                              string
	HTTPAddr                         string
	DatabaseURL                      string
	JWTAccessSecret                  string
	CORSAllowAll                     bool
	CORSOrigins                      []string
	CORSAllowCreds                   bool
	AppBaseURL                       string
	EmailEnabled                     bool
	EmailProvider                    string
	BrevoAPIKey                      string
	SMTPHost                         string
	SMTPPort                         int
	SMTPUsername                     string
	SMTPPassword                     string
	EmailFromName                    string
	EmailFromAddress                 string
	EmailThrottleCooldown            time.Duration
	EmailSendInterval                time.Duration
	EmailDeliveryMode                string
	EffectTimeout                    time.Duration
	FirebaseCredentialsFile          string
	FirebaseProjectID                string
	RedisURL                         string
	RedisTLSInsecure                 bool
	AsynqQueueName                   string
	AsynqConcurrency                 int
	MinIOEndpoint                    string
	MinIOAccessKey                   string
	MinIOSecretKey                   string
	MinIOUseSSL                      bool
	MinIOMaxFileSize                 int64
	MinioBucketInterventionDocuments string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetEmailProvider() string    { return c.EmailProvider }
func (c *Config) GetBrevoAPIKey() string      { return c.BrevoAPIKey }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// NotificationConfig implementation
func (c *Config) GetAppBaseURL() string                   { return c.AppBaseURL }
func (c *Config) GetEmailThrottleCooldown() time.Duration { return c.EmailThrottleCooldown }
func (c *Config) GetEmailSendInterval() time.Duration     { return c.EmailSendInterval }
func (c *Config) GetEmailDeliveryMode() string            { return c.EmailDeliveryMode }
func (c *Config) GetEffectTimeout() time.Duration         { return c.EffectTimeout }

// PushConfig implementation
func (c *Config) GetFirebaseCredentialsFile() string { return c.FirebaseCredentialsFile }
func (c *Config) GetFirebaseProjectID() string       { return c.FirebaseProjectID }
func (c *Config) IsPushEnabled() bool                { return c.FirebaseCredentialsFile != "" }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string   { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string  { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string  { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool       { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64 { return c.MinIOMaxFileSize }
func (c *Config) GetMinioBucketInterventionDocuments() string {
	return c.MinioBucketInterventionDocuments
}
func (c *Config) IsMinIOEnabled() bool { return c.MinIOEndpoint != "" }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	provider := strings.ToLower(getEnv("EMAIL_PROVIDER", "brevo"))
	brevoAPIKey := getEnv("BREVO_API_KEY", "")
	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")
	switch provider {
	case "smtp":
		emailEnabled = emailEnabled && smtpHost != ""
	default:
		emailEnabled = emailEnabled && brevoAPIKey != ""
	}

	cfg := &Config{
		Env:                              getEnv("APP_ENV", "development"),
		HTTPAddr:                         getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:                      getEnv("DATABASE_URL", ""),
		JWTAccessSecret:                  getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:                     corsAllowAll,
		CORSOrigins:                      corsOrigins,
		CORSAllowCreds:                   strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		AppBaseURL:                       strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:4200"), "/"),
		EmailEnabled:                     emailEnabled,
		EmailProvider:                    provider,
		BrevoAPIKey:                      brevoAPIKey,
		SMTPHost:                         smtpHost,
		SMTPPort:                         mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:                     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:                     getEnv("SMTP_PASSWORD", ""),
		EmailFromName:                    getEnv("EMAIL_FROM_NAME", "Portail Gestion"),
		EmailFromAddress:                 getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailThrottleCooldown:            mustDuration(getEnv("EMAIL_THROTTLE_COOLDOWN", "5m")),
		EmailSendInterval:                mustDuration(getEnv("EMAIL_SEND_INTERVAL", "500ms")),
		EmailDeliveryMode:                strings.ToLower(getEnv("EMAIL_DELIVERY_MODE", DeliveryInline)),
		EffectTimeout:                    mustDuration(getEnv("EFFECT_TIMEOUT", "30s")),
		FirebaseCredentialsFile:          getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		FirebaseProjectID:                getEnv("FIREBASE_PROJECT_ID", ""),
		RedisURL:                         getEnv("REDIS_URL", ""),
		RedisTLSInsecure:                 strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:                   getEnv("ASYNQ_QUEUE", "notifications"),
		AsynqConcurrency:                 mustInt(getEnv("ASYNQ_CONCURRENCY", "5")),
		MinIOEndpoint:                    getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:                   getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:                   getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:                      strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOMaxFileSize:                 mustInt64(getEnv("MINIO_MAX_FILE_SIZE", "26214400")),
		MinioBucketInterventionDocuments: getEnv("MINIO_BUCKET_INTERVENTION_DOCUMENTS", "intervention-documents"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.EmailDeliveryMode != DeliveryInline && cfg.EmailDeliveryMode != DeliveryQueued {
		return nil, fmt.Errorf("EMAIL_DELIVERY_MODE must be %q or %q", DeliveryInline, DeliveryQueued)
	}
	if cfg.EmailDeliveryMode == DeliveryQueued && cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required when EMAIL_DELIVERY_MODE is queued")
	}
	if cfg.EmailThrottleCooldown <= 0 {
		return nil, fmt.Errorf("EMAIL_THROTTLE_COOLDOWN must be a positive duration")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
