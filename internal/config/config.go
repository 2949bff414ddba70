package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	DefaultTimezone string
	DoctorsFile     string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Email transport. EmailProvider is one of auto, smtp, sendgrid, ses, stub, none.
	EmailProvider string
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	SenderEmail   string
	EmailFromName string

	SendGridAPIKey string
	SESFromEmail   string

	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	NotifyTimeout           time.Duration
	ReminderScanInterval    time.Duration
	ReminderWindowTolerance time.Duration
	CancelURL               string
	RescheduleURL           string

	// Intent classification. LLMProvider is one of none, bedrock, gemini.
	LLMProvider    string
	BedrockModelID string
	GeminiAPIKey   string
	GeminiModelID  string

	ChatRateLimitRPS   float64
	ChatRateLimitBurst int
	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DefaultTimezone: getEnv("DEFAULT_TIMEZONE", "America/New_York"),
		DoctorsFile:     getEnv("DOCTORS_FILE", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		EmailProvider: strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "auto"))),
		SMTPHost:      getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:      getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername:  getEnv("SMTP_USERNAME", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		SenderEmail:   getEnv("SENDER_EMAIL", ""),
		EmailFromName: getEnv("EMAIL_FROM_NAME", "Appointment System"),

		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		SESFromEmail:   getEnv("SES_FROM_EMAIL", ""),

		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),

		NotifyTimeout:           getEnvAsDuration("NOTIFY_TIMEOUT", 10*time.Second),
		ReminderScanInterval:    getEnvAsDuration("REMINDER_SCAN_INTERVAL", 5*time.Minute),
		ReminderWindowTolerance: getEnvAsDuration("REMINDER_WINDOW_TOLERANCE", 5*time.Minute),
		CancelURL:               getEnv("CANCEL_URL", "https://example.com/cancel"),
		RescheduleURL:           getEnv("RESCHEDULE_URL", "https://example.com/reschedule"),

		LLMProvider:    strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "none"))),
		BedrockModelID: getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:  getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),

		ChatRateLimitRPS:   getEnvAsFloat("CHAT_RATE_LIMIT_RPS", 2),
		ChatRateLimitBurst: getEnvAsInt("CHAT_RATE_LIMIT_BURST", 10),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
	}
}

// SMTPConfigured reports whether SMTP credentials are present.
func (c *Config) SMTPConfigured() bool {
	return strings.TrimSpace(c.SMTPUsername) != "" && strings.TrimSpace(c.SMTPPassword) != ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil && value > 0 {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
