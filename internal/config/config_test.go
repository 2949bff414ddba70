package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "EMAIL_PROVIDER", "REMINDER_SCAN_INTERVAL", "SMTP_USERNAME", "SMTP_PASSWORD", "CORS_ALLOWED_ORIGINS", "LLM_PROVIDER"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.EmailProvider != "auto" {
		t.Fatalf("expected auto email provider, got %s", cfg.EmailProvider)
	}
	if cfg.ReminderScanInterval != 5*time.Minute {
		t.Fatalf("expected 5m scan interval, got %s", cfg.ReminderScanInterval)
	}
	if cfg.ReminderWindowTolerance != 5*time.Minute {
		t.Fatalf("expected 5m tolerance, got %s", cfg.ReminderWindowTolerance)
	}
	if cfg.SMTPPort != 587 {
		t.Fatalf("expected smtp port 587, got %d", cfg.SMTPPort)
	}
	if cfg.SMTPConfigured() {
		t.Fatalf("expected smtp to be unconfigured without credentials")
	}
	if cfg.LLMProvider != "none" {
		t.Fatalf("expected llm provider none, got %s", cfg.LLMProvider)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("EMAIL_PROVIDER", " SMTP ")
	t.Setenv("SMTP_USERNAME", "clinic@example.com")
	t.Setenv("SMTP_PASSWORD", "secret")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("REMINDER_SCAN_INTERVAL", "1m")
	t.Setenv("NOTIFY_TIMEOUT", "3s")
	t.Setenv("CHAT_RATE_LIMIT_RPS", "0.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("LLM_PROVIDER", "Gemini")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.EmailProvider != "smtp" {
		t.Fatalf("expected normalized smtp provider, got %q", cfg.EmailProvider)
	}
	if !cfg.SMTPConfigured() {
		t.Fatalf("expected smtp configured")
	}
	if cfg.SMTPPort != 2525 {
		t.Fatalf("expected smtp port override, got %d", cfg.SMTPPort)
	}
	if cfg.ReminderScanInterval != time.Minute {
		t.Fatalf("expected scan interval override, got %s", cfg.ReminderScanInterval)
	}
	if cfg.NotifyTimeout != 3*time.Second {
		t.Fatalf("expected notify timeout override, got %s", cfg.NotifyTimeout)
	}
	if cfg.ChatRateLimitRPS != 0.5 {
		t.Fatalf("expected rps override, got %v", cfg.ChatRateLimitRPS)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("expected two CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.LLMProvider != "gemini" {
		t.Fatalf("expected gemini provider, got %s", cfg.LLMProvider)
	}
}

func TestLoadIgnoresInvalidDuration(t *testing.T) {
	t.Setenv("REMINDER_SCAN_INTERVAL", "soon")
	if got := Load().ReminderScanInterval; got != 5*time.Minute {
		t.Fatalf("expected fallback interval, got %s", got)
	}
}
