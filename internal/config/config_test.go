package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("expected default addr :8080, got %s", cfg.HTTPAddr)
	}
	if cfg.LeadsDBPath != "leads.db" {
		t.Fatalf("expected default db path leads.db, got %s", cfg.LeadsDBPath)
	}
	if cfg.SilenceThreshold != 24*time.Hour {
		t.Fatalf("expected default silence threshold 24h, got %v", cfg.SilenceThreshold)
	}
	if cfg.SweepInterval != time.Minute {
		t.Fatalf("expected default sweep interval 1m, got %v", cfg.SweepInterval)
	}
	if cfg.MaxLeadAge != 120 {
		t.Fatalf("expected default max age 120, got %d", cfg.MaxLeadAge)
	}
	if cfg.AsynqQueue != "default" {
		t.Fatalf("expected default asynq queue, got %s", cfg.AsynqQueue)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SILENCE_THRESHOLD", "30m")
	t.Setenv("SWEEP_INTERVAL", "10s")
	t.Setenv("MAX_LEAD_AGE", "100")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.SilenceThreshold != 30*time.Minute {
		t.Fatalf("expected 30m, got %v", cfg.SilenceThreshold)
	}
	if cfg.SweepInterval != 10*time.Second {
		t.Fatalf("expected 10s, got %v", cfg.SweepInterval)
	}
	if cfg.MaxLeadAge != 100 {
		t.Fatalf("expected 100, got %d", cfg.MaxLeadAge)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected cors origins: %v", cfg.CORSOrigins)
	}
	if cfg.CORSAllowAll {
		t.Fatal("expected allow-all off")
	}
}

func TestLoad_WildcardOriginEnablesAllowAll(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "*")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.CORSAllowAll {
		t.Fatal("expected wildcard to enable allow-all")
	}
}

func TestLoad_InvalidDurationFails(t *testing.T) {
	t.Setenv("SILENCE_THRESHOLD", "soon")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestLoad_NonPositiveSweepIntervalFails(t *testing.T) {
	t.Setenv("SWEEP_INTERVAL", "0s")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero sweep interval")
	}
}

func TestLoad_EmailEnabledRequiresSMTPSettings(t *testing.T) {
	t.Setenv("EMAIL_ENABLED", "true")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when email enabled without smtp settings")
	}

	t.Setenv("SMTP_HOST", "mail.example")
	t.Setenv("EMAIL_FROM", "noreply@example.com")
	t.Setenv("EMAIL_TO", "sales@example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.EmailEnabled || cfg.SMTPHost != "mail.example" {
		t.Fatalf("unexpected email config: %+v", cfg)
	}
}
