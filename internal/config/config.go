// Package config loads the application configuration from environment
// variables, with a .env file honored in development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full configuration surface of the service.
type Config struct {
	Env      string
	HTTPAddr string

	// LeadsDBPath is the SQLite file holding the durable lead table.
	LeadsDBPath string

	// SilenceThreshold is how long an unanswered agent message must stand
	// before a lead qualifies for a follow-up.
	SilenceThreshold time.Duration
	// SweepInterval is how often the follow-up monitor scans the store.
	SweepInterval time.Duration
	// MaxLeadAge is the exclusive upper bound for a plausible age answer.
	MaxLeadAge int
	// TemplatesPath optionally points at a YAML message-template override file.
	TemplatesPath string

	// RedisURL enables the Redis-backed follow-up queue and the out-of-process
	// sweeper when set. Empty means in-process queue and monitor.
	RedisURL string
	// RedisTLSInsecure skips certificate verification on the Redis connection.
	RedisTLSInsecure bool
	// AsynqQueue is the asynq queue name the sweeper uses.
	AsynqQueue string

	CORSAllowAll bool
	CORSOrigins  []string

	// TurnRatePerSec / TurnRateBurst rate-limit the inbound message endpoint per IP.
	TurnRatePerSec float64
	TurnRateBurst  int

	// Email drain for queued follow-ups (optional operator notifications).
	EmailEnabled bool
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	EmailFrom    string
	EmailTo      string
}

// Load reads configuration from the environment, applying defaults and
// failing fast on invalid values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	silence, err := parseDuration("SILENCE_THRESHOLD", "24h")
	if err != nil {
		return nil, err
	}
	sweep, err := parseDuration("SWEEP_INTERVAL", "1m")
	if err != nil {
		return nil, err
	}

	maxAge, err := parseInt("MAX_LEAD_AGE", "120")
	if err != nil {
		return nil, err
	}

	ratePerSec, err := parseFloat("TURN_RATE_PER_SEC", "5")
	if err != nil {
		return nil, err
	}
	rateBurst, err := parseInt("TURN_RATE_BURST", "10")
	if err != nil {
		return nil, err
	}

	smtpPort, err := parseInt("SMTP_PORT", "587")
	if err != nil {
		return nil, err
	}

	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "false"), "true")

	cfg := &Config{
		Env:              getEnv("APP_ENV", "development"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		LeadsDBPath:      getEnv("LEADS_DB_PATH", "leads.db"),
		SilenceThreshold: silence,
		SweepInterval:    sweep,
		MaxLeadAge:       maxAge,
		TemplatesPath:    getEnv("MESSAGE_TEMPLATES_PATH", ""),
		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueue:       getEnv("ASYNQ_QUEUE", "default"),
		CORSAllowAll:     corsAllowAll,
		CORSOrigins:      corsOrigins,
		TurnRatePerSec:   ratePerSec,
		TurnRateBurst:    rateBurst,
		EmailEnabled:     emailEnabled,
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         smtpPort,
		SMTPUser:         getEnv("SMTP_USER", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		EmailFrom:        getEnv("EMAIL_FROM", ""),
		EmailTo:          getEnv("EMAIL_TO", ""),
	}

	if cfg.LeadsDBPath == "" {
		return nil, fmt.Errorf("LEADS_DB_PATH is required")
	}
	if cfg.SilenceThreshold <= 0 {
		return nil, fmt.Errorf("SILENCE_THRESHOLD must be positive")
	}
	if cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("SWEEP_INTERVAL must be positive")
	}
	if cfg.MaxLeadAge <= 1 {
		return nil, fmt.Errorf("MAX_LEAD_AGE must be greater than 1")
	}
	if cfg.EmailEnabled && (cfg.SMTPHost == "" || cfg.EmailFrom == "" || cfg.EmailTo == "") {
		return nil, fmt.Errorf("SMTP_HOST, EMAIL_FROM and EMAIL_TO are required when EMAIL_ENABLED is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, raw)
	}
	return d, nil
}

func parseInt(key, fallback string) (int, error) {
	raw := getEnv(key, fallback)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, raw)
	}
	return n, nil
}

func parseFloat(key, fallback string) (float64, error) {
	raw := getEnv(key, fallback)
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", key, raw)
	}
	return f, nil
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
