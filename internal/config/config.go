package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AgentConfig captures all tunable parameters for the client agent.
// Values are primarily loaded from environment variables with sane
// defaults so the binary can run locally without excessive setup.
type AgentConfig struct {
	APIBaseURL     string
	RequestTimeout time.Duration

	SessionDir string

	RedisAddr     string
	RedisPassword string

	KafkaBrokers []string
	KafkaTopic   string

	PGDSN string

	PushURL string

	StripeAPIKey string

	BaseFare float64
	PerKm    float64

	DiagAddr        string
	ReloadInterval  time.Duration
	ShutdownTimeout time.Duration

	LogLevel string
}

func defaultAgentConfig() AgentConfig {
	home, _ := os.UserHomeDir()
	return AgentConfig{
		APIBaseURL:      "http://localhost:8000",
		RequestTimeout:  15 * time.Second,
		SessionDir:      home + "/.tricy",
		KafkaTopic:      "booking-updates",
		BaseFare:        30,
		PerKm:           12,
		DiagAddr:        ":2112",
		ReloadInterval:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
	}
}

func LoadAgentConfig() (AgentConfig, error) {
	cfg := defaultAgentConfig()
	var errs []error

	setStringFromEnv(&cfg.APIBaseURL, "TRICY_API_URL")
	setDurationFromEnv(&cfg.RequestTimeout, "TRICY_REQUEST_TIMEOUT", &errs)
	setStringFromEnv(&cfg.SessionDir, "TRICY_SESSION_DIR")

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")

	cfg.PGDSN = os.Getenv("PG_DSN")
	cfg.PushURL = strings.TrimSpace(os.Getenv("TRICY_PUSH_URL"))
	cfg.StripeAPIKey = os.Getenv("STRIPE_API_KEY")

	setFloatFromEnv(&cfg.BaseFare, "TRICY_BASE_FARE", &errs)
	setFloatFromEnv(&cfg.PerKm, "TRICY_PER_KM", &errs)

	setStringFromEnv(&cfg.DiagAddr, "DIAG_ADDR")
	setDurationFromEnv(&cfg.ReloadInterval, "TRICY_RELOAD_INTERVAL", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "SHUTDOWN_TIMEOUT", &errs)

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if cfg.BaseFare <= 0 {
		errs = append(errs, fmt.Errorf("TRICY_BASE_FARE must be > 0"))
	}
	if cfg.PerKm <= 0 {
		errs = append(errs, fmt.Errorf("TRICY_PER_KM must be > 0"))
	}
	if cfg.ReloadInterval < time.Second {
		errs = append(errs, fmt.Errorf("TRICY_RELOAD_INTERVAL must be at least 1s"))
	}

	return cfg, errors.Join(errs...)
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setFloatFromEnv(target *float64, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = f
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
