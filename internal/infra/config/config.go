package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the tracker.
type AppConfig struct {
	PostiAPIURL string
	APITimeout  time.Duration

	UpdateInterval time.Duration // base interval between routine fetches
	InitialSpread  time.Duration // random offset added to the first scheduled fetch
	UpdateJitter   time.Duration // per-tick perturbation of the base interval

	PostalCodes []string // codes tracked at startup

	HTTPListenAddr string
	DatabaseURL    string // optional; empty disables the snapshot store

	TelegramToken  string // optional; empty disables the Telegram notifier
	TelegramChatID int64

	CronSpecRollover string // midnight re-derivation job

	LogLevel    string
	Environment string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.PostiAPIURL = os.Getenv("POSTI_API_URL")
	if cfg.PostiAPIURL == "" {
		cfg.PostiAPIURL = "https://www.posti.fi/maildelivery-api-proxy/"
	}

	if cfg.APITimeout, err = durationEnv("API_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.UpdateInterval, err = durationEnv("UPDATE_INTERVAL", 12*time.Hour); err != nil {
		return nil, err
	}
	if cfg.InitialSpread, err = durationEnv("INITIAL_SPREAD", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.UpdateJitter, err = durationEnv("UPDATE_JITTER", 2*time.Minute); err != nil {
		return nil, err
	}

	if raw := os.Getenv("POSTAL_CODES"); raw != "" {
		for _, code := range strings.Split(raw, ",") {
			code = strings.TrimSpace(code)
			if code != "" {
				cfg.PostalCodes = append(cfg.PostalCodes, code)
			}
		}
	}

	cfg.HTTPListenAddr = os.Getenv("HTTP_LISTEN_ADDR")
	if cfg.HTTPListenAddr == "" {
		cfg.HTTPListenAddr = ":8080"
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken != "" {
		chatIDStr := os.Getenv("TELEGRAM_CHAT_ID")
		if chatIDStr == "" {
			return nil, fmt.Errorf("TELEGRAM_CHAT_ID is not set but TELEGRAM_TOKEN is")
		}
		cfg.TelegramChatID, err = strconv.ParseInt(chatIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
	}

	cfg.CronSpecRollover = os.Getenv("CRON_SPEC_ROLLOVER")
	if cfg.CronSpecRollover == "" {
		cfg.CronSpecRollover = "0 0 * * *" // Default: local midnight
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	return cfg, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}
