package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://www.posti.fi/maildelivery-api-proxy/", cfg.PostiAPIURL)
	assert.Equal(t, 10*time.Second, cfg.APITimeout)
	assert.Equal(t, 12*time.Hour, cfg.UpdateInterval)
	assert.Equal(t, 30*time.Minute, cfg.InitialSpread)
	assert.Equal(t, 2*time.Minute, cfg.UpdateJitter)
	assert.Equal(t, ":8080", cfg.HTTPListenAddr)
	assert.Equal(t, "0 0 * * *", cfg.CronSpecRollover)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.Environment)
	assert.Empty(t, cfg.PostalCodes)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("UPDATE_INTERVAL", "6h")
	t.Setenv("INITIAL_SPREAD", "10m")
	t.Setenv("UPDATE_JITTER", "30s")
	t.Setenv("POSTAL_CODES", "00100, 00530 ,33100")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 6*time.Hour, cfg.UpdateInterval)
	assert.Equal(t, 10*time.Minute, cfg.InitialSpread)
	assert.Equal(t, 30*time.Second, cfg.UpdateJitter)
	assert.Equal(t, []string{"00100", "00530", "33100"}, cfg.PostalCodes)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("UPDATE_INTERVAL", "12 hours")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRequiresChatIDWithToken(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "123:abc")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("TELEGRAM_CHAT_ID", "42")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.TelegramChatID)
}

func TestLoadRejectsNegativeDuration(t *testing.T) {
	t.Setenv("UPDATE_JITTER", "-2m")

	_, err := Load()
	assert.Error(t, err)
}
