package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123456:test-token")

	cfg := Load()

	assert.False(t, cfg.Debug)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Redis.Host)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, "123456:test-token", cfg.Telegram.BotToken)
	assert.Equal(t, time.Hour, cfg.Sweep.Interval)
	assert.Equal(t, "gpt-4-turbo", cfg.AI.Model)
	assert.NotEmpty(t, cfg.Chains.EthereumRPC)
	assert.NotEmpty(t, cfg.Chains.SolanaRPC)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123456:test-token")
	t.Setenv("DEBUG", "true")
	t.Setenv("PORT", "8081")
	t.Setenv("SWEEP_INTERVAL", "15m")

	cfg := Load()

	assert.True(t, cfg.Debug)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, 15*time.Minute, cfg.Sweep.Interval)
}
