package main

import (
	"context"
	"testing"

	"github.com/caarlos0/env/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_AUTHORIZED_USER_IDS", "1 2")

	cfg := Config{}
	require.NoError(t, env.Parse(&cfg))

	assert.Equal(t, []string{"画", "draw"}, cfg.ImageCreatePrefixes)
	assert.Equal(t, []int64{1, 2}, cfg.TelegramAuthorizedUserIDs)
	assert.Equal(t, "plugins/replicate/config.json", cfg.ReplicateConfig)
	assert.Equal(t, "memory", cfg.HistoryBackend)
	assert.Equal(t, "1h0m0s", cfg.ReplicatePendingTTL.String())
}

func TestConfigRequiresTelegramToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	cfg := Config{}
	assert.Error(t, env.Parse(&cfg))
}

func TestSetupHistory(t *testing.T) {
	repo, err := setupHistory(context.Background(), Config{HistoryBackend: "memory"})
	require.NoError(t, err)
	assert.NoError(t, repo.Close())

	_, err = setupHistory(context.Background(), Config{HistoryBackend: "redis"})
	assert.Error(t, err)
}
