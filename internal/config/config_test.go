package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.HTTP.Addr)
	assert.NotEmpty(t, cfg.MySQL.DSN)
	assert.NotEmpty(t, cfg.Redis.Addr)
	assert.Equal(t, "clinic.events", cfg.Kafka.Topic)

	// pacing bounds ship sane and ordered
	assert.Equal(t, 10*time.Second, cfg.Dispatch.PacingMin)
	assert.Equal(t, 30*time.Second, cfg.Dispatch.PacingMax)
	assert.LessOrEqual(t, cfg.Dispatch.PacingMin, cfg.Dispatch.PacingMax)
	assert.Equal(t, 30*time.Second, cfg.Dispatch.SendTimeout)
	assert.Positive(t, cfg.Dispatch.MaxActive)
	assert.Positive(t, cfg.Gateway.SessionBuffer)
}

func TestLoadMissingUserFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/config.yaml")
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.HTTP.Addr)
}
