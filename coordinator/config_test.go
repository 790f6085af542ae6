package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("EMAIL_PASSWORD", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.DataFolder)
	assert.Equal(t, "processing", cfg.ProcessingFolder)
	assert.Equal(t, "validated", cfg.ValidatedFolder)
	assert.Equal(t, "returns", cfg.ReturnsFolder)
	assert.Equal(t, "logs", cfg.LogsFolder)
	assert.Equal(t, 10, cfg.FileAccessMaxAttempts)
	assert.Equal(t, 3, cfg.FileMoveMaxAttempts)
	assert.Equal(t, 3, cfg.ForwardMaxRetries)
	assert.Equal(t, "smtp.office365.com", cfg.SMTPServer)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, 9090, cfg.MetricsPort)
	assert.Equal(t, 8080, cfg.HealthCheckPort)

	retry := cfg.Retry()
	assert.Equal(t, time.Second, retry.AccessDelay)
	assert.Equal(t, 10, retry.AccessMaxAttempts)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("EMAIL_PASSWORD", "secret")
	t.Setenv("DATA_FOLDER", "/srv/intake/in")
	t.Setenv("FILE_ACCESS_MAX_ATTEMPTS", "5")
	t.Setenv("FORWARD_URL", "https://api.example.com/upload")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "/srv/intake/in", cfg.DataFolder)
	assert.Equal(t, 5, cfg.FileAccessMaxAttempts)
	assert.Equal(t, "https://api.example.com/upload", cfg.ForwardURL)
}

func TestLoadConfigRequiresEmailPassword(t *testing.T) {
	t.Setenv("EMAIL_PASSWORD", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EMAIL_PASSWORD")
}

func TestConfigValidateRanges(t *testing.T) {
	cfg := &Config{
		EmailPassword:         "secret",
		FileAccessMaxAttempts: 10,
		FileMoveMaxAttempts:   0,
		ForwardMaxRetries:     3,
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FILE_MOVE_MAX_ATTEMPTS")
}
