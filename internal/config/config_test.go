// Package config tests for settings loading.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		ConfigEnv, "STOCKFLOW_API_URL", "DB_PATH", "STOCKFLOW_LISTEN_ADDR", "LOG_LEVEL",
		"STOCKFLOW_SYNC_INTERVAL", "STOCKFLOW_PROBE_TIMEOUT", "STOCKFLOW_REQUEST_TIMEOUT",
		"STOCKFLOW_AUTO_SYNC", "STOCKFLOW_OFFLINE_MODE", "STOCKFLOW_LOW_STOCK_THRESHOLD",
		"STOCKFLOW_QUEUE_MAX_SIZE",
	} {
		t.Setenv(key, "")
	}
}

// TestLoad_defaults verifies the out-of-the-box settings.
func TestLoad_defaults(t *testing.T) {
	clearEnv(t)

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/api", s.APIBaseURL)
	assert.Equal(t, 60*time.Second, s.SyncInterval)
	assert.True(t, s.AutoSync)
	assert.False(t, s.OfflineMode)
	assert.Equal(t, 10, s.LowStockThreshold)
	assert.Equal(t, 5*time.Second, s.ProbeTimeout)
	assert.Equal(t, 10*time.Second, s.RequestTimeout)
	assert.Less(t, s.ProbeTimeout, s.RequestTimeout)
}

// TestLoad_fileThenEnv verifies env overrides take precedence over the file.
func TestLoad_fileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "stockflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_url: http://inventory.local:9000/api
sync_interval: 2m
offline_mode: true
low_stock_threshold: 3
queue_max_size: 500
`), 0644))

	t.Setenv(ConfigEnv, path)
	t.Setenv("STOCKFLOW_SYNC_INTERVAL", "30000")
	t.Setenv("STOCKFLOW_AUTO_SYNC", "false")

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://inventory.local:9000/api", s.APIBaseURL)
	assert.Equal(t, 30*time.Second, s.SyncInterval)
	assert.False(t, s.AutoSync)
	assert.True(t, s.OfflineMode)
	assert.Equal(t, 3, s.LowStockThreshold)
	assert.Equal(t, 500, s.QueueMaxSize)
}

// TestLoad_invalidEnv verifies malformed overrides are rejected.
func TestLoad_invalidEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("STOCKFLOW_OFFLINE_MODE", "sometimes")

	_, err := Load()
	assert.Error(t, err)
}

// TestLoadFile_missing verifies a missing file is an error.
func TestLoadFile_missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

// TestValidate verifies rejection of unusable settings.
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"relative url", func(s *Settings) { s.APIBaseURL = "/api" }},
		{"short interval", func(s *Settings) { s.SyncInterval = time.Second }},
		{"zero probe timeout", func(s *Settings) { s.ProbeTimeout = 0 }},
		{"zero request timeout", func(s *Settings) { s.RequestTimeout = 0 }},
		{"negative threshold", func(s *Settings) { s.LowStockThreshold = -1 }},
		{"negative queue cap", func(s *Settings) { s.QueueMaxSize = -1 }},
		{"no data dir", func(s *Settings) { s.DataDir = "" }},
	}

	require.NoError(t, Default().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.mutate(s)
			assert.Error(t, s.Validate())
		})
	}
}

// TestProbeInterval verifies the max(5s, interval/2) rule.
func TestProbeInterval(t *testing.T) {
	tests := []struct {
		sync time.Duration
		want time.Duration
	}{
		{60 * time.Second, 30 * time.Second},
		{10 * time.Second, 5 * time.Second},
		{6 * time.Second, 5 * time.Second},
		{5 * time.Minute, 150 * time.Second},
	}
	for _, tt := range tests {
		s := &Settings{SyncInterval: tt.sync}
		if got := s.ProbeInterval(); got != tt.want {
			t.Errorf("ProbeInterval() with sync %v = %v, want %v", tt.sync, got, tt.want)
		}
	}
}

// TestBaseURL verifies trailing slashes are dropped.
func TestBaseURL(t *testing.T) {
	s := &Settings{APIBaseURL: "http://localhost:8080/api/"}
	assert.Equal(t, "http://localhost:8080/api", s.BaseURL())
}
