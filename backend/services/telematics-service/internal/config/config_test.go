package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("DOTENV_FILE", filepath.Join(t.TempDir(), "none.env"))
	t.Setenv("CONFIG_FILE", "")
	require.NoError(t, os.WriteFile(os.Getenv("DOTENV_FILE"), nil, 0o600))
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8085", cfg.HTTPAddress())
	assert.Equal(t, int64(32<<20), cfg.UploadLimit())
	assert.Equal(t, 0, cfg.Analysis.MaxSliceRows)
	assert.Equal(t, 60*time.Second, cfg.AnalysisTimeout())
	assert.Equal(t, 4, cfg.Notifier.Workers)
	assert.Equal(t, 1024, cfg.Notifier.QueueSize)
	assert.Equal(t, 50*time.Millisecond, cfg.EnqueueTimeout())
	assert.Equal(t, 5*time.Second, cfg.DeliveryTimeout())
	assert.False(t, cfg.ArchiveEnabled())
	assert.False(t, cfg.RedisEnabled())
	assert.Equal(t, 500*time.Millisecond, cfg.ArchiveFlushInterval())
	assert.Equal(t, 100, cfg.Redis.RecentLimit)
}

func TestLoadEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("TELEMATICS_HTTP_PORT", ":9000")
	t.Setenv("TELEMATICS_NOTIFIER_WORKERS", "8")
	t.Setenv("TELEMATICS_NOTIFIER_ENQUEUE_TIMEOUT_MS", "5")
	t.Setenv("TELEMATICS_ARCHIVE_DSN", "postgres://u:p@localhost/truckwatch")
	t.Setenv("TELEMATICS_REDIS_ADDR", "localhost:6379")
	t.Setenv("TELEMATICS_ANALYSIS_TIMEOUT_SECONDS", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPAddress())
	assert.Equal(t, 8, cfg.Notifier.Workers)
	assert.Equal(t, 5*time.Millisecond, cfg.EnqueueTimeout())
	assert.True(t, cfg.ArchiveEnabled())
	assert.True(t, cfg.RedisEnabled())
	assert.Zero(t, cfg.AnalysisTimeout())
}

func TestLoadYAMLFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "telematics.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  port: \"7000\"\nanalysis:\n  maxSliceRows: 5000\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.HTTPAddress())
	assert.Equal(t, 5000, cfg.Analysis.MaxSliceRows)
	assert.Equal(t, 4, cfg.Notifier.Workers)
}

func TestLoadRejectsInvalid(t *testing.T) {
	isolate(t)
	t.Setenv("TELEMATICS_NOTIFIER_WORKERS", "0")
	t.Setenv("TELEMATICS_ANALYSIS_MAX_SLICE_ROWS", "-1")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notifier workers")
	assert.Contains(t, err.Error(), "max slice rows")
}
