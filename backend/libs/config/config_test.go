package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nested struct {
	Port    string        `yaml:"port" env:"TEST_HTTP_PORT"`
	Timeout time.Duration `yaml:"timeout" env:"TEST_HTTP_TIMEOUT"`
}

type sample struct {
	HTTP    nested `yaml:"http"`
	Workers int    `yaml:"workers"`
	Debug   bool   `yaml:"debug" env:"TEST_DEBUG"`
	Secret  string `yaml:"secret" env:"-"`
}

func TestLoadConfigRejectsNonPointer(t *testing.T) {
	require.Error(t, LoadConfig(nil))
	require.Error(t, LoadConfig(sample{}))
}

func TestLoadConfigYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  port: \"9000\"\n  timeout: 2s\nworkers: 3\nsecret: keep\n"), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DOTENV_FILE", "")
	t.Setenv("TEST_HTTP_TIMEOUT", "750ms")
	t.Setenv("WORKERS", "8")
	t.Setenv("SECRET", "ignored")

	var cfg sample
	require.NoError(t, LoadConfig(&cfg))

	assert.Equal(t, "9000", cfg.HTTP.Port)
	assert.Equal(t, 750*time.Millisecond, cfg.HTTP.Timeout)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "keep", cfg.Secret)
}

func TestLoadConfigDotEnvDoesNotOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("TEST_HTTP_PORT=7000\nTEST_DEBUG=true\n"), 0o600))

	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DOTENV_FILE", envPath)
	t.Setenv("TEST_HTTP_PORT", "7100")
	t.Cleanup(func() { os.Unsetenv("TEST_DEBUG") })

	var cfg sample
	require.NoError(t, LoadConfig(&cfg))

	assert.Equal(t, "7100", cfg.HTTP.Port)
	assert.True(t, cfg.Debug)
}

func TestLoadConfigInvalidValue(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DOTENV_FILE", "")
	t.Setenv("TEST_DEBUG", "maybe")

	var cfg sample
	err := LoadConfig(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEST_DEBUG")
}
