package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "truckwatch/backend/libs/config"
)

// HTTPConfig controls the public listener.
type HTTPConfig struct {
	Port        string `yaml:"port" env:"TELEMATICS_HTTP_PORT"`
	UploadMaxMB int    `yaml:"uploadMaxMb" env:"TELEMATICS_UPLOAD_MAX_MB"`
}

// AnalysisConfig bounds detection runs.
type AnalysisConfig struct {
	MaxSliceRows   int `yaml:"maxSliceRows" env:"TELEMATICS_ANALYSIS_MAX_SLICE_ROWS"`
	TimeoutSeconds int `yaml:"timeoutSeconds" env:"TELEMATICS_ANALYSIS_TIMEOUT_SECONDS"`
}

// NotifierConfig sizes the webhook worker pool.
type NotifierConfig struct {
	Workers                int `yaml:"workers" env:"TELEMATICS_NOTIFIER_WORKERS"`
	QueueSize              int `yaml:"queueSize" env:"TELEMATICS_NOTIFIER_QUEUE_SIZE"`
	EnqueueTimeoutMS       int `yaml:"enqueueTimeoutMs" env:"TELEMATICS_NOTIFIER_ENQUEUE_TIMEOUT_MS"`
	DeliveryTimeoutSeconds int `yaml:"deliveryTimeoutSeconds" env:"TELEMATICS_NOTIFIER_DELIVERY_TIMEOUT_SECONDS"`
}

// ArchiveConfig enables the Postgres mirror when DSN is set.
type ArchiveConfig struct {
	DSN       string `yaml:"dsn" env:"TELEMATICS_ARCHIVE_DSN"`
	BatchSize int    `yaml:"batchSize" env:"TELEMATICS_ARCHIVE_BATCH_SIZE"`
	FlushMS   int    `yaml:"flushMs" env:"TELEMATICS_ARCHIVE_FLUSH_MS"`
	QueueSize int    `yaml:"queueSize" env:"TELEMATICS_ARCHIVE_QUEUE_SIZE"`
}

// RedisConfig enables anomaly publication when Addr is set.
type RedisConfig struct {
	Addr        string `yaml:"addr" env:"TELEMATICS_REDIS_ADDR"`
	Password    string `yaml:"password" env:"TELEMATICS_REDIS_PASSWORD"`
	DB          int    `yaml:"db" env:"TELEMATICS_REDIS_DB"`
	RecentLimit int    `yaml:"recentLimit" env:"TELEMATICS_REDIS_RECENT_LIMIT"`
}

// Config defines telematics service configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Notifier NotifierConfig `yaml:"notifier"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Redis    RedisConfig    `yaml:"redis"`
}

// Default returns configuration with every default applied.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port:        "8085",
			UploadMaxMB: 32,
		},
		Analysis: AnalysisConfig{
			TimeoutSeconds: 60,
		},
		Notifier: NotifierConfig{
			Workers:                4,
			QueueSize:              1024,
			EnqueueTimeoutMS:       50,
			DeliveryTimeoutSeconds: 5,
		},
		Archive: ArchiveConfig{
			BatchSize: 500,
			FlushMS:   500,
			QueueSize: 10000,
		},
		Redis: RedisConfig{
			RecentLimit: 100,
		},
	}
}

// Load configuration using shared helper.
func Load() (*Config, error) {
	cfg := Default()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.UploadMaxMB <= 0 {
		errs = append(errs, errors.New("config: upload max mb must be positive"))
	}
	if c.Analysis.MaxSliceRows < 0 {
		errs = append(errs, errors.New("config: analysis max slice rows must not be negative"))
	}
	if c.Notifier.Workers <= 0 {
		errs = append(errs, errors.New("config: notifier workers must be positive"))
	}
	if c.Notifier.QueueSize <= 0 {
		errs = append(errs, errors.New("config: notifier queue size must be positive"))
	}
	if c.ArchiveEnabled() && c.Archive.BatchSize <= 0 {
		errs = append(errs, errors.New("config: archive batch size must be positive"))
	}
	return errors.Join(errs...)
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8085"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// UploadLimit returns the maximum accepted upload body in bytes.
func (c *Config) UploadLimit() int64 {
	return int64(c.HTTP.UploadMaxMB) << 20
}

// AnalysisTimeout bounds one analysis request; zero disables the bound.
func (c *Config) AnalysisTimeout() time.Duration {
	if c.Analysis.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Analysis.TimeoutSeconds) * time.Second
}

// EnqueueTimeout returns how long Notify waits for queue space.
func (c *Config) EnqueueTimeout() time.Duration {
	if c.Notifier.EnqueueTimeoutMS <= 0 {
		return 50 * time.Millisecond
	}
	return time.Duration(c.Notifier.EnqueueTimeoutMS) * time.Millisecond
}

// DeliveryTimeout returns the per-webhook request timeout.
func (c *Config) DeliveryTimeout() time.Duration {
	if c.Notifier.DeliveryTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Notifier.DeliveryTimeoutSeconds) * time.Second
}

// ArchiveEnabled reports whether a Postgres DSN is configured.
func (c *Config) ArchiveEnabled() bool {
	return strings.TrimSpace(c.Archive.DSN) != ""
}

// ArchiveFlushInterval returns the archive flush period.
func (c *Config) ArchiveFlushInterval() time.Duration {
	if c.Archive.FlushMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.Archive.FlushMS) * time.Millisecond
}

// RedisEnabled reports whether a Redis address is configured.
func (c *Config) RedisEnabled() bool {
	return strings.TrimSpace(c.Redis.Addr) != ""
}
