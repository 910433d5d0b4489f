package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/marcelsud/shipment-relay/delivery"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

/* Config is read from a .env file (TOML) in the working directory, and
 * every key can be overridden by an environment variable of the same name
 */

type Config struct {
	Port     string `mapstructure:"PORT"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	RedisStream   string `mapstructure:"REDIS_STREAM"`
	RedisGroup    string `mapstructure:"REDIS_GROUP"`
	WorkerID      string `mapstructure:"WORKER_ID"`

	WebhooksFile string `mapstructure:"WEBHOOKS_FILE"`
	UploadsDir   string `mapstructure:"UPLOADS_DIR"`

	MinIOEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinIOAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinIOSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinIOUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`

	// The "default" registry entry
	WebhookURL           string        `mapstructure:"WEBHOOK_URL"`
	WebhookToken         string        `mapstructure:"WEBHOOK_TOKEN"`
	WebhookMaxRetries    int           `mapstructure:"WEBHOOK_MAX_RETRIES"`
	WebhookRetryDelay    time.Duration `mapstructure:"WEBHOOK_RETRY_DELAY"`
	WebhookTimeout       time.Duration `mapstructure:"WEBHOOK_TIMEOUT"`
	WebhookEnabled       bool          `mapstructure:"WEBHOOK_ENABLED"`
	WebhookSigningSecret string        `mapstructure:"WEBHOOK_SIGNING_SECRET"`

	DispatchWorkers   int           `mapstructure:"DISPATCH_WORKERS"`
	DispatchQueueSize int           `mapstructure:"DISPATCH_QUEUE_SIZE"`
	BatchPause        time.Duration `mapstructure:"BATCH_PAUSE"`
	ReplayInterval    time.Duration `mapstructure:"REPLAY_INTERVAL"` // 0 disables periodic replay
}

var defaults = map[string]any{
	"PORT":      "8080",
	"LOG_LEVEL": "info",

	"REDIS_ADDR":     "localhost:6379",
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,
	"REDIS_STREAM":   "shipments:updates",
	"REDIS_GROUP":    "relay-workers",
	"WORKER_ID":      "relay-1",

	"WEBHOOKS_FILE": "webhooks.yaml",
	"UPLOADS_DIR":   ".",

	"MINIO_ENDPOINT":   "",
	"MINIO_ACCESS_KEY": "",
	"MINIO_SECRET_KEY": "",
	"MINIO_USE_SSL":    false,

	"WEBHOOK_URL":            "",
	"WEBHOOK_TOKEN":          "",
	"WEBHOOK_MAX_RETRIES":    3,
	"WEBHOOK_RETRY_DELAY":    "1s",
	"WEBHOOK_TIMEOUT":        "10s",
	"WEBHOOK_ENABLED":        true,
	"WEBHOOK_SIGNING_SECRET": "",

	"DISPATCH_WORKERS":    4,
	"DISPATCH_QUEUE_SIZE": 100,
	"BATCH_PAUSE":         "500ms",
	"REPLAY_INTERVAL":     "0s",
}

// GetConfig reads .env from the working directory
func GetConfig() (*Config, error) {
	return GetConfigFrom(".")
}

// GetConfigFrom reads .env from dir; a missing file leaves defaults and environment
func GetConfigFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("toml")
	v.AddConfigPath(dir)
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("parsing config data: %w", err)
	}
	return &config, nil
}

// DefaultWebhook builds the registry's default entry
func (c *Config) DefaultWebhook() delivery.WebhookConfig {
	return delivery.WebhookConfig{
		Name:          delivery.DefaultWebhook,
		URL:           c.WebhookURL,
		Token:         c.WebhookToken,
		MaxRetries:    c.WebhookMaxRetries,
		RetryDelay:    c.WebhookRetryDelay,
		Timeout:       c.WebhookTimeout,
		Enabled:       c.WebhookEnabled && c.WebhookURL != "",
		SigningSecret: c.WebhookSigningSecret,
	}
}

// MinIOEnabled reports whether s3:// attachments can be resolved
func (c *Config) MinIOEnabled() bool {
	return c.MinIOEndpoint != ""
}

// GetLogLevel parses LOG_LEVEL, falling back to info
func (c *Config) GetLogLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return level
}
