// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel        string        `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	HTTPAddr        string        `mapstructure:"HTTP_ADDR" validate:"required"`
	WebhookPath     string        `mapstructure:"WEBHOOK_PATH" validate:"required,startswith=/"`
	MaxPayloadBytes int64         `mapstructure:"MAX_PAYLOAD_BYTES" validate:"gt=0"`
	DBURL           string        `mapstructure:"DB_URL" validate:"required"`
	Mirrors         []string      `mapstructure:"MIRRORS"`
	GitBinary       string        `mapstructure:"GIT_BINARY" validate:"required"`
	GitTimeout      time.Duration `mapstructure:"GIT_TIMEOUT" validate:"gt=0"`
	SyncTimeout     time.Duration `mapstructure:"SYNC_TIMEOUT" validate:"gte=0"`
	PollInterval    time.Duration `mapstructure:"POLL_INTERVAL" validate:"gte=0"`
	PollConcurrency int           `mapstructure:"POLL_CONCURRENCY" validate:"gte=1"`
	BitbucketHost   string        `mapstructure:"BITBUCKET_HOST" validate:"required"`
	NotifyURL       string        `mapstructure:"NOTIFY_URL" validate:"omitempty,url"`
	NotifyToken     string        `mapstructure:"NOTIFY_TOKEN"`
	NotifyTimeout   time.Duration `mapstructure:"NOTIFY_TIMEOUT" validate:"gt=0"`
}

// LoadConfig reads configuration from file and/or environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("WEBHOOK_PATH", "/bitbucketsync")
	v.SetDefault("MAX_PAYLOAD_BYTES", 5<<20)
	v.SetDefault("GIT_BINARY", "git")
	v.SetDefault("GIT_TIMEOUT", "5m")
	v.SetDefault("SYNC_TIMEOUT", "10m")
	v.SetDefault("POLL_INTERVAL", "0s")
	v.SetDefault("POLL_CONCURRENCY", 4)
	v.SetDefault("BITBUCKET_HOST", "bitbucket.org")
	v.SetDefault("NOTIFY_TIMEOUT", "30s")

	// Load from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if file not found

	// Bind environment variables. Keys without a default must be bound
	// explicitly or Unmarshal never sees them.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"DB_URL", "MIRRORS", "NOTIFY_URL", "NOTIFY_TOKEN"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
