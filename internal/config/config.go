// internal/config/config.go
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel      string        `mapstructure:"LOG_LEVEL"`
	DBURL         string        `mapstructure:"DB_URL"`
	HTTPAddr      string        `mapstructure:"HTTP_ADDR"`
	GithubAccount string        `mapstructure:"GITHUB_ACCOUNT"`
	GithubToken   string        `mapstructure:"GITHUB_TOKEN"`
	EncryptionKey string        `mapstructure:"ENCRYPTION_KEY"`
	PageSize      int           `mapstructure:"PAGE_SIZE"`
	SyncInterval  time.Duration `mapstructure:"SYNC_INTERVAL"`
	SyncMinGap    time.Duration `mapstructure:"SYNC_MIN_GAP"`
	SyncCooldown  time.Duration `mapstructure:"SYNC_RETRY_COOLDOWN"`
}

// LoadConfig reads configuration from file and/or environment variables.
func LoadConfig() (*Config, error) {
	// Set default values
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("HTTP_ADDR", ":8080")
	viper.SetDefault("PAGE_SIZE", 100)
	viper.SetDefault("SYNC_INTERVAL", "6h")
	viper.SetDefault("SYNC_MIN_GAP", "1h")
	viper.SetDefault("SYNC_RETRY_COOLDOWN", "5m")

	// Load from .env file if it exists
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // Ignore error if file not found

	// Bind environment variables
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate required fields
	if cfg.DBURL == "" {
		return nil, errors.New("DB_URL is a required configuration field")
	}
	if cfg.GithubAccount == "" {
		return nil, errors.New("GITHUB_ACCOUNT is a required configuration field")
	}
	if cfg.PageSize <= 0 || cfg.PageSize > 100 {
		return nil, errors.New("PAGE_SIZE must be between 1 and 100")
	}
	if cfg.SyncInterval <= 0 {
		return nil, errors.New("SYNC_INTERVAL must be a positive duration")
	}
	if cfg.SyncMinGap < 0 || cfg.SyncCooldown < 0 {
		return nil, errors.New("SYNC_MIN_GAP and SYNC_RETRY_COOLDOWN must not be negative")
	}

	return &cfg, nil
}
