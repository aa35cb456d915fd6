// Package config loads the listsync CLI configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "LISTSYNC"

// Config holds application configuration.
type Config struct {
	BaseURL     string        `mapstructure:"base_url" validate:"required,url"`
	UserAgent   string        `mapstructure:"user_agent" validate:"required"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
	PageSize    int           `mapstructure:"page_size" validate:"gte=1,lte=1000"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
	Redis       RedisConfig   `mapstructure:"redis"`
	Log         LogConfig     `mapstructure:"log"`
}

// RedisConfig holds the optional shared rate limit store.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"omitempty,hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Pretty bool   `mapstructure:"pretty"`
}

var validate = validator.New()

// New returns a viper instance with defaults, search paths and environment
// overrides set up. Callers bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("base_url", "")
	v.SetDefault("user_agent", "listsync/0.1.0")
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("page_size", 10)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetConfigName("listsync")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "listsync"))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the config file if present and returns the validated
// configuration. A missing file is not an error; an unreadable one is.
func Load(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validate.Struct(c); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}
