// Package config loads CLI configuration from defaults, an optional YAML file
// and MTURK_ prefixed environment variables, in that order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "MTURK_"

type Config struct {
	Credentials Credentials  `koanf:"credentials"`
	Client      ClientConfig `koanf:"client"`
	Logger      LogConfig    `koanf:"logger"`
}

type Credentials struct {
	AccessKeyID     string `koanf:"access_key_id" validate:"required"`
	SecretAccessKey string `koanf:"secret_access_key" validate:"required"`
}

type ClientConfig struct {
	Sandbox  bool          `koanf:"sandbox"`
	Endpoint string        `koanf:"endpoint" validate:"omitempty,url"`
	Timeout  time.Duration `koanf:"timeout" validate:"required"`
}

type LogConfig struct {
	Level       string         `koanf:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format      string         `koanf:"format" validate:"omitempty,oneof=console json"`
	Outputs     []string       `koanf:"outputs"`
	Development bool           `koanf:"development"`
	Rotation    RotationConfig `koanf:"rotation"`
}

type RotationConfig struct {
	Enable     bool `koanf:"enable"`
	MaxSizeMB  int  `koanf:"max_size_mb"`
	MaxBackups int  `koanf:"max_backups"`
	MaxAgeDays int  `koanf:"max_age_days"`
	Compress   bool `koanf:"compress"`
}

func defaults() map[string]any {
	return map[string]any{
		"client.sandbox": true,
		"client.timeout": "30s",
		"logger.level":   "info",
		"logger.format":  "console",
		"logger.outputs": []string{"stderr"},
	}
}

// Load reads configuration. path may be empty, in which case only defaults
// and the environment are consulted.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil)
	if err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// envKey maps MTURK_CREDENTIALS__ACCESS_KEY_ID to credentials.access_key_id.
func envKey(s string) string {
	return strings.ReplaceAll(
		strings.ToLower(strings.TrimPrefix(s, EnvPrefix)),
		"__",
		".",
	)
}
