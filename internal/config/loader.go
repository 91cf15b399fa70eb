package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix            = "WIREBOARD"
	envConfigDefaultPath = envPrefix + "_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "config.yaml"
)

// Load resolves the relay configuration and returns the config file path used.
// Precedence: defaults < config file < WIREBOARD_* env vars. A missing file is
// created with the defaults.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	defaults := Default()
	path := resolveConfigPath(explicitPath)

	v := newViper(defaults)
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if !isNotFound(err) {
			return defaults, path, fmt.Errorf("read config: %w", err)
		}
		if err := writeDefaultConfig(path, defaults); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("failed to write default config")
		} else {
			logger.Info().Str("path", path).Msg("created default config")
		}
	}

	cfg := defaults
	if err := v.Unmarshal(&cfg); err != nil {
		return defaults, path, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, path, err
	}
	return cfg, path, nil
}

func newViper(defaults Config) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("addr", defaults.Addr)
	v.SetDefault("read_header_timeout", defaults.ReadHeaderTimeout)
	v.SetDefault("shutdown_timeout", defaults.ShutdownTimeout)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("max_message_bytes", defaults.MaxMessageBytes)
	v.SetDefault("room_capacity", defaults.RoomCapacity)
	v.SetDefault("client_buffer", defaults.ClientBuffer)
	v.SetDefault("max_messages_per_minute", defaults.MaxMessagesPerMinute)
	v.SetDefault("asset_chunks_per_yield", defaults.AssetChunksPerYield)
	v.SetDefault("asset_yield_delay", defaults.AssetYieldDelay)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}
	if base := os.Getenv(envConfigDefaultPath); base != "" {
		if err := os.MkdirAll(base, 0o755); err == nil {
			return filepath.Join(base, defaultConfigName)
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return defaultConfigName
	}
	return filepath.Join(cwd, defaultConfigName)
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
