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
	envConfigDir      = "CHATRELAY_CONFIG_DEFAULT_PATH"
	defaultConfigName = "config.yaml"
)

// Load resolves configuration with precedence defaults < config file <
// CHATRELAY_* env vars, and returns the config file path it settled on.
// A missing file is seeded from the defaults so the first run leaves an
// editable config behind; failing to seed it is not fatal.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()
	path := configFilePath(explicitPath)

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)
	v.SetEnvPrefix("CHATRELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range map[string]any{
		"addr":                cfg.Addr,
		"database_path":       cfg.DatabasePath,
		"upload_dir":          cfg.UploadDir,
		"public_base_url":     cfg.PublicBaseURL,
		"log_level":           cfg.LogLevel,
		"read_header_timeout": cfg.ReadHeaderTimeout,
		"shutdown_timeout":    cfg.ShutdownTimeout,
		"room_idle_timeout":   cfg.RoomIdleTimeout,
	} {
		v.SetDefault(key, value)
	}

	switch err := v.ReadInConfig(); {
	case err == nil:
	case isMissingConfig(err):
		seedConfigFile(logger, path, cfg)
		if rereadErr := v.ReadInConfig(); rereadErr != nil && logger != nil {
			logger.Warn().Err(rereadErr).Str("path", path).Msg("seeded config not readable")
		}
	default:
		return cfg, path, fmt.Errorf("read config: %w", err)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, path, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, path, nil
}

func isMissingConfig(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

func seedConfigFile(logger *zerolog.Logger, path string, cfg Config) {
	err := func() error {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		return os.WriteFile(path, data, 0o600)
	}()

	if logger == nil {
		return
	}
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("failed to seed default config")
		return
	}
	logger.Info().Str("path", path).Msg("created default config")
}

// configFilePath picks the config location: explicit flag, then the
// directory named by CHATRELAY_CONFIG_DEFAULT_PATH, then the working
// directory.
func configFilePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if dir := os.Getenv(envConfigDir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err == nil {
			return filepath.Join(dir, defaultConfigName)
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		return filepath.Join(cwd, defaultConfigName)
	}
	return defaultConfigName
}
