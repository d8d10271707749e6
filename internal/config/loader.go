// Package config loads player settings from defaults, an optional YAML
// file, TREBEK_* environment variables and explicit overrides, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/spf13/viper"

	"trebek-player/internal/session"
)

const (
	EnvPrefix = "TREBEK"
	FileName  = "trebek"
)

var defaults = map[string]any{
	"server_url":         session.DefaultURL,
	"listen_addr":        "127.0.0.1:18765",
	"ui_token":           "player-dev-token",
	"check_origin":       false,
	"poll_interval":      "250ms",
	"handshake_timeout":  "10s",
	"send_queue":         64,
	"rate_limit_per_min": 600,
	"audit_path":         "",
	"diagnostics_bytes":  64 * 1024,
	"log_level":          "info",
	"game_key":           "",
	"player_id":          0,
	"player_name":        "",
}

// Load reads the configuration. configPath may name a file or a directory
// to search for trebek.yaml; "." and "config" are always searched. A
// missing file is not an error unless configPath names one explicitly.
func Load(configPath string, overrides map[string]any) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if strings.HasSuffix(configPath, ".yaml") || strings.HasSuffix(configPath, ".yml") {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		if configPath != "" {
			v.AddConfigPath(configPath)
		}
		v.AddConfigPath(".")
		v.AddConfigPath("config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}
	if used := v.ConfigFileUsed(); used != "" {
		slog.Debug("loaded config file", "path", used)
	}

	for k, val := range overrides {
		v.Set(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	normalized, err := session.NormalizeWSURL(strings.TrimSpace(cfg.ServerURL))
	if err != nil {
		return fmt.Errorf("invalid server_url %q: %w", cfg.ServerURL, err)
	}
	u, err := url.Parse(normalized)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return fmt.Errorf("invalid server_url %q: want ws://, wss://, http:// or https:// with a host", cfg.ServerURL)
	}
	cfg.ServerURL = normalized

	if cfg.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", cfg.PollInterval)
	}
	if cfg.HandshakeTimeout < 0 {
		return fmt.Errorf("handshake_timeout must not be negative, got %s", cfg.HandshakeTimeout)
	}
	if cfg.SendQueue <= 0 {
		return fmt.Errorf("send_queue must be positive, got %d", cfg.SendQueue)
	}
	if cfg.PlayerID < 0 {
		return fmt.Errorf("player_id must not be negative, got %d", cfg.PlayerID)
	}
	if cfg.BridgeEnabled() && cfg.UIToken == "" {
		return errors.New("ui_token is required when listen_addr is set")
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("invalid log_level %q", cfg.LogLevel)
	}
	return nil
}
