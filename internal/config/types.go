package config

import (
	"log/slog"
	"time"
)

type Config struct {
	ServerURL        string        `mapstructure:"server_url"`
	ListenAddr       string        `mapstructure:"listen_addr"`
	UIToken          string        `mapstructure:"ui_token"`
	CheckOrigin      bool          `mapstructure:"check_origin"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	SendQueue        int           `mapstructure:"send_queue"`
	RateLimitPerMin  int           `mapstructure:"rate_limit_per_min"`
	AuditPath        string        `mapstructure:"audit_path"`
	DiagnosticsBytes int           `mapstructure:"diagnostics_bytes"`
	LogLevel         string        `mapstructure:"log_level"`

	GameKey    string `mapstructure:"game_key"`
	PlayerID   int64  `mapstructure:"player_id"`
	PlayerName string `mapstructure:"player_name"`
}

// SlogLevel returns the parsed log level. Load has already rejected
// unknown names.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// BridgeEnabled reports whether the local UI bridge should listen.
func (c *Config) BridgeEnabled() bool {
	return c.ListenAddr != ""
}
