package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir(), nil)
	require.NoError(t, err)
	require.Equal(t, "ws://localhost:8765", cfg.ServerURL)
	require.Equal(t, "127.0.0.1:18765", cfg.ListenAddr)
	require.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	require.Equal(t, 10*time.Second, cfg.HandshakeTimeout)
	require.Equal(t, 64, cfg.SendQueue)
	require.Equal(t, 64*1024, cfg.DiagnosticsBytes)
	require.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	require.True(t, cfg.BridgeEnabled())
	require.Zero(t, cfg.PlayerID)
}

func TestLoadFileEnvAndOverrides(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`server_url: https://game.example.com/socket
poll_interval: 1s
game_key: ABCD
player_id: 3
player_name: From File
log_level: debug
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "trebek.yaml"), yaml, 0o600))
	t.Setenv("TREBEK_PLAYER_NAME", "From Env")
	t.Setenv("TREBEK_SEND_QUEUE", "8")

	cfg, err := Load(dir, map[string]any{"player_id": int64(9)})
	require.NoError(t, err)
	require.Equal(t, "wss://game.example.com/socket", cfg.ServerURL)
	require.Equal(t, time.Second, cfg.PollInterval)
	require.Equal(t, "ABCD", cfg.GameKey)
	require.Equal(t, "From Env", cfg.PlayerName)
	require.Equal(t, 8, cfg.SendQueue)
	require.Equal(t, int64(9), cfg.PlayerID)
	require.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoadExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "player.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: \"\"\n"), 0o600))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	require.False(t, cfg.BridgeEnabled())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]any{
		"bad scheme":       {"server_url": "ftp://game.example.com"},
		"no host":          {"server_url": "ws://"},
		"zero poll":        {"poll_interval": "0s"},
		"negative player":  {"player_id": -1},
		"empty queue":      {"send_queue": 0},
		"negative timeout": {"handshake_timeout": "-1s"},
		"missing token":    {"ui_token": ""},
		"bad level":        {"log_level": "loud"},
	}
	for name, overrides := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(t.TempDir(), overrides)
			require.Error(t, err)
		})
	}
}

func TestBridgeDisabledNeedsNoToken(t *testing.T) {
	cfg, err := Load(t.TempDir(), map[string]any{"listen_addr": "", "ui_token": ""})
	require.NoError(t, err)
	require.False(t, cfg.BridgeEnabled())
}
