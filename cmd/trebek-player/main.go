package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"trebek-player/internal/audit"
	"trebek-player/internal/config"
	"trebek-player/internal/diag"
	"trebek-player/internal/game"
	httpapi "trebek-player/internal/http"
	"trebek-player/internal/session"
	"trebek-player/internal/ui"
)

// flagKeys maps command-line flags to config keys. Only flags given on the
// command line override the loaded config.
var flagKeys = map[string]string{
	"server-url":  "server_url",
	"listen":      "listen_addr",
	"ui-token":    "ui_token",
	"game-key":    "game_key",
	"player-id":   "player_id",
	"player-name": "player_name",
	"audit-path":  "audit_path",
	"log-level":   "log_level",
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{})))
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "err", err)
	}

	configPath := flag.String("config", getenv("TREBEK_CONFIG", ""), "config file or directory containing trebek.yaml")
	flag.String("server-url", "", "game server websocket url")
	flag.String("listen", "", "local ui bridge listen address")
	flag.String("ui-token", "", "ui bridge bearer token")
	flag.String("game-key", "", "game key")
	flag.Int64("player-id", 0, "player id")
	flag.String("player-name", "", "player display name")
	flag.String("audit-path", "", "audit jsonl path")
	flag.String("log-level", "", "debug, info, warn or error")
	flag.Parse()

	overrides := map[string]any{}
	flag.Visit(func(f *flag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			overrides[key] = f.Value.String()
		}
	})

	cfg, err := config.Load(*configPath, overrides)
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ring := diag.NewRing(cfg.DiagnosticsBytes)
	slog.SetDefault(slog.New(slog.NewJSONHandler(io.MultiWriter(os.Stdout, ring), &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	auditLog, err := audit.Open(cfg.AuditPath)
	if err != nil {
		slog.Error("open audit log failed", "path", cfg.AuditPath, "err", err)
		os.Exit(1)
	}
	defer auditLog.Close()

	sess := session.New(session.Config{
		URL:       cfg.ServerURL,
		Dial:      session.WebsocketDialer(cfg.HandshakeTimeout),
		SendQueue: cfg.SendQueue,
	})
	hub := ui.NewHub()
	reducer := game.NewReducer(sess, hub)
	sess.Subscribe(reducer.Dispatch)
	reducer.Render()

	sess.SetGameKey(cfg.GameKey)
	sess.SetPlayerID(cfg.PlayerID)
	sess.SetPlayerName(cfg.PlayerName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(cfg.PollInterval)
		defer ticker.Stop()
		sess.PollReadiness()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				sess.PollReadiness()
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("trebek-player shutting down")
		return sess.Close()
	})

	if cfg.BridgeEnabled() {
		api := &httpapi.Server{
			Player:      reducer,
			Link:        sess,
			Hub:         hub,
			Audit:       auditLog,
			Diag:        ring,
			Limiter:     httpapi.NewRateLimiter(cfg.RateLimitPerMin, time.Minute),
			UIToken:     cfg.UIToken,
			CheckOrigin: cfg.CheckOrigin,
		}
		srv := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           api.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			slog.Info("ui bridge listening", "addr", cfg.ListenAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	slog.Info("trebek-player started", "server_url", cfg.ServerURL, "identity_ready", sess.Identity().Ready())
	if err := g.Wait(); err != nil {
		slog.Error("trebek-player stopped with error", "err", err)
		os.Exit(1)
	}
}

func getenv(k, fallback string) string {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	return v
}
