// Package httpapi is the local bridge a player UI talks to: a small JSON
// API for identity and actions plus a websocket that streams screen
// changes.
package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"trebek-player/internal/audit"
	"trebek-player/internal/diag"
	"trebek-player/internal/game"
	"trebek-player/internal/session"
	"trebek-player/internal/ui"
)

const defaultDiagnosticLines = 200

// Player is the set of user actions the bridge forwards.
type Player interface {
	Buzz() bool
	SubmitWager(raw string) bool
	SubmitAnswer(text string) bool
	Snapshot() (game.State, game.View)
}

// Link exposes the identity and connection state of the game session.
type Link interface {
	SetGameKey(gameKey string)
	SetPlayerID(playerID int64)
	SetPlayerName(playerName string)
	Identity() session.Identity
	State() session.State
}

type Server struct {
	Player      Player
	Link        Link
	Hub         *ui.Hub
	Audit       *audit.Journal
	Diag        *diag.Ring
	Limiter     *RateLimiter
	UIToken     string
	CheckOrigin bool
}

func (s *Server) Router() http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if s.CheckOrigin {
				return sameHostOrigin(r)
			}
			return true
		},
	}

	r := chi.NewRouter()
	r.Get("/api/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Group(func(r chi.Router) {
		r.Use(s.withUIAuth)
		r.Get("/api/state", s.handleState)
		r.Post("/api/identity", s.handleIdentity)
		r.Post("/api/buzz", s.handleBuzz)
		r.Post("/api/wager", s.handleWager)
		r.Post("/api/answer", s.handleAnswer)
		r.Get("/api/diagnostics", s.handleDiagnostics)
		r.Method(http.MethodGet, "/ws/ui", &uiHandler{server: s, upgrader: upgrader})
	})
	return r
}

func (s *Server) withUIAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" || token != s.UIToken {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if ok, wait := s.Limiter.Allow("ui:" + token); !ok {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type stateResponse struct {
	State    game.State       `json:"state"`
	View     game.View        `json:"view"`
	Session  string           `json:"session"`
	Identity session.Identity `json:"identity"`
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	state, view := s.Player.Snapshot()
	writeJSON(w, http.StatusOK, stateResponse{
		State:    state,
		View:     view,
		Session:  s.Link.State().String(),
		Identity: s.Link.Identity(),
	})
}

type identityRequest struct {
	GameKey    *string `json:"game_key"`
	PlayerID   *int64  `json:"player_id"`
	PlayerName *string `json:"player_name"`
}

func (s *Server) handleIdentity(w http.ResponseWriter, r *http.Request) {
	var req identityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.PlayerID != nil && *req.PlayerID < 0 {
		http.Error(w, "player_id must not be negative", http.StatusBadRequest)
		return
	}
	if req.GameKey != nil {
		s.Link.SetGameKey(strings.TrimSpace(*req.GameKey))
	}
	if req.PlayerID != nil {
		s.Link.SetPlayerID(*req.PlayerID)
	}
	if req.PlayerName != nil {
		s.Link.SetPlayerName(strings.TrimSpace(*req.PlayerName))
	}
	id := s.Link.Identity()
	s.Audit.Identity(actor(r), id)

	writeJSON(w, http.StatusOK, map[string]any{"identity": id, "ready": id.Ready()})
}

func (s *Server) handleBuzz(w http.ResponseWriter, r *http.Request) {
	writeAccepted(w, s.buzz(actor(r)))
}

type wagerRequest struct {
	Amount json.RawMessage `json:"amount"`
}

func (s *Server) handleWager(w http.ResponseWriter, r *http.Request) {
	var req wagerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	writeAccepted(w, s.wager(actor(r), wagerText(req.Amount)))
}

// wagerText accepts the amount either as a JSON number or as the text the
// player typed.
func wagerText(raw json.RawMessage) string {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	return strings.TrimSpace(string(raw))
}

type answerRequest struct {
	Answer string `json:"answer"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	writeAccepted(w, s.answer(actor(r), req.Answer))
}

// buzz, wager and answer forward a player action and journal it when the
// game accepted it. HTTP and the UI socket share them.
func (s *Server) buzz(who string) bool {
	state, _ := s.Player.Snapshot()
	if !s.Player.Buzz() {
		return false
	}
	s.Audit.Buzz(who, state.QuestionID)
	return true
}

func (s *Server) wager(who, raw string) bool {
	state, _ := s.Player.Snapshot()
	if !s.Player.SubmitWager(raw) {
		return false
	}
	amount, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err == nil {
		s.Audit.Wager(who, state.QuestionID, amount)
	}
	return true
}

func (s *Server) answer(who, text string) bool {
	state, _ := s.Player.Snapshot()
	if !s.Player.SubmitAnswer(text) {
		return false
	}
	s.Audit.Answer(who, state.QuestionID, text)
	return true
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	n := defaultDiagnosticLines
	if v := r.URL.Query().Get("lines"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			http.Error(w, "bad lines", http.StatusBadRequest)
			return
		}
		n = parsed
	}
	lines := []string{}
	if s.Diag != nil {
		if got := s.Diag.Lines(n); got != nil {
			lines = got
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"lines": lines})
}

func writeAccepted(w http.ResponseWriter, ok bool) {
	status := http.StatusAccepted
	if !ok {
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]any{"accepted": ok})
}

func actor(r *http.Request) string {
	return "ui:" + r.RemoteAddr
}

func extractToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[len("Bearer "):])
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sameHostOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}
