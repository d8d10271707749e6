// Package session owns the connection to the game server: it retries
// until the player identity is complete, keeps at most one socket open,
// stamps identity onto outbound envelopes, and reports what happens on the
// wire through a single dispatch function.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"trebek-player/internal/protocol"
)

var ErrSessionClosed = errors.New("session closed")

const DefaultURL = "ws://localhost:8765"

type State int

const (
	Disconnected State = iota
	Connecting
	Open
	Closing
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closing:
		return "closing"
	default:
		return "unknown"
	}
}

// Identity gates connection eligibility.
type Identity struct {
	GameKey    string `json:"game_key"`
	PlayerID   int64  `json:"player_id"`
	PlayerName string `json:"player_name"`
}

func (id Identity) Ready() bool {
	return id.GameKey != "" && id.PlayerID != 0 && id.PlayerName != ""
}

type EventKind int

const (
	EventOpened EventKind = iota + 1
	EventMessage
	EventClosed
)

func (k EventKind) String() string {
	switch k {
	case EventOpened:
		return "opened"
	case EventMessage:
		return "message"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is delivered to the subscriber in wire order. ConnID names the
// connection attempt the event belongs to.
type Event struct {
	Kind     EventKind
	ConnID   string
	Envelope protocol.Envelope
	Err      error
}

type Config struct {
	URL string
	// Dial defaults to WebsocketDialer(0).
	Dial DialFunc
	// SendQueue is the number of outbound frames buffered per connection.
	SendQueue int
}

type Session struct {
	url   string
	dial  DialFunc
	queue int

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	identity   Identity
	state      State
	connecting bool
	shut       bool
	cur        *link
	failures   int

	dispatchMu sync.RWMutex
	dispatch   func(Event)
}

func New(cfg Config) *Session {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Dial == nil {
		cfg.Dial = WebsocketDialer(0)
	}
	if cfg.SendQueue <= 0 {
		cfg.SendQueue = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		url:    cfg.URL,
		dial:   cfg.Dial,
		queue:  cfg.SendQueue,
		ctx:    ctx,
		cancel: cancel,
		state:  Disconnected,
	}
}

// Subscribe installs the dispatch function. Events are delivered
// synchronously from the goroutine that observed them; fn must not block
// on the session.
func (s *Session) Subscribe(fn func(Event)) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()
	s.dispatch = fn
}

func (s *Session) emit(ev Event) {
	s.dispatchMu.RLock()
	fn := s.dispatch
	s.dispatchMu.RUnlock()
	if fn != nil {
		fn(ev)
	}
}

func (s *Session) SetGameKey(gameKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity.GameKey = gameKey
}

func (s *Session) SetPlayerID(playerID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity.PlayerID = playerID
}

func (s *Session) SetPlayerName(playerName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity.PlayerName = playerName
}

func (s *Session) Identity() Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PollReadiness starts a connection attempt when disconnected, idle and
// the identity is complete. It is meant to be called on a steady tick.
func (s *Session) PollReadiness() {
	s.mu.Lock()
	ok := !s.shut && s.state == Disconnected && !s.connecting && s.identity.Ready()
	s.mu.Unlock()
	if ok {
		s.Connect()
	}
}

// Connect starts a connection attempt unless one is already in flight.
// An open connection is replaced without a closed event.
func (s *Session) Connect() {
	s.mu.Lock()
	if s.shut || s.connecting {
		s.mu.Unlock()
		return
	}
	s.connecting = true
	s.state = Connecting
	prev := s.cur
	s.cur = nil
	s.mu.Unlock()

	if prev != nil {
		slog.Info("replacing game server connection", "conn_id", prev.id)
		go prev.shutdown()
	}
	go s.establish(uuid.NewString())
}

func (s *Session) establish(id string) {
	slog.Info("connecting to game server", "url", s.url, "conn_id", id)
	conn, err := s.dial(s.ctx, s.url)

	s.mu.Lock()
	s.connecting = false
	if err == nil && s.shut {
		err = ErrSessionClosed
	}
	if err != nil {
		s.state = Disconnected
		s.failures++
		failures := s.failures
		s.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		// Retries are immediate, so only the first failure of a streak is
		// worth a warning.
		level := slog.LevelWarn
		if failures > 1 {
			level = slog.LevelDebug
		}
		slog.Log(context.Background(), level, "game server connect failed", "url", s.url, "conn_id", id, "attempt", failures, "err", err)
		s.emit(Event{Kind: EventClosed, ConnID: id, Err: err})
		return
	}
	if s.failures > 0 {
		slog.Info("game server reachable again", "failed_attempts", s.failures)
	}
	s.failures = 0
	l := newLink(id, conn, s.queue)
	s.cur = l
	s.state = Open
	s.mu.Unlock()

	slog.Info("connected to game server", "url", s.url, "conn_id", id)
	go l.writeLoop()
	s.emit(Event{Kind: EventOpened, ConnID: id})
	s.readLoop(l)
}

func (s *Session) readLoop(l *link) {
	for {
		msgType, data, err := l.conn.ReadMessage()
		if err != nil {
			s.drop(l, err)
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		env, err := protocol.Decode(data)
		if err != nil {
			slog.Warn("dropping undecodable frame", "conn_id", l.id, "err", err)
			continue
		}
		if !s.isCurrent(l) {
			return
		}
		s.emit(Event{Kind: EventMessage, ConnID: l.id, Envelope: env})
	}
}

func (s *Session) isCurrent(l *link) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur == l
}

// drop retires l. Only the current connection produces a closed event.
func (s *Session) drop(l *link, err error) {
	l.close()
	s.mu.Lock()
	current := s.cur == l
	if current {
		s.cur = nil
		s.state = Disconnected
	}
	s.mu.Unlock()
	if !current {
		return
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		slog.Info("game server connection closed", "conn_id", l.id)
	} else {
		slog.Warn("game server connection lost", "conn_id", l.id, "err", err)
	}
	s.emit(Event{Kind: EventClosed, ConnID: l.id, Err: err})
}

// CheckConnection reports whether the session is open. When disconnected
// it starts a new attempt; while connecting it does nothing.
func (s *Session) CheckConnection() bool {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	switch state {
	case Open:
		return true
	case Disconnected:
		s.Connect()
	}
	return false
}

// Send stamps the identity onto env and queues it on the open connection.
// Envelopes sent while not open are dropped.
func (s *Session) Send(env protocol.Envelope) error {
	s.mu.Lock()
	l := s.cur
	id := s.identity
	open := s.state == Open && l != nil
	s.mu.Unlock()
	if !open {
		slog.Debug("dropping envelope while not open", "type", env.Type)
		return nil
	}
	frame, err := protocol.Encode(env.Stamp(id.GameKey, id.PlayerID, id.PlayerName))
	if err != nil {
		return err
	}
	return l.enqueue(frame)
}

// Close shuts the session down. Queued sends may be lost.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.shut {
		s.mu.Unlock()
		return nil
	}
	s.shut = true
	l := s.cur
	if l != nil {
		s.state = Closing
	}
	s.mu.Unlock()

	s.cancel()
	if l != nil {
		l.shutdown()
	}
	return nil
}
