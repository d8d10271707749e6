package game

import (
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"trebek-player/internal/protocol"
	"trebek-player/internal/session"
)

// Transport is what the reducer needs from the session.
type Transport interface {
	Send(env protocol.Envelope) error
	Connect()
	CheckConnection() bool
}

// Reducer turns session events into game state, outbound envelopes and
// presenter notifications. Every entry point holds one mutex, so inbound
// events and user actions are applied one at a time.
type Reducer struct {
	transport Transport
	presenter Presenter

	mu        sync.Mutex
	state     State
	connected bool
	connID    string
	view      View
	rendered  bool
}

func NewReducer(transport Transport, presenter Presenter) *Reducer {
	if presenter == nil {
		presenter = nopPresenter{}
	}
	return &Reducer{
		transport: transport,
		presenter: presenter,
		state:     NewState(),
	}
}

// Render pushes the current view to the presenter.
func (r *Reducer) Render() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.render()
}

func (r *Reducer) render() {
	next := buildView(r.connected, r.state)
	present(r.presenter, r.view, next, !r.rendered)
	r.view = next
	r.rendered = true
}

func (r *Reducer) Snapshot() (State, View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state, buildView(r.connected, r.state)
}

// Dispatch is the session subscriber.
func (r *Reducer) Dispatch(ev session.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Kind {
	case session.EventOpened:
		r.connID = ev.ConnID
		r.connected = true
		r.state = NewState()
		r.send(protocol.NewPlayerConnected())
		r.render()
	case session.EventClosed:
		if ev.ConnID == r.connID {
			r.connected = false
			r.connID = ""
		}
		r.render()
		r.transport.CheckConnection()
	case session.EventMessage:
		if ev.ConnID != r.connID {
			slog.Debug("ignoring message from stale connection", "conn_id", ev.ConnID, "type", ev.Envelope.Type)
			return
		}
		r.handle(ev.Envelope)
	}
}

func (r *Reducer) handle(env protocol.Envelope) {
	switch env.Type {
	case protocol.Ping:
		r.send(env)
		return
	case protocol.Error:
		msg, err := env.Data.String(protocol.KeyError)
		if err != nil {
			slog.Warn("game server error", "payload", protocol.MapValue(env.Data).String())
			return
		}
		slog.Warn("game server error", "error", msg)
		return
	case protocol.AdminConnected:
		r.state.AdminConnected = true
	case protocol.GameReset, protocol.ChangeRound:
		slog.Info("resynchronizing", "type", env.Type)
		r.state = NewState()
		r.connected = false
		r.connID = ""
		r.render()
		r.transport.Connect()
		return
	case protocol.PopQuestion:
		id, err := questionID(env.Data)
		if err != nil {
			slog.Warn("bad question payload", "err", err)
			return
		}
		text, err := env.Data.String(protocol.KeyQuestionText)
		if err != nil {
			slog.Warn("bad question payload", "err", err)
			return
		}
		r.state.QuestionID = id
		r.state.QuestionText = text
	case protocol.ClearQuestion:
		r.state.QuestionID = ""
		r.state.QuestionText = ""
		r.state.WagerPrompt = false
		r.state.AnswerPrompt = false
	case protocol.RequireWager:
		maxWager, err := env.Data.Int(protocol.KeyMaxWager)
		if err != nil {
			slog.Warn("bad wager payload", "err", err)
			return
		}
		if env.Data.Has(protocol.KeyMinWager) {
			minWager, err := env.Data.Int(protocol.KeyMinWager)
			if err != nil {
				slog.Warn("bad wager payload", "err", err)
				return
			}
			r.state.MinWager = minWager
		}
		r.state.MaxWager = maxWager
		r.state.WagerPrompt = true
	case protocol.RequireAnswer:
		r.state.AnswerPrompt = true
	case protocol.UpdateScore:
		score, err := env.Data.Int(protocol.KeyScore)
		if err != nil {
			slog.Warn("bad score payload", "err", err)
			return
		}
		r.state.Score = score
	default:
		slog.Warn("unhandled message type", "type", env.Type)
		return
	}
	r.render()
}

func questionID(d protocol.Data) (string, error) {
	v, ok := d.Lookup(protocol.KeyQuestionID)
	if ok {
		if n, isInt := v.AsInt(); isInt {
			return strconv.FormatInt(n, 10), nil
		}
	}
	return d.String(protocol.KeyQuestionID)
}

func (r *Reducer) send(env protocol.Envelope) bool {
	if err := r.transport.Send(env); err != nil {
		slog.Warn("send failed", "type", env.Type, "err", err)
		return false
	}
	return true
}

// Buzz signals the player wants to answer the active question.
func (r *Reducer) Buzz() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.connected || !r.state.HasQuestion() {
		return false
	}
	return r.send(protocol.NewPlayerBuzzed(r.state.QuestionID))
}

// SubmitWager accepts an integer within [MinWager, MaxWager]. Anything
// else is rejected without a message.
func (r *Reducer) SubmitWager(raw string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.connected {
		return false
	}
	amount, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return false
	}
	if amount < r.state.MinWager || amount > r.state.MaxWager {
		return false
	}
	if !r.send(protocol.NewPlayerEnteredWager(amount)) {
		return false
	}
	r.state.WagerPrompt = false
	r.render()
	return true
}

func (r *Reducer) SubmitAnswer(text string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.connected || text == "" {
		return false
	}
	if !r.send(protocol.NewPlayerEnteredAnswer(text)) {
		return false
	}
	r.state.AnswerPrompt = false
	r.render()
	return true
}
