package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"trebek-player/internal/ui"
)

const (
	uiSendBuffer = 64
	uiWriteWait  = 10 * time.Second
)

type uiHandler struct {
	server   *Server
	upgrader websocket.Upgrader
}

type ackData struct {
	Action   string `json:"action"`
	Accepted bool   `json:"accepted"`
}

func (h *uiHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	hub := h.server.Hub
	sub := hub.Register(actor(r), uiSendBuffer)
	slog.Info("ui subscriber attached", "subscriber_id", sub.ID)
	stopWriter := make(chan struct{})
	var stopOnce sync.Once
	cleanup := func() {
		stopOnce.Do(func() {
			hub.Unregister(sub)
			close(stopWriter)
		})
	}
	defer cleanup()

	doneWriter := make(chan struct{})
	go func() {
		defer close(doneWriter)
		for {
			select {
			case <-stopWriter:
				return
			case msg := <-sub.Send:
				_ = conn.SetWriteDeadline(time.Now().Add(uiWriteWait))
				if err := conn.WriteJSON(msg); err != nil {
					return
				}
			}
		}
	}()

	for {
		var msg ui.Frame
		if err := conn.ReadJSON(&msg); err != nil {
			cleanup()
			<-doneWriter
			slog.Info("ui subscriber detached", "subscriber_id", sub.ID)
			return
		}
		h.handleFrame(sub, msg)
	}
}

func (h *uiHandler) handleFrame(sub *ui.Subscriber, msg ui.Frame) {
	var ok bool
	switch msg.Type {
	case "buzz":
		ok = h.server.buzz(sub.Actor)
	case "wager":
		var req wagerRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			sub.Offer(errorFrame("bad_wager_payload"))
			return
		}
		ok = h.server.wager(sub.Actor, wagerText(req.Amount))
	case "answer":
		var req answerRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			sub.Offer(errorFrame("bad_answer_payload"))
			return
		}
		ok = h.server.answer(sub.Actor, req.Answer)
	default:
		sub.Offer(errorFrame("unknown_type"))
		return
	}
	sub.Offer(ui.NewFrame(ui.FrameAck, ackData{Action: msg.Type, Accepted: ok}))
}

func errorFrame(reason string) ui.Frame {
	return ui.NewFrame(ui.FrameError, map[string]any{"message": reason})
}
