// Package ui fans presenter changes out to local UI subscribers.
package ui

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	FrameDisplayText  = "display_text"
	FrameWagerPrompt  = "wager_prompt"
	FrameAnswerPrompt = "answer_prompt"
	FrameBuzz         = "buzz"
	FrameScore        = "score"
	FrameSnapshot     = "snapshot"
	FrameAck          = "ack"
	FrameError        = "error"
)

// Frame is what the UI socket carries in both directions.
type Frame struct {
	Type string          `json:"type"`
	TsMS int64           `json:"ts_ms,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

func NewFrame(frameType string, data any) Frame {
	f := Frame{Type: frameType, TsMS: time.Now().UnixMilli()}
	if data != nil {
		f.Data, _ = json.Marshal(data)
	}
	return f
}

// Screen is everything the player can currently see.
type Screen struct {
	DisplayText  string `json:"display_text"`
	WagerPrompt  bool   `json:"wager_prompt"`
	MinWager     int64  `json:"min_wager"`
	MaxWager     int64  `json:"max_wager"`
	AnswerPrompt bool   `json:"answer_prompt"`
	Buzz         bool   `json:"buzz"`
	Score        int64  `json:"score"`
}

type Subscriber struct {
	ID    string
	Actor string
	Send  chan Frame
}

// Offer queues f unless the subscriber is backed up.
func (s *Subscriber) Offer(f Frame) bool {
	select {
	case s.Send <- f:
		return true
	default:
		return false
	}
}

// Hub implements game.Presenter. Every change is broadcast as a frame
// carrying the full Screen, so a dropped frame is repaired by the next one.
type Hub struct {
	mu          sync.RWMutex
	screen      Screen
	subscribers map[*Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[*Subscriber]struct{})}
}

// Register adds a subscriber and queues the current screen as its first
// frame.
func (h *Hub) Register(actor string, buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = 64
	}
	sub := &Subscriber{
		ID:    uuid.NewString(),
		Actor: actor,
		Send:  make(chan Frame, buffer),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	sub.Send <- NewFrame(FrameSnapshot, h.screen)
	h.subscribers[sub] = struct{}{}
	return sub
}

func (h *Hub) Unregister(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers, sub)
}

func (h *Hub) Screen() Screen {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.screen
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

func (h *Hub) DisplayText(text string) {
	h.update(FrameDisplayText, func(s *Screen) { s.DisplayText = text })
}

func (h *Hub) WagerPrompt(visible bool, minWager, maxWager int64) {
	h.update(FrameWagerPrompt, func(s *Screen) {
		s.WagerPrompt = visible
		s.MinWager = minWager
		s.MaxWager = maxWager
	})
}

func (h *Hub) AnswerPrompt(visible bool) {
	h.update(FrameAnswerPrompt, func(s *Screen) { s.AnswerPrompt = visible })
}

func (h *Hub) BuzzAffordance(visible bool) {
	h.update(FrameBuzz, func(s *Screen) { s.Buzz = visible })
}

func (h *Hub) Score(score int64) {
	h.update(FrameScore, func(s *Screen) { s.Score = score })
}

func (h *Hub) update(frameType string, apply func(*Screen)) {
	h.mu.Lock()
	apply(&h.screen)
	frame := NewFrame(frameType, h.screen)
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for s := range h.subscribers {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.Offer(frame)
	}
}
