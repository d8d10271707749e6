package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"trebek-player/internal/protocol"
	"trebek-player/internal/session"
)

// pipeConn is an in-memory session.Conn fed by the test.
type pipeConn struct {
	in     chan []byte
	closed chan struct{}
	once   sync.Once

	mu     sync.Mutex
	writes []protocol.Envelope
	wrote  chan struct{}
}

func newPipeConn() *pipeConn {
	return &pipeConn{
		in:     make(chan []byte, 16),
		closed: make(chan struct{}),
		wrote:  make(chan struct{}, 64),
	}
}

func (c *pipeConn) ReadMessage() (int, []byte, error) {
	select {
	case b := <-c.in:
		return websocket.TextMessage, b, nil
	case <-c.closed:
		return 0, nil, errors.New("closed")
	}
}

func (c *pipeConn) WriteMessage(messageType int, data []byte) error {
	if messageType != websocket.TextMessage {
		return nil
	}
	env, err := protocol.Decode(data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.writes = append(c.writes, env)
	c.mu.Unlock()
	c.wrote <- struct{}{}
	return nil
}

func (c *pipeConn) WriteControl(int, []byte, time.Time) error { return nil }

func (c *pipeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *pipeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *pipeConn) written() []protocol.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.Envelope(nil), c.writes...)
}

func (c *pipeConn) waitWrite(t *testing.T) {
	t.Helper()
	select {
	case <-c.wrote:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outbound frame")
	}
}

func TestSessionAndReducerEndToEnd(t *testing.T) {
	conns := make(chan *pipeConn, 4)
	dial := func(ctx context.Context, url string) (session.Conn, error) {
		c := newPipeConn()
		conns <- c
		return c, nil
	}
	s := session.New(session.Config{URL: "ws://game.test", Dial: dial})
	defer s.Close()

	p := &lockedPresenter{}
	r := NewReducer(s, p)
	s.Subscribe(r.Dispatch)
	r.Render()

	s.SetGameKey("abcd")
	s.SetPlayerID(7)
	s.SetPlayerName("Ken")
	s.PollReadiness()

	var c *pipeConn
	select {
	case c = <-conns:
	case <-time.After(2 * time.Second):
		t.Fatal("session never dialed")
	}

	c.waitWrite(t)
	first := c.written()[0]
	require.Equal(t, protocol.PlayerConnected, first.Type)
	key, err := first.Data.String(protocol.KeyGameKey)
	require.NoError(t, err)
	require.Equal(t, "abcd", key)

	c.in <- []byte(`{"type":10,"data":{}}`)
	c.in <- []byte(`{"type":30,"data":{"question_id":"q1","question_text":"Capital of France?"}}`)

	require.Eventually(t, func() bool {
		_, view := r.Snapshot()
		return view.BuzzVisible
	}, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, "Capital of France?", p.text())

	require.True(t, r.Buzz())
	c.waitWrite(t)
	writes := c.written()
	require.Equal(t, protocol.PlayerBuzzed, writes[len(writes)-1].Type)

	// A reset makes the session dial again and re-announce.
	c.in <- []byte(`{"type":21}`)
	var next *pipeConn
	select {
	case next = <-conns:
	case <-time.After(2 * time.Second):
		t.Fatal("reset did not reconnect")
	}
	next.waitWrite(t)
	require.Equal(t, protocol.PlayerConnected, next.written()[0].Type)
	require.Eventually(t, func() bool { return p.text() == StatusWaitingAdmin }, 2*time.Second, 5*time.Millisecond)
}

type lockedPresenter struct {
	mu   sync.Mutex
	last string
}

func (p *lockedPresenter) DisplayText(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = text
}

func (p *lockedPresenter) text() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func (p *lockedPresenter) WagerPrompt(bool, int64, int64) {}
func (p *lockedPresenter) AnswerPrompt(bool)              {}
func (p *lockedPresenter) BuzzAffordance(bool)            {}
func (p *lockedPresenter) Score(int64)                    {}
