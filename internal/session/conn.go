package session

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var ErrSendQueueFull = errors.New("send queue full")

const (
	writeWait = 10 * time.Second
	closeWait = time.Second
)

// Conn is the subset of *websocket.Conn the session uses. WriteControl
// must be safe to call while another goroutine is in WriteMessage.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// DialFunc opens a connection to url. It must honor ctx cancellation.
type DialFunc func(ctx context.Context, url string) (Conn, error)

// WebsocketDialer dials with gorilla/websocket. A zero timeout leaves the
// handshake unbounded.
func WebsocketDialer(handshakeTimeout time.Duration) DialFunc {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
	}
	return func(ctx context.Context, url string) (Conn, error) {
		conn, _, err := dialer.DialContext(ctx, url, nil)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// link is one established connection with its outbound queue.
type link struct {
	id   string
	conn Conn
	out  chan []byte
	done chan struct{}
	once sync.Once
}

func newLink(id string, conn Conn, queue int) *link {
	return &link{
		id:   id,
		conn: conn,
		out:  make(chan []byte, queue),
		done: make(chan struct{}),
	}
}

func (l *link) enqueue(frame []byte) error {
	select {
	case <-l.done:
		return nil
	default:
	}
	select {
	case l.out <- frame:
		return nil
	default:
		return ErrSendQueueFull
	}
}

func (l *link) writeLoop() {
	for {
		select {
		case <-l.done:
			return
		case frame := <-l.out:
			_ = l.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := l.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				l.close()
				return
			}
		}
	}
}

// shutdown sends a normal closure frame, then closes the socket. It does
// not wait for the writer; a stalled peer costs at most closeWait.
func (l *link) shutdown() {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	_ = l.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWait))
	l.close()
}

func (l *link) close() {
	l.once.Do(func() {
		close(l.done)
		_ = l.conn.Close()
	})
}

func NormalizeWSURL(base string) (string, error) {
	if strings.HasPrefix(base, "ws://") || strings.HasPrefix(base, "wss://") {
		return base, nil
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if u.Scheme == "http" {
		u.Scheme = "ws"
	} else if u.Scheme == "https" {
		u.Scheme = "wss"
	}
	return u.String(), nil
}
