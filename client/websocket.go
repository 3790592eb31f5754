package client

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSTransport is the gorilla/websocket implementation of Transport. It keeps
// no state across connections beyond its configuration, so a single instance
// can be dialed again after the connection drops.
type WSTransport struct {
	mu      sync.Mutex
	url     string
	dialer  *websocket.Dialer
	headers http.Header
	conn    *websocket.Conn

	handshakeTimeout time.Duration
	writeTimeout     time.Duration
}

type WSOption func(*WSTransport)

func WithHeaders(headers http.Header) WSOption {
	return func(t *WSTransport) {
		t.headers = headers
	}
}

func WithWriteTimeout(d time.Duration) WSOption {
	return func(t *WSTransport) {
		t.writeTimeout = d
	}
}

func WithHandshakeTimeout(d time.Duration) WSOption {
	return func(t *WSTransport) {
		t.handshakeTimeout = d
	}
}

func NewWSTransport(url string, opts ...WSOption) *WSTransport {
	t := &WSTransport{
		url:              url,
		dialer:           websocket.DefaultDialer,
		headers:          make(http.Header),
		handshakeTimeout: 10 * time.Second,
		writeTimeout:     10 * time.Second,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func (t *WSTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return nil
	}

	dialer := *t.dialer
	dialer.HandshakeTimeout = t.handshakeTimeout

	conn, _, err := dialer.DialContext(ctx, t.url, t.headers)
	if err != nil {
		return fmt.Errorf("websocket dial %s: %w", t.url, err)
	}

	t.conn = conn
	return nil
}

func (t *WSTransport) Send(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return fmt.Errorf("websocket send: not connected")
	}

	if t.writeTimeout > 0 {
		if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
			return err
		}
	}

	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *WSTransport) Receive() ([]byte, error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return nil, fmt.Errorf("websocket receive: not connected")
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, fmt.Errorf("%w: %v", ErrClosedNormally, err)
		}
		return nil, err
	}

	return data, nil
}

func (t *WSTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil
	}

	// Best effort: tell the peer this is a deliberate close before dropping
	// the socket, so it is not counted as an abnormal disconnect.
	_ = t.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)

	err := t.conn.Close()
	t.conn = nil
	return err
}
