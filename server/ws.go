package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/agisfl/agisfl/proto"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboard origins are not restricted
	},
}

// WSTransport serves the realtime WebSocket endpoint at /ws on an HTTP
// server. The REST API is mounted on the same router via Router before
// Start is called.
type WSTransport struct {
	Addr   string
	server *http.Server
	router chi.Router

	onMessage    func(proto.Message)
	onConnect    func(Session) error
	onDisconnect func(Session)

	// smu guards sessions, reserved, maxSessions, and connected.
	smu      sync.RWMutex
	sessions map[string]Session
	// reserved counts upgrades that passed the cap check but have not yet
	// landed in sessions, so concurrent upgrades cannot exceed the cap.
	reserved int

	maxSessions int
	connected   bool
}

func NewWSTransport(addr string) *WSTransport {
	t := &WSTransport{
		Addr:        addr,
		sessions:    make(map[string]Session),
		maxSessions: 64,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/ws", t.handleUpgrade)
	t.router = r

	return t
}

// Router exposes the underlying router so the REST API can be mounted
// alongside /ws before Start.
func (t *WSTransport) Router() chi.Router {
	return t.router
}

func (t *WSTransport) SetMaxSessions(n int) {
	t.smu.Lock()
	defer t.smu.Unlock()
	t.maxSessions = n
}

func (t *WSTransport) Start() error {
	if t.onConnect == nil || t.onDisconnect == nil || t.onMessage == nil {
		return fmt.Errorf("transport callbacks not wired; register the transport with a coordinator before starting")
	}

	slog.Info("starting realtime server", "addr", t.Addr)

	t.server = &http.Server{
		Addr:    t.Addr,
		Handler: t.router,
	}

	t.setConnected(true)
	err := t.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		t.setConnected(false)
		return err
	}

	return nil
}

func (t *WSTransport) setConnected(v bool) {
	t.smu.Lock()
	defer t.smu.Unlock()
	t.connected = v
}

func (t *WSTransport) Shutdown() error {
	slog.Info("shutting down realtime server", "addr", t.Addr)
	t.setConnected(false)
	if t.server != nil {
		return t.server.Close()
	}
	return nil
}

func (t *WSTransport) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	// Reserve a slot before upgrading so concurrent upgrades cannot race
	// past the cap; handleConnection converts the reservation into a
	// session entry, or releaseSlot returns it.
	t.smu.Lock()
	if len(t.sessions)+t.reserved >= t.maxSessions {
		t.smu.Unlock()
		slog.Warn("max sessions reached, rejecting connection", "remote_addr", r.RemoteAddr)
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}
	t.reserved++
	t.smu.Unlock()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		t.releaseSlot()
		return
	}

	go t.handleConnection(conn, r.RemoteAddr)
}

func (t *WSTransport) releaseSlot() {
	t.smu.Lock()
	defer t.smu.Unlock()
	t.reserved--
}

func (t *WSTransport) handleConnection(conn *websocket.Conn, remoteAddr string) {
	slog.Info("dashboard client connected", "addr", remoteAddr)

	session := newWSSession(conn, remoteAddr)

	t.smu.Lock()
	t.reserved--
	t.sessions[session.ID] = session
	t.smu.Unlock()

	defer func() {
		t.smu.Lock()
		delete(t.sessions, session.ID)
		t.smu.Unlock()

		t.onDisconnect(session)

		conn.Close()
		slog.Info("dashboard client disconnected", "addr", remoteAddr, "id", session.ID)
	}()

	if err := t.onConnect(session); err != nil {
		slog.Error("failed to register session", "addr", remoteAddr, "error", err)
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket connection error", "addr", remoteAddr, "error", err)
			}
			break
		}

		var msg proto.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			// Parse failures are isolated: tell the client and keep reading.
			slog.Warn("invalid JSON frame received", "addr", remoteAddr, "error", err)
			_ = session.Send(proto.Error("invalid JSON format"))
			continue
		}

		msg.Sender = session.ID
		slog.Debug("realtime message received", "type", msg.Type, "channel", msg.Channel, "sender", msg.Sender)
		t.onMessage(msg)
	}
}

func (t *WSTransport) OnMessage(fn func(proto.Message)) {
	t.onMessage = fn
}

func (t *WSTransport) OnConnect(fn func(Session) error) {
	t.onConnect = fn
}

func (t *WSTransport) OnDisconnect(fn func(Session)) {
	t.onDisconnect = fn
}

func (t *WSTransport) Meta() TransportMetadata {
	t.smu.RLock()
	defer t.smu.RUnlock()

	return TransportMetadata{
		ID:          "ws-" + t.Addr,
		Protocol:    "websocket",
		Address:     t.Addr,
		Sessions:    len(t.sessions),
		MaxSessions: t.maxSessions,
		Connected:   t.connected,
	}
}
