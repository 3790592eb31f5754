package server

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agisfl/agisfl/proto"
)

type wsSession struct {
	SessionInfo
	conn *websocket.Conn

	// Gorilla connections allow one concurrent writer; broadcasts and
	// coordinator replies can race without this.
	writeMu sync.Mutex
}

func newWSSession(conn *websocket.Conn, remoteAddr string) *wsSession {
	return &wsSession{
		SessionInfo: SessionInfo{
			ID:          generateSessionID("ws"),
			RemoteAddr:  remoteAddr,
			ConnectedAt: time.Now().UTC(),
			Subs:        make(map[string]struct{}),
		},
		conn: conn,
	}
}

func (s *wsSession) Send(msg proto.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}

	slog.Debug("sent realtime message", "to", s.ID, "type", msg.Type, "channel", msg.Channel)
	return nil
}

func (s *wsSession) Meta() *SessionInfo {
	return &s.SessionInfo
}
