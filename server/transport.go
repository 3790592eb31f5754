// Package server implements the dashboard backend the realtime clients talk
// to: a WebSocket transport that accepts sessions, a broker that fans
// dashboard updates out to channel subscribers, and a coordinator that
// dispatches inbound commands.
package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agisfl/agisfl/proto"
)

// Transport accepts client sessions and feeds their messages to the
// coordinator. Callbacks must be wired before Start.
type Transport interface {
	Start() error
	Shutdown() error
	OnMessage(func(proto.Message))
	OnConnect(func(Session) error)
	OnDisconnect(func(Session))
	Meta() TransportMetadata
}

// TransportMetadata describes a running transport for the status API.
type TransportMetadata struct {
	ID          string `json:"id"`
	Protocol    string `json:"protocol"`
	Address     string `json:"address"`
	Sessions    int    `json:"sessions"`
	MaxSessions int    `json:"max_sessions"`
	Connected   bool   `json:"connected"`
}

// SessionInfo is the per-session bookkeeping shared by all session kinds.
type SessionInfo struct {
	ID          string
	RemoteAddr  string
	ConnectedAt time.Time

	Mu   sync.RWMutex
	Subs map[string]struct{}
}

// Subscriptions returns a snapshot of the session's subscribed channels.
func (s *SessionInfo) Subscriptions() []string {
	s.Mu.RLock()
	defer s.Mu.RUnlock()

	channels := make([]string, 0, len(s.Subs))
	for ch := range s.Subs {
		channels = append(channels, ch)
	}
	return channels
}

// Session is one connected realtime client as seen by the server.
type Session interface {
	Send(proto.Message) error
	Meta() *SessionInfo
}

func generateSessionID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
