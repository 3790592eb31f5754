package server

import (
	"log/slog"
	"sync"

	"github.com/agisfl/agisfl/proto"
)

// Broker maps channel names to the sessions subscribed to them. Channels
// are created on first subscribe and removed when their last subscriber
// leaves.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[Session]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[Session]struct{}),
	}
}

func (b *Broker) Subscribe(channel string, session Session) {
	slog.Debug("subscribing", "channel", channel, "session", session.Meta().ID)
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[channel] == nil {
		b.subs[channel] = make(map[Session]struct{})
	}
	b.subs[channel][session] = struct{}{}
}

func (b *Broker) Unsubscribe(channel string, session Session) {
	slog.Debug("unsubscribing", "channel", channel, "session", session.Meta().ID)
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.subs[channel]; ok {
		delete(subs, session)
		if len(subs) == 0 {
			delete(b.subs, channel)
		}
	}
}

// DropSession removes the session from every channel. Called on disconnect
// so a dead session never lingers in a subscriber set.
func (b *Broker) DropSession(session Session) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for channel, subs := range b.subs {
		delete(subs, session)
		if len(subs) == 0 {
			delete(b.subs, channel)
		}
	}
}

// Publish delivers msg to every subscriber of msg.Channel. A send failure to
// one session is logged and does not block the rest.
func (b *Broker) Publish(msg proto.Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	sent := 0
	for session := range b.subs[msg.Channel] {
		if err := session.Send(msg); err != nil {
			slog.Warn("failed to publish to subscriber",
				"channel", msg.Channel, "session", session.Meta().ID, "error", err)
			continue
		}
		sent++
	}
	slog.Debug("message published",
		"type", msg.Type,
		"channel", msg.Channel,
		"subscribers", sent,
		"size", len(msg.Data),
	)
}

// Subs returns a copy of the subscriber set for channel.
func (b *Broker) Subs(channel string) map[Session]struct{} {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[Session]struct{}, len(b.subs[channel]))
	for session := range b.subs[channel] {
		out[session] = struct{}{}
	}
	return out
}

// Channels returns the names of all channels with at least one subscriber.
func (b *Broker) Channels() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	channels := make([]string, 0, len(b.subs))
	for ch := range b.subs {
		channels = append(channels, ch)
	}
	return channels
}
