package server

import (
	"log/slog"

	"github.com/agisfl/agisfl/proto"
)

// Handle dispatches one inbound command from a session.
func (c *Coordinator) Handle(msg proto.Message) {
	switch msg.Type {
	case proto.TypeSubscribe, proto.TypeUnsubscribe:
		c.handleSubscription(msg)

	case proto.TypePing:
		c.handlePing(msg)

	default:
		slog.Warn("unhandled message type", "type", msg.Type, "sender", msg.Sender)
		c.reply(msg.Sender, proto.Error("unknown message type: "+msg.Type))
	}
}

func (c *Coordinator) handleSubscription(msg proto.Message) {
	session, ok := c.Registry.Get(msg.Sender)
	if !ok {
		slog.Warn("session not found", "session", msg.Sender)
		return
	}

	if msg.Channel == "" {
		c.reply(msg.Sender, proto.Error("channel required"))
		return
	}

	info := session.Meta()
	switch msg.Type {
	case proto.TypeSubscribe:
		c.Broker.Subscribe(msg.Channel, session)
		info.Mu.Lock()
		info.Subs[msg.Channel] = struct{}{}
		info.Mu.Unlock()
		c.reply(msg.Sender, proto.Subscribed(msg.Channel))

	case proto.TypeUnsubscribe:
		c.Broker.Unsubscribe(msg.Channel, session)
		info.Mu.Lock()
		delete(info.Subs, msg.Channel)
		info.Mu.Unlock()
		c.reply(msg.Sender, proto.Unsubscribed(msg.Channel))
	}
}

func (c *Coordinator) handlePing(msg proto.Message) {
	c.reply(msg.Sender, proto.Pong())
}

func (c *Coordinator) reply(sessionID string, msg proto.Message) {
	session, ok := c.Registry.Get(sessionID)
	if !ok {
		return
	}
	if err := session.Send(msg); err != nil {
		slog.Warn("failed to reply to session", "session", sessionID, "type", msg.Type, "error", err)
	}
}
