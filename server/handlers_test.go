package server

import (
	"testing"

	"github.com/agisfl/agisfl/proto"
	"github.com/agisfl/agisfl/store"
)

func newTestCoordinator() *Coordinator {
	return NewCoordinator(NewSessionRegistry(), NewBroker(), store.New(), nil)
}

func TestHandle_Subscribe(t *testing.T) {
	coord := newTestCoordinator()
	session := newMockSession("s1")
	coord.Registry.Store(session)

	coord.Handle(proto.Message{
		Type:    proto.TypeSubscribe,
		Channel: proto.ChannelThreats,
		Sender:  "s1",
	})

	if _, ok := coord.Broker.Subs(proto.ChannelThreats)[session]; !ok {
		t.Error("expected session to be subscribed in broker")
	}

	subs := session.Meta().Subscriptions()
	if len(subs) != 1 || subs[0] != proto.ChannelThreats {
		t.Errorf("expected session metadata to track threats, got %v", subs)
	}

	msgs := session.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(msgs))
	}
	if msgs[0].Type != proto.TypeSubscribed || msgs[0].Channel != proto.ChannelThreats {
		t.Errorf("expected subscribed ack for threats, got %+v", msgs[0])
	}
}

func TestHandle_Unsubscribe(t *testing.T) {
	coord := newTestCoordinator()
	session := newMockSession("s1")
	coord.Registry.Store(session)

	coord.Handle(proto.Message{Type: proto.TypeSubscribe, Channel: proto.ChannelThreats, Sender: "s1"})
	coord.Handle(proto.Message{Type: proto.TypeUnsubscribe, Channel: proto.ChannelThreats, Sender: "s1"})

	if n := len(coord.Broker.Subs(proto.ChannelThreats)); n != 0 {
		t.Errorf("expected 0 subscribers after unsubscribe, got %d", n)
	}
	if n := len(session.Meta().Subscriptions()); n != 0 {
		t.Errorf("expected session metadata cleared, got %v", session.Meta().Subscriptions())
	}

	msgs := session.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 replies, got %d", len(msgs))
	}
	if msgs[1].Type != proto.TypeUnsubscribed {
		t.Errorf("expected unsubscribed ack, got %q", msgs[1].Type)
	}
}

func TestHandle_SubscribeWithoutChannel(t *testing.T) {
	coord := newTestCoordinator()
	session := newMockSession("s1")
	coord.Registry.Store(session)

	coord.Handle(proto.Message{Type: proto.TypeSubscribe, Sender: "s1"})

	msgs := session.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(msgs))
	}
	if msgs[0].Type != proto.TypeError {
		t.Errorf("expected error reply, got %q", msgs[0].Type)
	}
	if n := len(coord.Broker.Channels()); n != 0 {
		t.Errorf("expected no broker channels, got %v", coord.Broker.Channels())
	}
}

func TestHandle_Ping(t *testing.T) {
	coord := newTestCoordinator()
	session := newMockSession("s1")
	coord.Registry.Store(session)

	coord.Handle(proto.Message{Type: proto.TypePing, Sender: "s1"})

	msgs := session.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(msgs))
	}
	if msgs[0].Type != proto.TypePong {
		t.Errorf("expected pong, got %q", msgs[0].Type)
	}
	if msgs[0].Timestamp == "" {
		t.Error("expected pong to carry a timestamp")
	}
}

func TestHandle_UnknownType(t *testing.T) {
	coord := newTestCoordinator()
	session := newMockSession("s1")
	coord.Registry.Store(session)

	coord.Handle(proto.Message{Type: "bogus", Sender: "s1"})

	msgs := session.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(msgs))
	}
	if msgs[0].Type != proto.TypeError {
		t.Errorf("expected error reply, got %q", msgs[0].Type)
	}
}

func TestHandle_UnknownSenderIgnored(t *testing.T) {
	coord := newTestCoordinator()

	// Must not panic or register anything.
	coord.Handle(proto.Message{Type: proto.TypeSubscribe, Channel: proto.ChannelThreats, Sender: "ghost"})

	if n := len(coord.Broker.Channels()); n != 0 {
		t.Errorf("expected no broker channels, got %v", coord.Broker.Channels())
	}
}

func TestPublish_BuildsDashboardUpdate(t *testing.T) {
	coord := newTestCoordinator()
	session := newMockSession("s1")
	coord.Registry.Store(session)
	coord.Broker.Subscribe(proto.ChannelFLRounds, session)

	coord.Publish(proto.ChannelFLRounds, proto.FLRound{Round: 7, Accuracy: 0.91})

	msgs := session.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	got := msgs[0]
	if got.Type != proto.TypeUpdate {
		t.Errorf("expected type %q, got %q", proto.TypeUpdate, got.Type)
	}
	if got.Channel != proto.ChannelFLRounds {
		t.Errorf("expected channel %q, got %q", proto.ChannelFLRounds, got.Channel)
	}
	if got.Timestamp == "" {
		t.Error("expected update to carry a timestamp")
	}
}
