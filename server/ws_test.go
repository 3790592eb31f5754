package server

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/agisfl/agisfl/client"
	"github.com/agisfl/agisfl/proto"
	"github.com/agisfl/agisfl/store"
)

// startTestServer serves the realtime router on an ephemeral port and
// returns the composed server plus the base HTTP URL.
func startTestServer(t *testing.T) (*RealtimeServer, string) {
	t.Helper()

	srv := New(Options{Store: store.New()})
	transport := NewWSTransport("127.0.0.1:0")
	srv.RegisterTransport(transport)

	api := NewAPI(srv.Coordinator())
	api.Mount(transport.Router())

	ts := httptest.NewServer(transport.Router())
	t.Cleanup(ts.Close)

	return srv, ts.URL
}

func waitForMessage(t *testing.T, msgs <-chan proto.Message, want string) proto.Message {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case msg := <-msgs:
			if msg.Type == want {
				return msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q message", want)
		}
	}
}

func TestWSTransport_SubscribeAndReceiveUpdate(t *testing.T) {
	srv, baseURL := startTestServer(t)

	endpoint, err := client.Endpoint(baseURL)
	if err != nil {
		t.Fatalf("building endpoint: %v", err)
	}

	c := client.New(client.NewWSTransport(endpoint), client.WithAutoReconnect(false))
	defer c.Close()

	msgs := make(chan proto.Message, 16)
	c.OnMessage(func(msg proto.Message) {
		msgs <- msg
	})

	if err := c.Connect(); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	c.Subscribe(proto.ChannelThreats)
	ack := waitForMessage(t, msgs, proto.TypeSubscribed)
	if ack.Channel != proto.ChannelThreats {
		t.Errorf("expected ack for threats, got %q", ack.Channel)
	}

	threat := proto.ThreatEvent{ID: "t-1", Category: "port_scan", Severity: "high"}
	srv.Publish(proto.ChannelThreats, threat)

	update := waitForMessage(t, msgs, proto.TypeUpdate)
	if update.Channel != proto.ChannelThreats {
		t.Errorf("expected update on threats, got %q", update.Channel)
	}

	var got proto.ThreatEvent
	if err := json.Unmarshal(update.Data, &got); err != nil {
		t.Fatalf("decoding update payload: %v", err)
	}
	if got.ID != threat.ID || got.Category != threat.Category {
		t.Errorf("expected payload %+v, got %+v", threat, got)
	}
}

func TestWSTransport_PingPong(t *testing.T) {
	_, baseURL := startTestServer(t)

	endpoint, err := client.Endpoint(baseURL)
	if err != nil {
		t.Fatalf("building endpoint: %v", err)
	}

	c := client.New(client.NewWSTransport(endpoint),
		client.WithAutoReconnect(false),
		client.WithPingInterval(50*time.Millisecond))
	defer c.Close()

	msgs := make(chan proto.Message, 16)
	c.OnMessage(func(msg proto.Message) {
		msgs <- msg
	})

	if err := c.Connect(); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	pong := waitForMessage(t, msgs, proto.TypePong)
	if pong.Timestamp == "" {
		t.Error("expected pong to carry a timestamp")
	}

	deadline := time.Now().Add(3 * time.Second)
	for c.LastPong().IsZero() {
		if time.Now().After(deadline) {
			t.Fatal("LastPong never updated")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWSTransport_InvalidJSONGetsErrorReply(t *testing.T) {
	_, baseURL := startTestServer(t)

	endpoint, err := client.Endpoint(baseURL)
	if err != nil {
		t.Fatalf("building endpoint: %v", err)
	}

	transport := client.NewWSTransport(endpoint)
	c := client.New(transport, client.WithAutoReconnect(false))
	defer c.Close()

	msgs := make(chan proto.Message, 16)
	c.OnMessage(func(msg proto.Message) {
		msgs <- msg
	})

	if err := c.Connect(); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	if err := transport.Send([]byte("{not json")); err != nil {
		t.Fatalf("sending raw frame: %v", err)
	}

	reply := waitForMessage(t, msgs, proto.TypeError)
	if reply.Text == "" {
		t.Error("expected error reply to carry a message")
	}

	// The connection must survive the bad frame.
	c.Subscribe(proto.ChannelIncidents)
	waitForMessage(t, msgs, proto.TypeSubscribed)
}

func TestWSTransport_SessionCap(t *testing.T) {
	srv := New(Options{Store: store.New()})
	transport := NewWSTransport("127.0.0.1:0")
	transport.SetMaxSessions(1)
	srv.RegisterTransport(transport)

	ts := httptest.NewServer(transport.Router())
	t.Cleanup(ts.Close)

	endpoint, err := client.Endpoint(ts.URL)
	if err != nil {
		t.Fatalf("building endpoint: %v", err)
	}

	first := client.New(client.NewWSTransport(endpoint), client.WithAutoReconnect(false))
	if err := first.Connect(); err != nil {
		t.Fatalf("first connect failed: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for srv.Coordinator().Registry.Count() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("first session never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	second := client.New(client.NewWSTransport(endpoint), client.WithAutoReconnect(false))
	if err := second.Connect(); err == nil {
		t.Error("expected connect beyond the session cap to be rejected")
	}
	second.Close()

	// Closing the first session must free its slot for a new connection.
	first.Close()
	deadline = time.Now().Add(3 * time.Second)
	for srv.Coordinator().Registry.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("first session never reaped")
		}
		time.Sleep(10 * time.Millisecond)
	}

	third := client.New(client.NewWSTransport(endpoint), client.WithAutoReconnect(false))
	defer third.Close()
	if err := third.Connect(); err != nil {
		t.Errorf("expected freed slot to accept a new session, got %v", err)
	}
}

func TestWSTransport_SubscriptionsDoNotSurviveNewSession(t *testing.T) {
	srv, baseURL := startTestServer(t)

	endpoint, err := client.Endpoint(baseURL)
	if err != nil {
		t.Fatalf("building endpoint: %v", err)
	}

	first := client.New(client.NewWSTransport(endpoint), client.WithAutoReconnect(false))
	msgs := make(chan proto.Message, 16)
	first.OnMessage(func(msg proto.Message) { msgs <- msg })

	if err := first.Connect(); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	first.Subscribe(proto.ChannelThreats)
	waitForMessage(t, msgs, proto.TypeSubscribed)
	first.Close()

	// Wait for the server to reap the session.
	deadline := time.Now().Add(3 * time.Second)
	for srv.Coordinator().Registry.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("session never removed from registry")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if n := len(srv.Coordinator().Broker.Channels()); n != 0 {
		t.Errorf("expected broker channels cleared after disconnect, got %v", srv.Coordinator().Broker.Channels())
	}
}
