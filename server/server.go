package server

import (
	"context"

	"github.com/agisfl/agisfl/store"
)

type Options struct {
	MCPServer *MCPServer       // Optional stdio MCP surface
	Broker    *Broker          // Optional (defaults to new Broker if nil)
	Registry  *SessionRegistry // Optional (defaults to new Registry if nil)
	Store     *store.Store     // Optional (defaults to new Store if nil)
}

// RealtimeServer is the composition root for the realtime service.
type RealtimeServer struct {
	options     Options
	coordinator *Coordinator
}

func New(opts Options) *RealtimeServer {
	if opts.Broker == nil {
		opts.Broker = NewBroker()
	}
	if opts.Registry == nil {
		opts.Registry = NewSessionRegistry()
	}
	if opts.Store == nil {
		opts.Store = store.New()
	}

	coordinator := NewCoordinator(opts.Registry, opts.Broker, opts.Store, opts.MCPServer)

	return &RealtimeServer{
		options:     opts,
		coordinator: coordinator,
	}
}

func (s *RealtimeServer) RegisterTransport(t Transport) {
	s.coordinator.RegisterTransport(t)
}

// Publish broadcasts a dashboard update to every subscriber of channel.
func (s *RealtimeServer) Publish(channel string, data any) {
	s.coordinator.Publish(channel, data)
}

func (s *RealtimeServer) Store() *store.Store {
	return s.coordinator.Store
}

func (s *RealtimeServer) Coordinator() *Coordinator {
	return s.coordinator
}

// Start blocks until ctx is cancelled, then shuts the transports down.
func (s *RealtimeServer) Start(ctx context.Context) error {
	return s.coordinator.Start(ctx)
}
