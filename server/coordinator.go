package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/agisfl/agisfl/proto"
	"github.com/agisfl/agisfl/store"
)

// Coordinator owns the session registry, the channel broker, and the
// transports, and dispatches every inbound command.
type Coordinator struct {
	Registry   *SessionRegistry
	Broker     *Broker
	MCPServer  *MCPServer
	Store      *store.Store
	Transports []Transport
}

func NewCoordinator(registry *SessionRegistry, broker *Broker, st *store.Store, mcpServer *MCPServer) *Coordinator {
	c := &Coordinator{Registry: registry, Broker: broker, Store: st, MCPServer: mcpServer}
	if mcpServer != nil {
		c.registerTools(mcpServer)
	}
	return c
}

// registerTools exposes dashboard queries over the Model Context Protocol.
func (c *Coordinator) registerTools(mcpServer *MCPServer) {
	listSessions := mcp.NewTool("list_sessions",
		mcp.WithDescription("List the realtime dashboard sessions connected to this server"))
	mcpServer.AddTool(listSessions, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		type sessionElement struct {
			ID       string   `json:"id"`
			Remote   string   `json:"remote_addr"`
			Channels []string `json:"channels"`
		}
		sessions := c.Registry.List()
		res := make([]sessionElement, 0, len(sessions))
		for _, s := range sessions {
			res = append(res, sessionElement{
				ID:       s.Meta().ID,
				Remote:   s.Meta().RemoteAddr,
				Channels: s.Meta().Subscriptions(),
			})
		}
		return toolJSON(res)
	})

	listThreats := mcp.NewTool("list_threats",
		mcp.WithDescription("List recently detected threat events"))
	mcpServer.AddTool(listThreats, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return toolJSON(c.Store.Threats())
	})

	listIncidents := mcp.NewTool("list_incidents",
		mcp.WithDescription("List tracked security incidents"))
	mcpServer.AddTool(listIncidents, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return toolJSON(c.Store.Incidents())
	})
}

func toolJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: string(data),
			},
		}}, nil
}

// Start runs the MCP server and every registered transport until ctx is
// cancelled, then shuts them down.
func (c *Coordinator) Start(ctx context.Context) error {
	if c.MCPServer != nil {
		go func() {
			if err := c.MCPServer.Start(); err != nil {
				slog.Error("mcp server exited", "error", err)
			}
		}()
	}
	for _, t := range c.Transports {
		go func(t Transport) {
			if err := t.Start(); err != nil {
				slog.Error("transport exited", "error", err)
			}
		}(t)
	}

	<-ctx.Done()
	slog.Info("shutting down transports and server")

	for _, t := range c.Transports {
		if err := t.Shutdown(); err != nil {
			slog.Error("error shutting down transport", "error", err)
		}
	}
	return nil
}

func (c *Coordinator) RegisterTransport(t Transport) {
	t.OnMessage(c.Handle)
	t.OnConnect(c.registerSession)
	t.OnDisconnect(func(session Session) {
		c.Broker.DropSession(session)
		c.Registry.Delete(session.Meta().ID)
	})
	c.Transports = append(c.Transports, t)
}

func (c *Coordinator) registerSession(session Session) error {
	c.Registry.Store(session)
	slog.Info("registered session", "id", session.Meta().ID)
	return nil
}

// Publish broadcasts a dashboard_update carrying data to every subscriber
// of channel.
func (c *Coordinator) Publish(channel string, data any) {
	msg, err := proto.Update(channel, data)
	if err != nil {
		slog.Warn("dropping unmarshalable update", "channel", channel, "error", err)
		return
	}
	c.Broker.Publish(msg)
}
