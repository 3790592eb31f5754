package server

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// MCPServer exposes dashboard queries to MCP clients over stdio.
type MCPServer struct {
	Server *mcpserver.MCPServer
}

func NewMCPServer(version string) *MCPServer {
	return &MCPServer{Server: mcpserver.NewMCPServer("AgisFL Realtime", version)}
}

func (s *MCPServer) AddTool(tool mcp.Tool, handler mcpserver.ToolHandlerFunc) {
	s.Server.AddTool(tool, handler)
}

func (s *MCPServer) Start() error {
	slog.Info("started stdio MCP server")
	defer func() {
		slog.Info("shut down stdio MCP server")
	}()
	return mcpserver.ServeStdio(s.Server)
}
