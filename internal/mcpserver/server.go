// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes Atrium shell diagnostics for operator tooling via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/calder-vision/atrium/internal/access"
	"github.com/calder-vision/atrium/internal/notify"
	"github.com/calder-vision/atrium/internal/shell"
)

// Server wraps the MCP server with Atrium diagnostic tools.
type Server struct {
	mcp      *server.MCPServer
	loop     *shell.Loop
	table    *access.Table
	errors   *notify.Queue
	messages *notify.Queue
}

// New creates a new MCP server with all diagnostic tools registered.
func New(loop *shell.Loop, table *access.Table, errors, messages *notify.Queue) *Server {
	s := &Server{loop: loop, table: table, errors: errors, messages: messages}

	s.mcp = server.NewMCPServer(
		"Atrium",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("shell_state",
		mcp.WithDescription("Current shell state: per-resource readiness, identity, and view mode."),
	), s.shellState)

	s.mcp.AddTool(mcp.NewTool("resolve_route",
		mcp.WithDescription("Resolve a UI path against the current shell state."),
		mcp.WithString("path", mcp.Required(), mcp.Description("UI path to resolve (e.g. /tasks)")),
	), s.resolveRoute)

	s.mcp.AddTool(mcp.NewTool("pending_notices",
		mcp.WithDescription("Pending (not yet drained) error and message notices."),
	), s.pendingNotices)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) shellState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	view, err := s.loop.State(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{
		"resources": view.Resources,
		"identity":  view.Identity,
		"ready":     view.Ready,
		"view_mode": access.Decide(view.Ready, view.Identity),
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) resolveRoute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := s.loop.State(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mode := access.Decide(view.Ready, view.Identity)
	out, _ := json.MarshalIndent(map[string]any{
		"view_mode":  mode,
		"resolution": s.table.Resolve(mode, path, view.Identity),
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) pendingNotices(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(map[string]any{
		"errors":   s.errors.Peek(),
		"messages": s.messages.Peek(),
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
