package mcptool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kayz/dogcmd/internal/dispatch"
)

// ServerName and ServerVersion identify the MCP server.
const (
	ServerName    = "dogcmd"
	ServerVersion = "0.3.0"
)

// Tools holds the MCP tool handlers.
type Tools struct {
	dispatcher *dispatch.Dispatcher
}

// NewTools creates the handlers for dispatcher.
func NewTools(dispatcher *dispatch.Dispatcher) *Tools {
	return &Tools{dispatcher: dispatcher}
}

// NewServer builds an MCP server exposing route_command and cache_stats.
func NewServer(dispatcher *dispatch.Dispatcher) *server.MCPServer {
	s := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
	)
	t := NewTools(dispatcher)

	s.AddTool(mcp.NewTool("route_command",
		mcp.WithDescription("Convert a spoken dog command into an ordered list of robot actions with concrete parameters"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The utterance, e.g. \"sit for 3 seconds then say good boy\""),
		),
	), t.RouteCommand)

	s.AddTool(mcp.NewTool("cache_stats",
		mcp.WithDescription("Report template cache hits, misses, failures and size"),
	), t.CacheStats)

	return s
}

// Serve runs the MCP server on stdio until stdin closes.
func Serve(dispatcher *dispatch.Dispatcher) error {
	return server.ServeStdio(NewServer(dispatcher))
}

// RouteCommand routes the "text" argument.
func (t *Tools) RouteCommand(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, ok := req.Params.Arguments["text"].(string)
	if !ok {
		return mcp.NewToolResultError("text is required"), nil
	}

	res, err := t.dispatcher.Dispatch(ctx, text)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to route command: %v", err)), nil
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// CacheStats reports the engine counters.
func (t *Tools) CacheStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(t.dispatcher.Stats())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode stats: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
