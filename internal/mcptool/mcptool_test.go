package mcptool

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kayz/dogcmd/internal/dispatch"
	"github.com/kayz/dogcmd/internal/intent"
)

func newTools(t *testing.T) *Tools {
	t.Helper()
	actions := intent.MustDefaultActionSet()
	engine, err := intent.NewEngine(intent.EngineConfig{
		Actions:    actions,
		Cache:      intent.NewCache(time.Hour, nil),
		Classifier: intent.NewBuilder(actions, intent.PolicyDrop),
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return NewTools(dispatch.New(engine, nil, nil))
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatalf("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", res.Content[0])
	}
	return text.Text
}

func TestRouteCommand(t *testing.T) {
	tools := newTools(t)
	res, err := tools.RouteCommand(context.Background(), callRequest(map[string]any{"text": "lie down for 10 seconds"}))
	if err != nil {
		t.Fatalf("route_command: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}

	var out intent.Result
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if out.Key != "lie for <VAR1>" {
		t.Fatalf("unexpected key: %q", out.Key)
	}
	if len(out.Actions) != 1 || out.Actions[0].Action != "lie" {
		t.Fatalf("unexpected actions: %#v", out.Actions)
	}
	if v, _ := out.Actions[0].Param("duration"); v != 10 {
		t.Fatalf("unexpected duration: %#v", v)
	}
}

func TestRouteCommandRequiresText(t *testing.T) {
	res, err := newTools(t).RouteCommand(context.Background(), callRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("route_command: %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected tool error for missing text")
	}
}

func TestCacheStats(t *testing.T) {
	tools := newTools(t)
	for i := 0; i < 2; i++ {
		if _, err := tools.RouteCommand(context.Background(), callRequest(map[string]any{"text": "bark"})); err != nil {
			t.Fatalf("route_command: %v", err)
		}
	}
	res, err := tools.CacheStats(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("cache_stats: %v", err)
	}
	var stats intent.Stats
	if err := json.Unmarshal([]byte(resultText(t, res)), &stats); err != nil {
		t.Fatalf("stats not JSON: %v", err)
	}
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}

func TestNewServerRegistersTools(t *testing.T) {
	if NewServer(newTools(t).dispatcher) == nil {
		t.Fatalf("expected server")
	}
}
