package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kayz/dogcmd/internal/dispatch"
	"github.com/kayz/dogcmd/internal/intent"
)

func newTestServer(t *testing.T, classifier intent.Classifier) *httptest.Server {
	t.Helper()
	actions := intent.MustDefaultActionSet()
	if classifier == nil {
		classifier = intent.NewBuilder(actions, intent.PolicyDrop)
	}
	engine, err := intent.NewEngine(intent.EngineConfig{
		Actions:    actions,
		Cache:      intent.NewCache(time.Hour, nil),
		Classifier: classifier,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	srv := httptest.NewServer(New("127.0.0.1:0", dispatch.New(engine, nil, nil)).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestRouteEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Post(srv.URL+"/route", "application/json", strings.NewReader(`{"text":"Bark twice, then say Hello!"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}

	var res intent.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Actions) != 2 || res.Actions[0].Action != "bark" || res.Actions[1].Action != "say" {
		t.Fatalf("unexpected actions: %#v", res.Actions)
	}
	if v, _ := res.Actions[1].Param("text"); v != "Hello!" {
		t.Fatalf("unexpected say text: %#v", v)
	}
}

func TestRouteEndpointErrors(t *testing.T) {
	failing := intent.ClassifierFunc(func(context.Context, string) (intent.Template, error) {
		return nil, errors.New("model offline")
	})
	srv := newTestServer(t, failing)

	tests := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"bad json", http.MethodPost, "{", http.StatusBadRequest},
		{"blank text", http.MethodPost, `{"text":"  "}`, http.StatusBadRequest},
		{"classifier down", http.MethodPost, `{"text":"sit"}`, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+"/route", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("new request: %v", err)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("do: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestHealthAndStats(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected health status: %d", resp.StatusCode)
	}

	for i := 0; i < 2; i++ {
		r, err := http.Post(srv.URL+"/route", "application/json", strings.NewReader(`{"text":"spin 2 times"}`))
		if err != nil {
			t.Fatalf("route: %v", err)
		}
		r.Body.Close()
	}

	resp, err = http.Get(srv.URL + "/stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	defer resp.Body.Close()
	var stats intent.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Hits != 1 || stats.Misses != 1 || stats.Entries != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}

func TestWebSocketRoundTrip(t *testing.T) {
	srv := newTestServer(t, nil)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	if err := conn.WriteJSON(Request{Text: "wag your tail 3 times"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var reply Reply
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	if reply.Type != "result" || reply.Result == nil {
		t.Fatalf("unexpected reply: %#v", reply)
	}
	if len(reply.Result.Actions) != 1 || reply.Result.Actions[0].Action != "wag_tail" {
		t.Fatalf("unexpected actions: %#v", reply.Result.Actions)
	}
	if v, _ := reply.Result.Actions[0].Param("count1"); v != 3 {
		t.Fatalf("unexpected count: %#v", v)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("   ")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	if reply.Type != "error" {
		t.Fatalf("expected error reply, got %#v", reply)
	}
}

func TestIndexPage(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Fatalf("unexpected index response: %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	resp, err = http.Get(srv.URL + "/nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown path, got %d", resp.StatusCode)
	}
}
