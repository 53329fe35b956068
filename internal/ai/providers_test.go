package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kayz/dogcmd/internal/intent"
)

func TestOpenAIClassifierAgainstCompatibleServer(t *testing.T) {
	var gotModel, gotUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotModel = req.Model
		if len(req.Messages) == 2 {
			gotUser = req.Messages[1].Content
		}
		content := "```json\n[{\"action\":\"walk\",\"parameters\":{\"duration\":\"<VAR1>\"}}]\n```"
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}))
	defer srv.Close()

	c, err := NewOpenAIClassifier(ProviderConfig{Name: "local", Type: TypeOllama, BaseURL: srv.URL + "/v1"}, intent.MustDefaultActionSet())
	if err != nil {
		t.Fatalf("new classifier: %v", err)
	}
	tpl, err := c.Classify(context.Background(), "walk <VAR1>")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if gotModel != defaultOllamaModel || gotUser != "walk <VAR1>" {
		t.Fatalf("unexpected request: model=%q user=%q", gotModel, gotUser)
	}
	if len(tpl) != 1 || tpl[0].Action != "walk" || tpl[0].Params[0].Name != intent.SlotDuration {
		t.Fatalf("unexpected template: %s", tpl)
	}
}

func TestOpenAIClassifierServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewOpenAIClassifier(ProviderConfig{Name: "remote", Type: TypeOpenAI, APIKey: "k", BaseURL: srv.URL}, intent.MustDefaultActionSet())
	if err != nil {
		t.Fatalf("new classifier: %v", err)
	}
	if _, err := c.Classify(context.Background(), "bark"); err == nil {
		t.Fatalf("expected error from failing server")
	}
}

func TestAnthropicClassifierAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/messages") {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("X-Api-Key") != "secret" {
			t.Errorf("missing api key header")
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":    "msg_1",
			"type":  "message",
			"role":  "assistant",
			"model": "claude-test",
			"content": []map[string]any{{
				"type": "text",
				"text": `[{"action":"spin","parameters":{"count1":"<VAR1>"}}]`,
			}},
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 10, "output_tokens": 10},
		})
	}))
	defer srv.Close()

	c, err := NewAnthropicClassifier(ProviderConfig{Name: "claude", Type: TypeAnthropic, APIKey: "secret", BaseURL: srv.URL}, intent.MustDefaultActionSet())
	if err != nil {
		t.Fatalf("new classifier: %v", err)
	}
	tpl, err := c.Classify(context.Background(), "spin <VAR1>")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if len(tpl) != 1 || tpl[0].Action != "spin" {
		t.Fatalf("unexpected template: %s", tpl)
	}
}

func TestSystemPromptListsActions(t *testing.T) {
	prompt := SystemPrompt(intent.MustDefaultActionSet())
	for _, name := range []string{"sit", "wag_tail", "say", "scratch_head"} {
		if !strings.Contains(prompt, "- "+name+" (") {
			t.Fatalf("prompt does not describe %s", name)
		}
	}
}
