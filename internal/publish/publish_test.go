package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/kayz/dogcmd/internal/intent"
)

func actions(names ...string) []intent.FilledAction {
	out := make([]intent.FilledAction, len(names))
	for i, n := range names {
		out[i] = intent.FilledAction{Action: n}
	}
	return out
}

func TestTopicsTopic(t *testing.T) {
	topics := Topics{"say": "intent/voice", "default": "intent/motion"}
	tests := []struct {
		name    string
		topics  Topics
		actions []intent.FilledAction
		want    string
	}{
		{"first mapped action wins", topics, actions("sit", "say"), "intent/voice"},
		{"default entry", topics, actions("sit"), "intent/motion"},
		{"empty sequence", topics, nil, "intent/motion"},
		{"builtin default", nil, actions("sit"), DefaultTopic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.topics.Topic(tt.actions); got != tt.want {
				t.Fatalf("Topic() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewEnvelope(t *testing.T) {
	env := NewEnvelope(nil, "sit 3", nil)
	if env.ID == "" || env.CreatedAt.IsZero() {
		t.Fatalf("envelope not stamped: %#v", env)
	}
	if env.Actions == nil {
		t.Fatalf("actions should be an empty slice, not nil")
	}
	other := NewEnvelope(nil, "sit 3", nil)
	if other.ID == env.ID {
		t.Fatalf("envelope ids must be unique")
	}
}

func TestWriterPublishesJSON(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	env := NewEnvelope(nil, "bark", actions("bark"))
	if err := w.Publish(context.Background(), env); err != nil {
		t.Fatalf("publish: %v", err)
	}

	var decoded struct {
		ID      string `json:"id"`
		Topic   string `json:"topic"`
		Actions []struct {
			Action string `json:"action"`
		} `json:"actions"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if decoded.ID != env.ID || decoded.Topic != DefaultTopic {
		t.Fatalf("unexpected envelope: %#v", decoded)
	}
	if len(decoded.Actions) != 1 || decoded.Actions[0].Action != "bark" {
		t.Fatalf("unexpected actions: %#v", decoded.Actions)
	}
}

func TestWriterHonorsCancelledContext(t *testing.T) {
	var buf bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewWriter(&buf).Publish(ctx, Envelope{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("nothing should be written")
	}
}

type failingPublisher struct{ err error }

func (f failingPublisher) Publish(context.Context, Envelope) error { return f.err }
func (f failingPublisher) Close() error                            { return nil }

func TestMultiJoinsErrors(t *testing.T) {
	var buf bytes.Buffer
	boom := errors.New("boom")
	m := Multi{NewWriter(&buf), failingPublisher{err: boom}}

	err := m.Publish(context.Background(), NewEnvelope(nil, "spin", actions("spin")))
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if buf.Len() == 0 {
		t.Fatalf("healthy publisher should still receive the envelope")
	}
}

func TestNewSelectsPublishers(t *testing.T) {
	if _, ok := New(Config{}).(Nop); !ok {
		t.Fatalf("expected Nop with nothing configured")
	}
	if _, ok := New(Config{Stdout: true}).(*Writer); !ok {
		t.Fatalf("expected single Writer")
	}
	m, ok := New(Config{Stdout: true, WebSocketURL: "ws://127.0.0.1:1/ws"}).(Multi)
	if !ok || len(m) != 2 {
		t.Fatalf("expected two publishers, got %#v", m)
	}
}
