package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kayz/dogcmd/internal/intent"
)

// DefaultTopic is used when no topic map entry matches.
const DefaultTopic = "intent/hat"

// Envelope is one routed command ready for downstream executors.
type Envelope struct {
	ID        string                `json:"id"`
	Topic     string                `json:"topic"`
	Source    string                `json:"source"`
	Actions   []intent.FilledAction `json:"actions"`
	CreatedAt time.Time             `json:"created_at"`
}

// Publisher delivers envelopes.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

// Topics picks a topic for an action sequence. Keys are action names plus
// the special key "default".
type Topics map[string]string

// Topic returns the topic of the first action that has one, falling back to
// the "default" entry and then DefaultTopic.
func (t Topics) Topic(actions []intent.FilledAction) string {
	for _, a := range actions {
		if topic, ok := t[a.Action]; ok && topic != "" {
			return topic
		}
	}
	if topic, ok := t["default"]; ok && topic != "" {
		return topic
	}
	return DefaultTopic
}

// NewEnvelope stamps an action sequence with an id, a topic and the time.
func NewEnvelope(topics Topics, source string, actions []intent.FilledAction) Envelope {
	if actions == nil {
		actions = []intent.FilledAction{}
	}
	return Envelope{
		ID:        uuid.New().String(),
		Topic:     topics.Topic(actions),
		Source:    source,
		Actions:   actions,
		CreatedAt: time.Now().UTC(),
	}
}

// Writer prints envelopes as indented JSON.
type Writer struct {
	w  io.Writer
	mu sync.Mutex
}

// NewWriter writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// NewStdout writes to standard output.
func NewStdout() *Writer {
	return NewWriter(os.Stdout)
}

func (p *Writer) Publish(ctx context.Context, env Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err = fmt.Fprintln(p.w, string(data))
	return err
}

func (p *Writer) Close() error { return nil }

// Multi fans out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, env Envelope) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards envelopes.
type Nop struct{}

func (Nop) Publish(context.Context, Envelope) error { return nil }
func (Nop) Close() error                            { return nil }

// Config selects the publishers to build.
type Config struct {
	Stdout       bool
	WebSocketURL string
	Token        string
}

// New builds the configured publisher set. With nothing configured it
// returns Nop.
func New(cfg Config) Publisher {
	var m Multi
	if cfg.Stdout {
		m = append(m, NewStdout())
	}
	if url := strings.TrimSpace(cfg.WebSocketURL); url != "" {
		m = append(m, NewWebSocket(url, cfg.Token))
	}
	switch len(m) {
	case 0:
		return Nop{}
	case 1:
		return m[0]
	}
	return m
}
