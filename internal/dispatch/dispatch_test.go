package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kayz/dogcmd/internal/intent"
	"github.com/kayz/dogcmd/internal/publish"
)

type capturePublisher struct {
	envs []publish.Envelope
	err  error
}

func (c *capturePublisher) Publish(_ context.Context, env publish.Envelope) error {
	c.envs = append(c.envs, env)
	return c.err
}

func (c *capturePublisher) Close() error { return nil }

func newEngine(t *testing.T) *intent.Engine {
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
	return engine
}

func TestDispatchPublishesActions(t *testing.T) {
	pub := &capturePublisher{}
	d := New(newEngine(t), pub, publish.Topics{"sit": "intent/posture"})

	res, err := d.Dispatch(context.Background(), "Sit for 3 seconds")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(pub.envs) != 1 {
		t.Fatalf("expected one envelope, got %d", len(pub.envs))
	}
	env := pub.envs[0]
	if env.ID != res.RequestID || env.Topic != "intent/posture" || env.Source != "Sit for 3 seconds" {
		t.Fatalf("unexpected envelope: %#v", env)
	}
}

func TestDispatchSkipsEmptySequences(t *testing.T) {
	pub := &capturePublisher{}
	d := New(newEngine(t), pub, nil)

	res, err := d.Dispatch(context.Background(), "hello there")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(res.Actions) != 0 || len(pub.envs) != 0 {
		t.Fatalf("nothing should be published: %#v", pub.envs)
	}
}

func TestDispatchRejectsBlankInput(t *testing.T) {
	d := New(newEngine(t), nil, nil)
	if _, err := d.Dispatch(context.Background(), "   "); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestDispatchPublishFailureIsAWarning(t *testing.T) {
	pub := &capturePublisher{err: errors.New("broker down")}
	d := New(newEngine(t), pub, nil)

	res, err := d.Dispatch(context.Background(), "bark")
	if err != nil {
		t.Fatalf("dispatch should not fail on publish errors: %v", err)
	}
	if len(res.Warnings) == 0 {
		t.Fatalf("expected a publish warning")
	}
}
