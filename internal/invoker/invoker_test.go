package invoker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kayz/dogcmd/internal/intent"
	"github.com/kayz/dogcmd/internal/publish"
)

type recordingExecutor struct {
	mu     sync.Mutex
	names  []string
	failOn string
}

func (r *recordingExecutor) Execute(ctx context.Context, action intent.FilledAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if action.Action == r.failOn {
		return errors.New("servo stalled")
	}
	r.names = append(r.names, action.Action)
	return nil
}

func seq(names ...string) []intent.FilledAction {
	out := make([]intent.FilledAction, len(names))
	for i, n := range names {
		out[i] = intent.FilledAction{Action: n}
	}
	return out
}

func TestRunKeepsOrder(t *testing.T) {
	exec := &recordingExecutor{}
	v := New(exec, 0)

	n, err := v.Run(context.Background(), seq("sit", "bark", "spin"))
	if err != nil || n != 3 {
		t.Fatalf("run: n=%d err=%v", n, err)
	}
	want := []string{"sit", "bark", "spin"}
	for i, name := range want {
		if exec.names[i] != name {
			t.Fatalf("position %d: got %q want %q", i, exec.names[i], name)
		}
	}
	if h := v.History(); len(h) != 3 || h[2].Action.Action != "spin" {
		t.Fatalf("unexpected history: %#v", h)
	}
}

func TestRunStopsOnFirstError(t *testing.T) {
	exec := &recordingExecutor{failOn: "bark"}
	v := New(exec, 0)

	n, err := v.Run(context.Background(), seq("sit", "bark", "spin"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if n != 1 {
		t.Fatalf("expected 1 completed action, got %d", n)
	}
	if len(exec.names) != 1 {
		t.Fatalf("spin must not run after a failure: %v", exec.names)
	}
	h := v.History()
	if len(h) != 2 || h[1].Err == nil {
		t.Fatalf("failure should be recorded: %#v", h)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n, err := New(&recordingExecutor{}, 0).Run(ctx, seq("sit"))
	if n != 0 || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation before first action, got n=%d err=%v", n, err)
	}
}

func TestHistoryIsBounded(t *testing.T) {
	v := New(&recordingExecutor{}, 2)
	if _, err := v.Run(context.Background(), seq("sit", "bark", "spin")); err != nil {
		t.Fatalf("run: %v", err)
	}
	h := v.History()
	if len(h) != 2 || h[0].Action.Action != "bark" || h[1].Action.Action != "spin" {
		t.Fatalf("unexpected history: %#v", h)
	}
}

func TestInvokerAsPublisher(t *testing.T) {
	exec := &recordingExecutor{}
	var p publish.Publisher = New(exec, 0)
	if err := p.Publish(context.Background(), publish.NewEnvelope(nil, "wag", seq("wag_tail"))); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(exec.names) != 1 || exec.names[0] != "wag_tail" {
		t.Fatalf("unexpected executed actions: %v", exec.names)
	}
}

func TestLogExecutorPacesTimedActions(t *testing.T) {
	action := intent.FilledAction{Action: "sit", Params: []intent.FilledParam{{Name: intent.SlotDuration, Value: 1}}}

	if err := (LogExecutor{}).Execute(context.Background(), action); err != nil {
		t.Fatalf("unpaced execute: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := LogExecutor{Pace: true}.Execute(ctx, action)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("paced execute ignored the context")
	}
}
