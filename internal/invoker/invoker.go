package invoker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kayz/dogcmd/internal/intent"
	"github.com/kayz/dogcmd/internal/logger"
	"github.com/kayz/dogcmd/internal/publish"
)

// DefaultHistorySize bounds the kept history.
const DefaultHistorySize = 100

// Executor performs one filled action.
type Executor interface {
	Execute(ctx context.Context, action intent.FilledAction) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, action intent.FilledAction) error

func (f ExecutorFunc) Execute(ctx context.Context, action intent.FilledAction) error {
	return f(ctx, action)
}

// Record is one executed (or failed) action.
type Record struct {
	Action     intent.FilledAction
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}

// Invoker runs action sequences strictly in order, one sequence at a time.
// It implements publish.Publisher so it can sit behind the router output.
type Invoker struct {
	exec    Executor
	limit   int
	history []Record
	run     sync.Mutex
	mu      sync.Mutex
}

// New creates an invoker. historySize <= 0 uses DefaultHistorySize.
func New(exec Executor, historySize int) *Invoker {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	return &Invoker{exec: exec, limit: historySize}
}

// Run executes actions in order and stops at the first failure. It returns
// how many actions completed.
func (v *Invoker) Run(ctx context.Context, actions []intent.FilledAction) (int, error) {
	v.run.Lock()
	defer v.run.Unlock()

	for i, action := range actions {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		rec := Record{Action: action, StartedAt: time.Now()}
		err := v.exec.Execute(ctx, action)
		rec.FinishedAt = time.Now()
		rec.Err = err
		v.record(rec)
		if err != nil {
			return i, fmt.Errorf("action %d (%s): %w", i+1, action.Action, err)
		}
	}
	return len(actions), nil
}

// Publish runs the envelope's actions.
func (v *Invoker) Publish(ctx context.Context, env publish.Envelope) error {
	_, err := v.Run(ctx, env.Actions)
	return err
}

func (v *Invoker) Close() error { return nil }

func (v *Invoker) record(rec Record) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.history = append(v.history, rec)
	if over := len(v.history) - v.limit; over > 0 {
		v.history = append(v.history[:0:0], v.history[over:]...)
	}
}

// History returns the recorded actions, oldest first.
func (v *Invoker) History() []Record {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Record(nil), v.history...)
}

// LogExecutor logs each action instead of driving hardware. When Pace is
// set, timed actions block for their duration in seconds.
type LogExecutor struct {
	Pace bool
}

func (e LogExecutor) Execute(ctx context.Context, action intent.FilledAction) error {
	parts := make([]string, 0, len(action.Params))
	for _, p := range action.Params {
		parts = append(parts, fmt.Sprintf("%s=%v", p.Name, p.Value))
	}
	logger.Info("[Invoker] %s %s", action.Action, strings.Join(parts, " "))

	if !e.Pace {
		return nil
	}
	v, ok := action.Param(intent.SlotDuration)
	if !ok {
		return nil
	}
	secs, ok := v.(int)
	if !ok || secs <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(secs) * time.Second):
		return nil
	}
}
