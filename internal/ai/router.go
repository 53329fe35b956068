package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kayz/dogcmd/internal/intent"
	"github.com/kayz/dogcmd/internal/logger"
)

// Classifier is a named intent.Classifier.
type Classifier interface {
	intent.Classifier
	Name() string
}

// ErrNoClassifier is returned when every classifier is cooling down.
var ErrNoClassifier = errors.New("no classifier available")

// Router tries classifiers in order and fails over to the next one when a
// classifier errors. A failed classifier sits out for the cooldown period.
type Router struct {
	classifiers   []Classifier
	failoverStats map[string]*ClassifierStats
	cooldowns     map[string]time.Time
	cooldownTime  time.Duration
	now           func() time.Time
	mu            sync.RWMutex
}

// ClassifierStats tracks outcomes of one classifier.
type ClassifierStats struct {
	SuccessCount int       `json:"success_count"`
	FailureCount int       `json:"failure_count"`
	LastSuccess  time.Time `json:"last_success,omitempty"`
	LastFailure  time.Time `json:"last_failure,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
}

func NewRouter(classifiers []Classifier, cooldownTime time.Duration) *Router {
	return &Router{
		classifiers:   classifiers,
		failoverStats: make(map[string]*ClassifierStats),
		cooldowns:     make(map[string]time.Time),
		cooldownTime:  cooldownTime,
		now:           time.Now,
	}
}

func (r *Router) Name() string {
	return "router"
}

// Names lists the classifiers in failover order.
func (r *Router) Names() []string {
	names := make([]string, len(r.classifiers))
	for i, c := range r.classifiers {
		names[i] = c.Name()
	}
	return names
}

// Classify asks each available classifier in turn. Context errors stop the
// failover immediately since no other classifier could finish in time either.
func (r *Router) Classify(ctx context.Context, key string) (intent.Template, error) {
	var errs []error
	tried := 0
	for _, c := range r.classifiers {
		if r.IsInCooldown(c.Name()) {
			continue
		}
		tried++
		tpl, err := c.Classify(ctx, key)
		if err == nil {
			r.RecordSuccess(c.Name())
			return tpl, nil
		}
		r.RecordFailure(c.Name(), err)
		errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
		if ctx.Err() != nil {
			break
		}
		logger.Warn("[Router] Classifier %s failed, failing over: %v", c.Name(), err)
	}
	if tried == 0 {
		return nil, ErrNoClassifier
	}
	return nil, errors.Join(errs...)
}

func (r *Router) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := r.statsLocked(name)
	stats.SuccessCount++
	stats.LastSuccess = r.now()
	delete(r.cooldowns, name)
}

func (r *Router) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := r.statsLocked(name)
	stats.FailureCount++
	stats.LastFailure = r.now()
	if err != nil {
		stats.LastError = err.Error()
	}
	// a lone classifier has nothing to fail over to, so it never cools down
	if len(r.classifiers) > 1 && r.cooldownTime > 0 {
		r.cooldowns[name] = r.now().Add(r.cooldownTime)
	}
}

func (r *Router) statsLocked(name string) *ClassifierStats {
	stats, ok := r.failoverStats[name]
	if !ok {
		stats = &ClassifierStats{}
		r.failoverStats[name] = stats
	}
	return stats
}

func (r *Router) IsInCooldown(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	until, ok := r.cooldowns[name]
	return ok && r.now().Before(until)
}

// Stats returns a copy of the per-classifier counters.
func (r *Router) Stats() map[string]ClassifierStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]ClassifierStats, len(r.failoverStats))
	for name, s := range r.failoverStats {
		out[name] = *s
	}
	return out
}
