package intent

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/kayz/dogcmd/internal/logger"
)

// DefaultClassifyTimeout bounds a classification when none is configured.
const DefaultClassifyTimeout = 30 * time.Second

// Classifier builds a template for a key the cache does not know. The rule
// based Builder and an external language model both satisfy it.
type Classifier interface {
	Classify(ctx context.Context, key string) (Template, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, key string) (Template, error)

func (f ClassifierFunc) Classify(ctx context.Context, key string) (Template, error) {
	return f(ctx, key)
}

// Classify lets a Builder serve as a Classifier.
func (b *Builder) Classify(_ context.Context, key string) (Template, error) {
	return b.Build(key).Template, nil
}

// EngineConfig wires an Engine. Only Classifier is required.
type EngineConfig struct {
	Actions          *ActionSet
	Normalizer       *Normalizer
	Cache            *Cache
	Classifier       Classifier
	Defaults         Defaults
	Policy           UnknownPolicy
	MinutesToSeconds bool
	ClassifyTimeout  time.Duration
}

// Result is the outcome of routing one utterance.
type Result struct {
	RequestID string         `json:"request_id"`
	Input     string         `json:"input"`
	Key       string         `json:"key"`
	Values    []int          `json:"values,omitempty"`
	Units     []string       `json:"units,omitempty"`
	Text      string         `json:"text,omitempty"`
	CacheHit  bool           `json:"cache_hit"`
	Shared    bool           `json:"shared,omitempty"`
	Actions   []FilledAction `json:"actions"`
	Warnings  []string       `json:"warnings,omitempty"`
}

// Stats counts cache outcomes.
type Stats struct {
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Failures int64 `json:"failures"`
	Shared   int64 `json:"shared"`
	Entries  int   `json:"entries"`
}

// Engine turns raw utterances into filled action lists, classifying each
// sentence shape at most once per TTL.
type Engine struct {
	actions    *ActionSet
	normalizer *Normalizer
	cache      *Cache
	classifier Classifier
	builder    *Builder
	defaults   Defaults
	policy     UnknownPolicy
	minutes    bool
	timeout    time.Duration
	freeText   string

	// concurrent misses on one key wait for a single classification
	flight singleflight.Group

	hits     atomic.Int64
	misses   atomic.Int64
	failures atomic.Int64
	shared   atomic.Int64
}

// NewEngine creates an Engine, filling unset fields with the stock vocabulary,
// synonyms, defaults and a one hour cache.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	if cfg.Actions == nil {
		cfg.Actions = MustDefaultActionSet()
	}
	if cfg.Normalizer == nil {
		n, err := NewNormalizer(DefaultSynonyms())
		if err != nil {
			return nil, err
		}
		cfg.Normalizer = n
	}
	if cfg.Cache == nil {
		cfg.Cache = NewCache(DefaultTTL, nil)
	}
	if cfg.ClassifyTimeout <= 0 {
		cfg.ClassifyTimeout = DefaultClassifyTimeout
	}
	if cfg.Defaults.Duration <= 0 {
		cfg.Defaults.Duration = DefaultDuration
	}
	freeText, _ := cfg.Actions.FreeTextAction()
	return &Engine{
		actions:    cfg.Actions,
		normalizer: cfg.Normalizer,
		cache:      cfg.Cache,
		classifier: cfg.Classifier,
		builder:    NewBuilder(cfg.Actions, cfg.Policy),
		defaults:   cfg.Defaults,
		policy:     cfg.Policy,
		minutes:    cfg.MinutesToSeconds,
		timeout:    cfg.ClassifyTimeout,
		freeText:   freeText,
	}, nil
}

// Cache exposes the engine's template cache.
func (e *Engine) Cache() *Cache { return e.cache }

// Actions exposes the engine's action vocabulary.
func (e *Engine) Actions() *ActionSet { return e.actions }

// Abstract normalizes raw text, captures free text and replaces numbers with
// placeholders. It is a pure function of raw and the engine configuration.
func (e *Engine) Abstract(raw string) Extraction {
	normalized, text, found := e.normalizer.SplitFreeText(raw, e.freeText)
	key, values, units := extractNumbers(normalized, e.minutes)
	return Extraction{Key: key, Values: values, Units: units, Text: text, HasText: found}
}

// Route resolves raw into an ordered list of filled actions. On a cache miss
// the classifier is consulted; its failures come back as a
// *ClassificationError and leave the cache untouched.
func (e *Engine) Route(ctx context.Context, raw string) (*Result, error) {
	ex := e.Abstract(raw)
	res := &Result{
		RequestID: uuid.New().String(),
		Input:     raw,
		Key:       ex.Key,
		Values:    ex.Values,
		Units:     ex.Units,
		Text:      ex.Text,
	}

	tpl, hit := e.cache.Lookup(ex.Key)
	if hit {
		e.hits.Add(1)
		logger.Debug("[Engine] Cache hit: %q", ex.Key)
	} else {
		e.misses.Add(1)
		logger.Debug("[Engine] Cache miss: %q", ex.Key)
		var shared bool
		var err error
		tpl, shared, err = e.classify(ctx, ex.Key)
		if err != nil {
			e.failures.Add(1)
			logger.Warn("[Engine] %v", err)
			return nil, err
		}
		if shared {
			e.shared.Add(1)
		}
		res.Shared = shared
	}
	res.CacheHit = hit

	if e.policy == PolicyReport {
		for _, fragment := range e.builder.Build(ex.Key).Unrecognized {
			res.Warnings = append(res.Warnings, fmt.Sprintf("unrecognized fragment: %q", fragment))
		}
	}
	if len(tpl) == 0 {
		res.Warnings = append(res.Warnings, "no recognized actions")
	}

	res.Actions = Fill(tpl, ex.Values, ex.Text, e.defaults)
	return res, nil
}

func (e *Engine) classify(ctx context.Context, key string) (Template, bool, error) {
	ch := e.flight.DoChan(key, func() (any, error) {
		// The shared call must outlive any single waiter's cancellation.
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
		defer cancel()

		start := time.Now()
		tpl, err := e.classifier.Classify(cctx, key)
		if err != nil {
			return nil, err
		}
		if tpl == nil {
			return nil, fmt.Errorf("%w: classifier returned no template", ErrMalformedTemplate)
		}
		if err := tpl.Validate(e.actions); err != nil {
			return nil, err
		}
		e.cache.Store(key, tpl)
		logger.Info("[Engine] Classified %q in %s: %s", key, time.Since(start).Round(time.Millisecond), tpl)
		return tpl.Clone(), nil
	})

	select {
	case <-ctx.Done():
		return nil, false, &ClassificationError{Key: key, Err: ctx.Err()}
	case r := <-ch:
		if r.Err != nil {
			var ce *ClassificationError
			if errors.As(r.Err, &ce) {
				return nil, r.Shared, r.Err
			}
			return nil, r.Shared, &ClassificationError{Key: key, Err: r.Err}
		}
		// waiters share one value; hand each its own copy
		return r.Val.(Template).Clone(), r.Shared, nil
	}
}

// Preload pre-warms the cache with trusted, already normalized templates.
func (e *Engine) Preload(templates map[string]Template) {
	e.cache.Load(templates)
	logger.Info("[Engine] Preloaded %d templates", len(templates))
}

// Restore pre-warms the cache from persisted entries without resetting their
// age.
func (e *Engine) Restore(entries []Entry) {
	e.cache.Restore(entries)
	logger.Info("[Engine] Restored %d templates", len(entries))
}

// Stats returns a snapshot of the cache counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Hits:     e.hits.Load(),
		Misses:   e.misses.Load(),
		Failures: e.failures.Load(),
		Shared:   e.shared.Load(),
		Entries:  e.cache.Len(),
	}
}
