package cmd

import (
	"fmt"
	"time"

	"github.com/kayz/dogcmd/internal/ai"
	"github.com/kayz/dogcmd/internal/config"
	"github.com/kayz/dogcmd/internal/dispatch"
	"github.com/kayz/dogcmd/internal/intent"
	"github.com/kayz/dogcmd/internal/invoker"
	"github.com/kayz/dogcmd/internal/logger"
	"github.com/kayz/dogcmd/internal/publish"
	"github.com/kayz/dogcmd/internal/snapshot"
	"github.com/kayz/dogcmd/internal/store"
)

type runtimeOptions struct {
	// stdout publishing is suppressed when stdout carries a protocol
	allowStdout bool
	// execute runs routed actions through the log executor
	execute bool
	pace    bool
	// schedule starts periodic snapshots; otherwise only the final flush runs
	schedule bool
}

// runtime is the wired engine plus its supporting services.
type runtime struct {
	cfg        *config.Config
	engine     *intent.Engine
	router     *ai.Router
	store      *store.Store
	snapshots  *snapshot.Scheduler
	dispatcher *dispatch.Dispatcher
}

func newRuntime(cfg *config.Config, opts runtimeOptions) (*runtime, error) {
	actions, err := cfg.ActionSet()
	if err != nil {
		return nil, err
	}
	normalizer, err := cfg.Normalizer()
	if err != nil {
		return nil, err
	}
	policy, err := intent.ParseUnknownPolicy(cfg.Engine.UnknownPolicy)
	if err != nil {
		return nil, err
	}

	router, err := ai.Build(cfg.Classifier.Providers, actions, cfg.Classifier.Cooldown)
	if err != nil {
		return nil, fmt.Errorf("failed to build classifiers: %w", err)
	}
	logger.Info("[Runtime] Classifiers: %v", router.Names())

	engine, err := intent.NewEngine(intent.EngineConfig{
		Actions:          actions,
		Normalizer:       normalizer,
		Cache:            intent.NewCache(cfg.TTL(), nil),
		Classifier:       router,
		Defaults:         cfg.Defaults,
		Policy:           policy,
		MinutesToSeconds: cfg.Engine.MinutesToSeconds,
		ClassifyTimeout:  cfg.Engine.ClassifyTimeout,
	})
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, engine: engine, router: router}

	if cfg.Cache.SnapshotPath != "" {
		st, err := store.New(cfg.Cache.SnapshotPath)
		if err != nil {
			return nil, err
		}
		rt.store = st
		if cfg.Cache.Preload {
			entries, err := st.LoadSince(time.Now().Add(-cfg.TTL()))
			if err != nil {
				st.Close()
				return nil, err
			}
			engine.Restore(store.Valid(entries, actions))
		}
		sched, err := snapshot.New(engine.Cache(), st, cfg.Cache.SnapshotSchedule)
		if err != nil {
			st.Close()
			return nil, err
		}
		rt.snapshots = sched
		if opts.schedule {
			if err := sched.Start(); err != nil {
				st.Close()
				return nil, err
			}
		}
	}

	var pubs publish.Multi
	pubCfg := publish.Config{
		Stdout:       cfg.Publish.Stdout && opts.allowStdout,
		WebSocketURL: cfg.Publish.WebSocketURL,
		Token:        cfg.Publish.Token,
	}
	if p := publish.New(pubCfg); !isNop(p) {
		pubs = append(pubs, p)
	}
	if opts.execute {
		pubs = append(pubs, invoker.New(invoker.LogExecutor{Pace: opts.pace}, 0))
	}
	rt.dispatcher = dispatch.New(engine, pubs, publish.Topics(cfg.Publish.Topics))
	return rt, nil
}

// Close flushes the cache to the snapshot store and releases resources.
func (r *runtime) Close() {
	if err := r.dispatcher.Close(); err != nil {
		logger.Warn("[Runtime] Closing publishers: %v", err)
	}
	if r.snapshots != nil {
		if err := r.snapshots.Stop(); err != nil {
			logger.Warn("[Runtime] %v", err)
		}
	}
	if r.store != nil {
		r.store.Close()
	}
	stats := r.engine.Stats()
	logger.Debug("[Runtime] hits=%d misses=%d failures=%d shared=%d entries=%d",
		stats.Hits, stats.Misses, stats.Failures, stats.Shared, stats.Entries)
}

func isNop(p publish.Publisher) bool {
	_, ok := p.(publish.Nop)
	return ok
}
