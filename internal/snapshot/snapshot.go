package snapshot

import (
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/kayz/dogcmd/internal/intent"
	"github.com/kayz/dogcmd/internal/logger"
)

// DefaultSchedule flushes the cache every five minutes.
const DefaultSchedule = "@every 5m"

// Sink receives cache entries. *store.Store satisfies it.
type Sink interface {
	SaveAll(entries []intent.Entry) error
}

// Source yields the entries to persist. *intent.Cache satisfies it.
type Source interface {
	Snapshot() []intent.Entry
}

// Scheduler periodically copies live cache entries into a Sink.
type Scheduler struct {
	cron     *cron.Cron
	source   Source
	sink     Sink
	schedule string
	entryID  cron.EntryID
	running  bool
	mu       sync.Mutex
	flushMu  sync.Mutex
}

// New creates a scheduler. An empty schedule uses DefaultSchedule.
func New(source Source, sink Sink, schedule string) (*Scheduler, error) {
	if strings.TrimSpace(schedule) == "" {
		schedule = DefaultSchedule
	}
	schedule = normalizeCron(schedule)

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("invalid snapshot schedule %q: %w", schedule, err)
	}

	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		source:   source,
		sink:     sink,
		schedule: schedule,
	}, nil
}

// normalizeCron prepends "0 " to standard 5-field cron expressions
// so they work with the 6-field (with seconds) parser.
func normalizeCron(schedule string) string {
	if len(strings.Fields(schedule)) == 5 {
		return "0 " + schedule
	}
	return schedule
}

// Schedule returns the normalized cron expression.
func (s *Scheduler) Schedule() string { return s.schedule }

// Start registers the flush job and starts the cron loop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	id, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.Flush(); err != nil {
			logger.Error("[Snapshot] Flush failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule snapshot: %w", err)
	}
	s.entryID = id
	s.cron.Start()
	s.running = true
	logger.Info("[Snapshot] Scheduler started (%s)", s.schedule)
	return nil
}

// Stop waits for a running flush, stops the loop if it was started and
// flushes once more.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.running {
		ctx := s.cron.Stop()
		s.cron.Remove(s.entryID)
		s.running = false
		s.mu.Unlock()
		<-ctx.Done()
	} else {
		s.mu.Unlock()
	}

	n, err := s.Flush()
	if err != nil {
		return fmt.Errorf("final snapshot flush: %w", err)
	}
	logger.Info("[Snapshot] Stopped, %d templates flushed", n)
	return nil
}

// Flush copies the current live entries into the sink and returns how many
// were written.
func (s *Scheduler) Flush() (int, error) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	entries := s.source.Snapshot()
	if len(entries) == 0 {
		return 0, nil
	}
	if err := s.sink.SaveAll(entries); err != nil {
		return 0, err
	}
	logger.Debug("[Snapshot] Flushed %d templates", len(entries))
	return len(entries), nil
}
