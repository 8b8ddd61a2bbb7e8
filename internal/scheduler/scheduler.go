// Package scheduler triggers the hourly ingestion sweep: every monitored
// video on every known board gets one ingestion run per tick.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/dyluth/kudos/internal/agent"
)

// hourlySpec fires at the top of every hour.
const hourlySpec = "0 * * * *"

// Scheduler owns the cron instance driving periodic ingestion.
type Scheduler struct {
	cron   *cron.Cron
	boards *agent.Registry

	mu      sync.Mutex
	started bool
}

// New creates a scheduler over the board registry. Nothing runs until Start.
func New(boards *agent.Registry) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		boards: boards,
	}
}

// Start registers the hourly sweep and starts the cron loop. Calling Start
// again is a no-op, never a second schedule.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	if _, err := s.cron.AddFunc(hourlySpec, func() {
		s.CheckAll(context.Background())
	}); err != nil {
		return fmt.Errorf("register hourly sweep: %w", err)
	}
	s.cron.Start()
	s.started = true
	return nil
}

// Stop halts the cron loop and waits for an in-flight sweep to return.
// Workflow runs the sweep launched keep going; they are owned by the engine.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// CheckAll sweeps every known board once. One failing board is logged and
// skipped; it never blocks the others.
func (s *Scheduler) CheckAll(ctx context.Context) {
	names, err := s.boards.Boards()
	if err != nil {
		log.Printf("[Scheduler] Failed to list boards: %v", err)
		return
	}

	for _, name := range names {
		a, err := s.boards.Get(name)
		if err != nil {
			log.Printf("[Scheduler] Skipping board %s: %v", name, err)
			continue
		}
		if err := a.CheckAllWatches(ctx); err != nil {
			log.Printf("[Scheduler] Sweep failed for board %s: %v", name, err)
		}
	}
}
