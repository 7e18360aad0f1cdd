package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/mstanton/keepsake/internal/store"
)

// Scheduler owns the one recurring timer that drives periodic review and
// the opportunistic consolidation check. It replaces any notion of
// process-global timers: construct it, Start it, Stop it.
type Scheduler struct {
	engine   *Engine
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewScheduler creates a Scheduler running every interval (default 30m).
func NewScheduler(e *Engine, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &Scheduler{
		engine:   e,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the startup pass synchronously (time-trigger consolidation
// check, then a startup review), then launches the periodic loop.
func (s *Scheduler) Start() {
	s.runOnce(store.TriggerStartup)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runOnce(store.TriggerPeriodic)
			case <-s.stopCh:
				return
			}
		}
	}()
}

// Stop cancels the timer and waits for an in-flight tick to finish. A batch
// already running is never interrupted mid-run; Stop is safe to call more
// than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

func (s *Scheduler) runOnce(trigger string) {
	ctx := context.Background()

	if err := s.engine.CheckOrganizeDue(ctx); err != nil {
		log.Printf("scheduler: consolidation check: %v", err)
	}
	if _, err := s.engine.RunReview(ctx, trigger); err != nil {
		log.Printf("scheduler: review (%s): %v", trigger, err)
	}
}
