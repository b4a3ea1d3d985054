package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/airdatahub/airdata-fetch/internal/measurement"
)

// CompletionNotifier receives the fan-in signal once every task of a cycle
// has settled.
type CompletionNotifier interface {
	NotifyCycleComplete(ctx context.Context)
}

// CycleSummary captures one completed cycle for operator inspection.
type CycleSummary struct {
	ID          string                    `json:"id"`
	StartedAt   time.Time                 `json:"startedAt"`
	CompletedAt time.Time                 `json:"completedAt"`
	DryRun      bool                      `json:"dryRun"`
	Outcomes    []measurement.TaskOutcome `json:"outcomes"`
}

// Scheduler drives the ingestion loop: every interval it fans one task per
// source out, waits for all of them to settle, logs every outcome and
// signals completion. There is deliberately no per-task timeout and no
// concurrency cap; a hung adapter call stalls the cycle until it returns.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	runner     *measurement.Runner
	completion CompletionNotifier
	sources    []measurement.Source
	interval   time.Duration
	dryRun     bool
	log        *zap.SugaredLogger

	mu   sync.RWMutex
	last *CycleSummary
}

// New creates a new Scheduler.
func New(sources []measurement.Source, interval time.Duration, runner *measurement.Runner, completion CompletionNotifier, dryRun bool, log *zap.SugaredLogger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler:  s,
		runner:     runner,
		completion: completion,
		sources:    sources,
		interval:   interval,
		dryRun:     dryRun,
		log:        log,
	}
}

// Start schedules the recurring cycle and starts the underlying scheduler.
// The first cycle runs immediately; re-arming is anchored to the declared
// interval, not to how long the previous cycle actually took.
func (s *Scheduler) Start() error {
	if len(s.sources) == 0 {
		s.log.Warn("no sources configured; nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 10
	}

	_, err := s.scheduler.Every(minutes).Minutes().StartImmediately().Do(s.runCycle)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future cycles.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// LastCycle returns the most recently completed cycle, or nil before the
// first one finishes.
func (s *Scheduler) LastCycle() *CycleSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.last == nil {
		return nil
	}
	cp := *s.last
	cp.Outcomes = append([]measurement.TaskOutcome(nil), s.last.Outcomes...)
	return &cp
}

// runCycle executes one full fetch cycle across all sources.
func (s *Scheduler) runCycle() {
	ctx := context.Background()
	cycleID := uuid.NewString()
	startedAt := time.Now().UTC()

	s.log.Infow("cycle started", "cycle", cycleID, "sources", len(s.sources), "dryRun", s.dryRun)

	// Fan out: one task per source, all launched up front. Outcomes land
	// in launch order; aggregation waits for the full barrier.
	outcomes := make([]measurement.TaskOutcome, len(s.sources))
	var wg sync.WaitGroup
	for i, src := range s.sources {
		wg.Add(1)
		go func(i int, src measurement.Source) {
			defer wg.Done()
			outcomes[i] = s.runner.Run(ctx, src)
		}(i, src)
	}
	wg.Wait()

	for _, o := range outcomes {
		if o.Failed() {
			s.log.Errorw("task failed", "cycle", cycleID, "source", o.Source, "message", o.Message, "error", o.Err)
			continue
		}
		s.log.Infow("task completed", "cycle", cycleID, "source", o.Source, "message", o.Message, "inserted", o.InsertedCount)
	}

	if s.dryRun {
		s.log.Infow("dry run cycle finished; skipping completion webhook", "cycle", cycleID)
	} else {
		s.completion.NotifyCycleComplete(ctx)
	}

	completedAt := time.Now().UTC()
	s.log.Infow("cycle finished", "cycle", cycleID, "elapsed", completedAt.Sub(startedAt))

	s.mu.Lock()
	s.last = &CycleSummary{
		ID:          cycleID,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		DryRun:      s.dryRun,
		Outcomes:    outcomes,
	}
	s.mu.Unlock()
}
