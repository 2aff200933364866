package scheduler

import (
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/fleetops/induction/engine"
)

// SnapshotSource supplies the fleet snapshot for a scheduled planning
// run. The dashboard's integration layer implements this against its
// persistence store.
type SnapshotSource interface {
	Snapshot() (*engine.FleetSnapshot, error)
}

// Scheduler runs the planner on a cron schedule.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// New creates a new scheduler.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for any running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddPlanJob registers a planning job with a cron schedule, e.g.
// "0 */5 * * * *" for every five minutes.
func (s *Scheduler) AddPlanJob(schedule string, job *PlanJob) error {
	_, err := s.cron.AddFunc(schedule, func() {
		job.Run()
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("schedule", schedule).Msg("Plan job registered")
	return nil
}

// PlanJob fetches a fresh snapshot and recomputes the allocation.
//
// At most one run is in flight at a time: a trigger that arrives while a
// run is active is skipped, not queued, so a slow snapshot source can
// never stack overlapping runs over a mutating store. The latest result
// is retained for readers.
type PlanJob struct {
	engine    *engine.Engine
	source    SnapshotSource
	overrides *engine.ConstraintOverrides
	log       zerolog.Logger

	running atomic.Bool

	mu     sync.RWMutex
	latest *engine.AllocationResult
}

// NewPlanJob creates a planning job over the given engine and snapshot
// source. Overrides may be nil for fleet-size default constraints.
func NewPlanJob(en *engine.Engine, source SnapshotSource, overrides *engine.ConstraintOverrides, log zerolog.Logger) *PlanJob {
	return &PlanJob{
		engine:    en,
		source:    source,
		overrides: overrides,
		log:       log.With().Str("component", "plan_job").Logger(),
	}
}

// Run executes one planning pass. Returns the computed result, or nil if
// the trigger was skipped because a run was already in flight.
func (j *PlanJob) Run() *engine.AllocationResult {
	if !j.running.CompareAndSwap(false, true) {
		j.log.Warn().Msg("Plan run already in flight; skipping trigger")
		return nil
	}
	defer j.running.Store(false)

	snapshot, err := j.source.Snapshot()
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to fetch fleet snapshot")
		return nil
	}

	result, err := j.engine.PlanWith(snapshot, j.overrides)
	if err != nil {
		j.log.Error().Err(err).Msg("Plan run failed")
		return nil
	}

	j.mu.Lock()
	j.latest = result
	j.mu.Unlock()

	j.log.Info().Str("run_id", result.RunID).Msg("Scheduled plan completed")
	return result
}

// Latest returns the most recent successful result, or nil before the
// first run completes.
func (j *PlanJob) Latest() *engine.AllocationResult {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.latest
}
