package scheduler

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetops/induction/engine"
)

type stubSource struct {
	mu       sync.Mutex
	snapshot *engine.FleetSnapshot
	err      error
	delay    time.Duration
	calls    int
}

func (s *stubSource) Snapshot() (*engine.FleetSnapshot, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.snapshot, s.err
}

func (s *stubSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	store := engine.NewInMemoryRuleStore()
	if err := engine.SeedCatalog(store); err != nil {
		t.Fatalf("SeedCatalog() failed: %v", err)
	}
	en, err := engine.NewEngine(store, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() failed: %v", err)
	}
	return en
}

func smallFleet() *engine.FleetSnapshot {
	return &engine.FleetSnapshot{
		Trains: []engine.Train{
			{ID: "T1", Number: "KRISHNA", FitnessStatus: engine.FitnessValid,
				JobCardStatus: engine.JobCardClosed, CleaningStatus: engine.CleaningDone,
				TotalMileage: 30000, Bay: engine.DepotBay{Number: 1, Type: engine.BaySBL}},
			{ID: "T2", Number: "TAPTI", FitnessStatus: engine.FitnessExpired,
				JobCardStatus: engine.JobCardClosed, CleaningStatus: engine.CleaningDone,
				TotalMileage: 90000, Bay: engine.DepotBay{Number: 2, Type: engine.BayHIBL}},
		},
	}
}

func TestPlanJobRunStoresLatest(t *testing.T) {
	en := newTestEngine(t)
	source := &stubSource{snapshot: smallFleet()}
	job := NewPlanJob(en, source, nil, zerolog.Nop())

	if job.Latest() != nil {
		t.Error("Latest() before any run should be nil")
	}

	result := job.Run()
	if result == nil {
		t.Fatal("Run() returned nil")
	}
	if result.RunID == "" {
		t.Error("result should carry a run ID")
	}

	latest := job.Latest()
	if latest == nil || latest.RunID != result.RunID {
		t.Errorf("Latest() = %+v, want the run just computed", latest)
	}
}

func TestPlanJobRunSnapshotError(t *testing.T) {
	en := newTestEngine(t)
	source := &stubSource{err: fmt.Errorf("feed unavailable")}
	job := NewPlanJob(en, source, nil, zerolog.Nop())

	if result := job.Run(); result != nil {
		t.Errorf("Run() = %+v, want nil on snapshot failure", result)
	}
	if job.Latest() != nil {
		t.Error("a failed run must not overwrite Latest()")
	}
}

func TestPlanJobSkipsOverlappingRuns(t *testing.T) {
	en := newTestEngine(t)
	source := &stubSource{snapshot: smallFleet(), delay: 100 * time.Millisecond}
	job := NewPlanJob(en, source, nil, zerolog.Nop())

	var wg sync.WaitGroup
	results := make([]*engine.AllocationResult, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = job.Run()
		}(i)
	}
	wg.Wait()

	// Exactly one of the concurrent triggers runs; the other is skipped.
	ran := 0
	for _, r := range results {
		if r != nil {
			ran++
		}
	}
	if ran != 1 {
		t.Errorf("%d runs completed, want exactly 1 (overlap must be skipped)", ran)
	}
	if source.callCount() != 1 {
		t.Errorf("snapshot source called %d times, want 1", source.callCount())
	}
}

func TestPlanJobAppliesOverrides(t *testing.T) {
	en := newTestEngine(t)
	zero := 0
	one := 1
	overrides := &engine.ConstraintOverrides{MaxServiceTrains: &one, MinStandbyTrains: &zero}
	job := NewPlanJob(en, &stubSource{snapshot: smallFleet()}, overrides, zerolog.Nop())

	result := job.Run()
	if result == nil {
		t.Fatal("Run() returned nil")
	}
	if len(result.ServiceTrains) > 1 {
		t.Errorf("service = %v, want at most 1 under the override", result.ServiceTrains)
	}
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := New(zerolog.Nop())
	job := NewPlanJob(newTestEngine(t), &stubSource{snapshot: smallFleet()}, nil, zerolog.Nop())

	if err := s.AddPlanJob("not a cron spec", job); err == nil {
		t.Error("AddPlanJob() should reject an invalid schedule")
	}
	if err := s.AddPlanJob("0 */5 * * * *", job); err != nil {
		t.Errorf("AddPlanJob() rejected a valid six-field schedule: %v", err)
	}
}

func TestSchedulerRunsJobOnSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	job := NewPlanJob(newTestEngine(t), &stubSource{snapshot: smallFleet()}, nil, zerolog.Nop())

	// Every second, with seconds-resolution cron.
	if err := s.AddPlanJob("* * * * * *", job); err != nil {
		t.Fatalf("AddPlanJob() failed: %v", err)
	}

	s.Start()
	defer s.Stop()

	deadline := time.After(3 * time.Second)
	for {
		if job.Latest() != nil {
			return
		}
		select {
		case <-deadline:
			t.Fatal("scheduled job never produced a result")
		case <-time.After(50 * time.Millisecond):
		}
	}
}
