package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrNoSnapshot is returned when Plan is called without a snapshot. An
// empty fleet is not an error; it yields a defined zero result.
var ErrNoSnapshot = errors.New("no fleet snapshot supplied")

// Engine is the train induction decision engine. It owns the rule catalog
// (store + compiled programs + active-rules cache), the objective weights,
// and the scenario presets, all injected or defaulted at construction —
// no package-level state, so engines with different configurations can
// run side by side.
//
// Planning runs are read-only over the catalog (RWMutex-guarded), so any
// number may run concurrently on independent snapshots. Configuration
// mutations take effect on the next Plan call, never retroactively.
type Engine struct {
	env        *cel.Env
	store      RuleStore
	cache      RulesCache
	programs   map[string]*ruleProgram // ruleID -> compiled program
	objectives []Objective
	presets    []ScenarioPreset
	log        zerolog.Logger
	mu         sync.RWMutex
}

// NewEngine creates an engine over the given rule store with the default
// objective set, scenario presets, and an in-memory active-rules cache.
// All active rules are compiled up front; a catalog that fails to compile
// fails construction.
func NewEngine(store RuleStore, log zerolog.Logger) (*Engine, error) {
	env, err := newCELEnv()
	if err != nil {
		return nil, err
	}

	en := &Engine{
		env:        env,
		store:      store,
		cache:      NewInMemoryRulesCache(DefaultCacheConfig()),
		programs:   make(map[string]*ruleProgram),
		objectives: DefaultObjectives(),
		presets:    DefaultPresets(),
		log:        log.With().Str("component", "engine").Logger(),
	}

	if err := en.CompileAllRules(); err != nil {
		return nil, fmt.Errorf("failed to compile rules: %w", err)
	}

	return en, nil
}

// CompileAllRules compiles all active rules from the store and primes the
// active-rules cache.
func (en *Engine) CompileAllRules() error {
	rules, err := en.store.ListActive()
	if err != nil {
		return err
	}

	for _, rule := range rules {
		if err := en.compileAndCache(rule); err != nil {
			return fmt.Errorf("failed to compile rule %s: %w", rule.ID, err)
		}
	}

	en.cache.Set(rules)
	return nil
}

func (en *Engine) compileAndCache(rule *BusinessRule) error {
	rp, err := compileRule(en.env, rule)
	if err != nil {
		return err
	}
	en.mu.Lock()
	en.programs[rule.ID] = rp
	en.mu.Unlock()
	return nil
}

// AddRule validates, compiles, and stores a new rule. The compiled
// program is removed again if the store rejects the rule.
func (en *Engine) AddRule(r *BusinessRule) error {
	if _, err := en.store.Get(r.ID); err == nil {
		return fmt.Errorf("rule with ID %s already exists", r.ID)
	}

	if err := en.compileAndCache(r); err != nil {
		return fmt.Errorf("rule validation failed: %w", err)
	}

	if err := en.store.Add(r); err != nil {
		en.mu.Lock()
		delete(en.programs, r.ID)
		en.mu.Unlock()
		return err
	}

	en.cache.Invalidate()
	return nil
}

// UpdateRule replaces an existing rule, recompiling its conditions first
// so an invalid update never reaches the store.
func (en *Engine) UpdateRule(r *BusinessRule) error {
	if err := en.compileAndCache(r); err != nil {
		return fmt.Errorf("rule validation failed: %w", err)
	}

	if err := en.store.Update(r); err != nil {
		return err
	}

	en.cache.Invalidate()
	return nil
}

// SetRuleActive toggles a rule without touching its conditions. The
// change applies from the next planning run.
//
// Activation compiles the rule: construction only compiles the rules
// that were active at the time, so a rule activated later would
// otherwise have no program and fail closed against every train.
func (en *Engine) SetRuleActive(ruleID string, active bool) error {
	rule, err := en.store.Get(ruleID)
	if err != nil {
		return err
	}
	if rule.Active == active {
		return nil
	}

	rule.Active = active
	if active {
		if err := en.compileAndCache(rule); err != nil {
			return fmt.Errorf("rule validation failed: %w", err)
		}
	}
	if err := en.store.Update(rule); err != nil {
		return err
	}

	en.cache.Invalidate()
	return nil
}

// DeleteRule removes a rule from the store and drops its compiled
// program.
func (en *Engine) DeleteRule(ruleID string) error {
	if err := en.store.Delete(ruleID); err != nil {
		return err
	}

	en.mu.Lock()
	delete(en.programs, ruleID)
	en.mu.Unlock()

	en.cache.Invalidate()
	return nil
}

// Rules returns every rule in the catalog.
func (en *Engine) Rules() ([]*BusinessRule, error) {
	return en.store.List()
}

// Rule returns one rule by ID.
func (en *Engine) Rule(id string) (*BusinessRule, error) {
	return en.store.Get(id)
}

// Objectives returns a copy of the current objective set.
func (en *Engine) Objectives() []Objective {
	en.mu.RLock()
	defer en.mu.RUnlock()

	objectives := make([]Objective, len(en.objectives))
	copy(objectives, en.objectives)
	return objectives
}

// SetObjectiveWeights updates the weights of named objectives. Unknown
// names are rejected; negative weights are rejected. The allocator
// normalizes, so the new weights need not sum to 1.0.
func (en *Engine) SetObjectiveWeights(weights map[string]float64) error {
	en.mu.Lock()
	defer en.mu.Unlock()

	known := make(map[string]int, len(en.objectives))
	for i, o := range en.objectives {
		known[o.Name] = i
	}

	for name, w := range weights {
		if w < 0 {
			return fmt.Errorf("objective %s: weight must not be negative", name)
		}
		if _, ok := known[name]; !ok {
			return fmt.Errorf("unknown objective %q", name)
		}
	}

	for name, w := range weights {
		en.objectives[known[name]].Weight = w
	}
	return nil
}

// activeRules returns the active rule set in evaluation order: priority
// descending, rule ID ascending on ties. The cache avoids a store round
// trip on every run.
func (en *Engine) activeRules() ([]*BusinessRule, error) {
	rules := en.cache.Get()
	if rules == nil {
		var err error
		rules, err = en.store.ListActive()
		if err != nil {
			return nil, err
		}
		en.cache.Set(rules)
	}

	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].ID < rules[j].ID
	})
	return rules, nil
}

// Plan computes the induction allocation for one fleet snapshot under the
// fleet-size default constraints.
func (en *Engine) Plan(snapshot *FleetSnapshot) (*AllocationResult, error) {
	return en.PlanWith(snapshot, nil)
}

// PlanWith computes the induction allocation with selective constraint
// overrides. The computation is a pure batch over the snapshot: classify
// every train against the active rules, score the fleet, partition it,
// then attach reasoning and alternative scenarios.
func (en *Engine) PlanWith(snapshot *FleetSnapshot, overrides *ConstraintOverrides) (*AllocationResult, error) {
	if snapshot == nil {
		return nil, ErrNoSnapshot
	}

	now := time.Now()
	result := &AllocationResult{
		RunID:                uuid.New().String(),
		GeneratedAt:          now,
		ServiceTrains:        []string{},
		StandbyTrains:        []string{},
		MaintenanceTrains:    []string{},
		ObjectiveScores:      map[string]float64{},
		ConstraintViolations: []ConstraintViolation{},
	}

	objectives := en.Objectives()
	for _, o := range objectives {
		result.ObjectiveScores[o.Name] = 0
	}

	if len(snapshot.Trains) == 0 {
		en.log.Info().Str("run_id", result.RunID).Msg("Empty fleet snapshot; returning zero allocation")
		return result, nil
	}

	rules, err := en.activeRules()
	if err != nil {
		return nil, fmt.Errorf("failed to load active rules: %w", err)
	}

	en.mu.RLock()
	programs := make(map[string]*ruleProgram, len(en.programs))
	for id, rp := range en.programs {
		programs[id] = rp
	}
	en.mu.RUnlock()

	ix := indexSnapshot(snapshot)

	trains := make(map[string]*Train, len(snapshot.Trains))
	eligibility := make(map[string]*TrainEligibility, len(snapshot.Trains))
	for i := range snapshot.Trains {
		t := &snapshot.Trains[i]
		trains[t.ID] = t

		elig := classifyTrain(t.ID, rules, programs, ix.attributes(t), now)
		eligibility[t.ID] = &elig
		result.Eligibility = append(result.Eligibility, elig)

		en.log.Debug().
			Str("train", t.ID).
			Str("status", string(elig.Status)).
			Float64("score", elig.OverallScore).
			Msg("Classified train")
	}

	scored := scoreFleet(snapshot, ix, eligibility)
	constraints := resolveConstraints(len(snapshot.Trains), overrides)
	outcome := allocate(scored, eligibility, constraints)

	result.ServiceTrains = poolIDs(outcome.service)
	result.StandbyTrains = poolIDs(outcome.standby)
	result.MaintenanceTrains = poolIDs(outcome.maintenance)
	result.ConstraintViolations = append(result.ConstraintViolations, outcome.violations...)
	result.ObjectiveScores = objectiveScores(outcome.service, trains, ix, len(snapshot.Trains))
	result.TotalScore = weightedTotal(objectives, result.ObjectiveScores)
	result.Reasoning = buildReasoning(outcome, eligibility, trains, ix, constraints)
	result.Scenarios = buildScenarios(en.presets, scored, eligibility, trains, ix, objectives, outcome, constraints)

	en.log.Info().
		Str("run_id", result.RunID).
		Int("fleet", len(snapshot.Trains)).
		Int("service", len(result.ServiceTrains)).
		Int("standby", len(result.StandbyTrains)).
		Int("maintenance", len(result.MaintenanceTrains)).
		Float64("total_score", result.TotalScore).
		Msg("Allocation computed")

	return result, nil
}
