package main

import (
	"fmt"
	"sync"

	"github.com/fleetops/induction/engine"
)

// planRequest is the body of POST /api/v1/plan: the fleet snapshot plus
// optional constraint overrides for this run only.
type planRequest struct {
	Snapshot    *engine.FleetSnapshot       `json:"snapshot"`
	Constraints *engine.ConstraintOverrides `json:"constraints,omitempty"`
}

// ruleUpdateRequest carries a partial rule update; nil fields keep the
// existing values.
type ruleUpdateRequest struct {
	Name       *string                 `json:"name,omitempty"`
	Category   *engine.RuleCategory    `json:"category,omitempty"`
	Priority   *int                    `json:"priority,omitempty"`
	Active     *bool                   `json:"active,omitempty"`
	Conditions *[]engine.ConditionSpec `json:"conditions,omitempty"`
	Actions    *[]engine.Action        `json:"actions,omitempty"`
}

// merge applies the partial update on top of an existing rule's wire form.
func (req *ruleUpdateRequest) merge(spec engine.RuleSpec) engine.RuleSpec {
	if req.Name != nil {
		spec.Name = *req.Name
	}
	if req.Category != nil {
		spec.Category = *req.Category
	}
	if req.Priority != nil {
		spec.Priority = *req.Priority
	}
	if req.Active != nil {
		spec.Active = *req.Active
	}
	if req.Conditions != nil {
		spec.Conditions = *req.Conditions
	}
	if req.Actions != nil {
		spec.Actions = *req.Actions
	}
	return spec
}

type ruleActiveRequest struct {
	Active *bool `json:"active"`
}

type objectiveWeightsRequest struct {
	Weights map[string]float64 `json:"weights"`
}

// memorySnapshotSource retains the most recently submitted fleet snapshot
// so the periodic planner can re-optimize between dashboard pushes.
type memorySnapshotSource struct {
	mu       sync.RWMutex
	snapshot *engine.FleetSnapshot
}

func (s *memorySnapshotSource) Set(snapshot *engine.FleetSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot
}

func (s *memorySnapshotSource) Snapshot() (*engine.FleetSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return nil, fmt.Errorf("no fleet snapshot submitted yet")
	}
	return s.snapshot, nil
}
