package engine

import (
	"fmt"
	"sync"
	"time"
)

// RuleStore manages rule-catalog persistence and retrieval.
type RuleStore interface {
	// Add a new rule
	Add(rule *BusinessRule) error

	// Get a rule by ID
	Get(id string) (*BusinessRule, error)

	// List all rules, active or not
	List() ([]*BusinessRule, error)

	// List all active rules
	ListActive() ([]*BusinessRule, error)

	// Update an existing rule
	Update(rule *BusinessRule) error

	// Delete a rule
	Delete(id string) error
}

// InMemoryRuleStore implements RuleStore using an in-memory map.
// Thread-safe with RWMutex. Rules cross the store boundary as copies
// in both directions, so callers can only change the catalog through
// Add/Update/Delete, never by mutating a returned rule.
type InMemoryRuleStore struct {
	rules map[string]*BusinessRule
	mu    sync.RWMutex
}

// NewInMemoryRuleStore creates a new in-memory rule store.
func NewInMemoryRuleStore() *InMemoryRuleStore {
	return &InMemoryRuleStore{
		rules: make(map[string]*BusinessRule),
	}
}

// Add adds a new rule to the store, enforcing unique rule IDs and setting
// the timestamps.
func (s *InMemoryRuleStore) Add(rule *BusinessRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[rule.ID]; exists {
		return fmt.Errorf("rule with ID %s already exists", rule.ID)
	}

	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	s.rules[rule.ID] = rule.clone()
	return nil
}

// Get retrieves a rule by ID.
func (s *InMemoryRuleStore) Get(id string) (*BusinessRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, exists := s.rules[id]
	if !exists {
		return nil, fmt.Errorf("rule with ID %s not found", id)
	}
	return rule.clone(), nil
}

// List returns every rule in the store.
func (s *InMemoryRuleStore) List() ([]*BusinessRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*BusinessRule, 0, len(s.rules))
	for _, rule := range s.rules {
		all = append(all, rule.clone())
	}
	return all, nil
}

// ListActive returns all active rules.
func (s *InMemoryRuleStore) ListActive() ([]*BusinessRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active []*BusinessRule
	for _, rule := range s.rules {
		if rule.Active {
			active = append(active, rule.clone())
		}
	}
	return active, nil
}

// Update updates an existing rule, preserving the original CreatedAt.
func (s *InMemoryRuleStore) Update(rule *BusinessRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.rules[rule.ID]
	if !exists {
		return fmt.Errorf("rule with ID %s not found", rule.ID)
	}

	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = time.Now()
	s.rules[rule.ID] = rule.clone()
	return nil
}

// Delete removes a rule from the store.
func (s *InMemoryRuleStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[id]; !exists {
		return fmt.Errorf("rule with ID %s not found", id)
	}

	delete(s.rules, id)
	return nil
}
