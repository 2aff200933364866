package engine

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresRuleStore implements RuleStore backed by PostgreSQL. Conditions
// and actions are stored as JSONB in their wire form and revalidated
// through the condition constructors on the way out, so a hand-edited row
// with an unknown operator is rejected at load time.
type PostgresRuleStore struct {
	db *sql.DB
}

// NewPostgresRuleStore creates a new PostgreSQL-backed RuleStore.
func NewPostgresRuleStore(db *sql.DB) *PostgresRuleStore {
	return &PostgresRuleStore{db: db}
}

// Add inserts a new rule into the database.
func (s *PostgresRuleStore) Add(rule *BusinessRule) error {
	var exists bool
	err := s.db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM rules WHERE id = $1)
	`, rule.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check rule existence: %w", err)
	}
	if exists {
		return fmt.Errorf("rule with ID %s already exists", rule.ID)
	}

	conditions, actions, err := marshalRuleBody(rule)
	if err != nil {
		return err
	}

	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	_, err = s.db.Exec(`
		INSERT INTO rules (id, name, category, priority, active, conditions, actions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, rule.ID, rule.Name, string(rule.Category), rule.Priority, rule.Active,
		conditions, actions, rule.CreatedAt, rule.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}

	return nil
}

// Get retrieves a rule by ID.
func (s *PostgresRuleStore) Get(id string) (*BusinessRule, error) {
	row := s.db.QueryRow(`
		SELECT id, name, category, priority, active, conditions, actions, created_at, updated_at
		FROM rules
		WHERE id = $1
	`, id)

	rule, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("rule %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return rule, nil
}

// List returns every rule, newest first.
func (s *PostgresRuleStore) List() ([]*BusinessRule, error) {
	return s.list(`
		SELECT id, name, category, priority, active, conditions, actions, created_at, updated_at
		FROM rules
		ORDER BY created_at DESC
	`)
}

// ListActive returns all active rules.
func (s *PostgresRuleStore) ListActive() ([]*BusinessRule, error) {
	return s.list(`
		SELECT id, name, category, priority, active, conditions, actions, created_at, updated_at
		FROM rules
		WHERE active = true
		ORDER BY created_at ASC
	`)
}

func (s *PostgresRuleStore) list(query string) ([]*BusinessRule, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rulesList []*BusinessRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rulesList = append(rulesList, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rulesList, nil
}

// Update modifies an existing rule.
func (s *PostgresRuleStore) Update(rule *BusinessRule) error {
	conditions, actions, err := marshalRuleBody(rule)
	if err != nil {
		return err
	}

	rule.UpdatedAt = time.Now()

	result, err := s.db.Exec(`
		UPDATE rules
		SET name = $1, category = $2, priority = $3, active = $4, conditions = $5, actions = $6, updated_at = $7
		WHERE id = $8
	`, rule.Name, string(rule.Category), rule.Priority, rule.Active,
		conditions, actions, rule.UpdatedAt, rule.ID)

	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("rule %s not found", rule.ID)
	}

	return nil
}

// Delete removes a rule from the database.
func (s *PostgresRuleStore) Delete(id string) error {
	result, err := s.db.Exec(`
		DELETE FROM rules
		WHERE id = $1
	`, id)

	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("rule %s not found", id)
	}

	return nil
}

func marshalRuleBody(rule *BusinessRule) ([]byte, []byte, error) {
	spec := rule.Spec()
	conditions, err := json.Marshal(spec.Conditions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal conditions for rule %s: %w", rule.ID, err)
	}
	actions, err := json.Marshal(spec.Actions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal actions for rule %s: %w", rule.ID, err)
	}
	return conditions, actions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*BusinessRule, error) {
	var spec RuleSpec
	var category string
	var conditions, actions []byte
	var createdAt, updatedAt time.Time

	if err := row.Scan(&spec.ID, &spec.Name, &category, &spec.Priority, &spec.Active,
		&conditions, &actions, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	spec.Category = RuleCategory(category)

	if err := json.Unmarshal(conditions, &spec.Conditions); err != nil {
		return nil, fmt.Errorf("invalid conditions for rule %s: %w", spec.ID, err)
	}
	if err := json.Unmarshal(actions, &spec.Actions); err != nil {
		return nil, fmt.Errorf("invalid actions for rule %s: %w", spec.ID, err)
	}

	rule, err := ParseRule(spec)
	if err != nil {
		return nil, err
	}
	rule.CreatedAt = createdAt
	rule.UpdatedAt = updatedAt
	return rule, nil
}
