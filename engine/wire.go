package engine

import (
	"fmt"
)

// ConditionSpec is the serialized form of a Condition, shared by the HTTP
// API, the YAML catalog file, and the postgres store. For the between
// operator Value is a two-element [low, high] array; for the numeric
// comparisons it is a number; otherwise a scalar.
type ConditionSpec struct {
	Field    string   `json:"field" yaml:"field"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    any      `json:"value" yaml:"value"`
}

// RuleSpec is the serialized form of a BusinessRule.
type RuleSpec struct {
	ID         string          `json:"id" yaml:"id"`
	Name       string          `json:"name" yaml:"name"`
	Category   RuleCategory    `json:"category" yaml:"category"`
	Priority   int             `json:"priority" yaml:"priority"`
	Active     bool            `json:"active" yaml:"active"`
	Conditions []ConditionSpec `json:"conditions" yaml:"conditions"`
	Actions    []Action        `json:"actions" yaml:"actions"`
}

// ParseCondition decodes a wire condition through the validating
// constructors, so unknown operators and mismatched operand shapes are
// rejected at decode time rather than surfacing during evaluation.
func ParseCondition(spec ConditionSpec) (Condition, error) {
	switch spec.Operator {
	case OpEquals:
		return Equals(spec.Field, spec.Value)
	case OpNotEquals:
		return NotEquals(spec.Field, spec.Value)
	case OpGreaterThan:
		n, err := toNumber(spec.Value)
		if err != nil {
			return nil, fmt.Errorf("greater_than on %s: %w", spec.Field, err)
		}
		return GreaterThan(spec.Field, n)
	case OpLessThan:
		n, err := toNumber(spec.Value)
		if err != nil {
			return nil, fmt.Errorf("less_than on %s: %w", spec.Field, err)
		}
		return LessThan(spec.Field, n)
	case OpContains:
		s, ok := spec.Value.(string)
		if !ok {
			return nil, fmt.Errorf("contains on %s: operand must be a string, got %T", spec.Field, spec.Value)
		}
		return Contains(spec.Field, s)
	case OpBetween:
		low, high, err := toBounds(spec.Value)
		if err != nil {
			return nil, fmt.Errorf("between on %s: %w", spec.Field, err)
		}
		return Between(spec.Field, low, high)
	default:
		return nil, fmt.Errorf("unknown operator %q", spec.Operator)
	}
}

// ParseRule decodes a wire rule, validating every condition.
func ParseRule(spec RuleSpec) (*BusinessRule, error) {
	if spec.ID == "" {
		return nil, fmt.Errorf("rule requires an id")
	}
	if spec.Name == "" {
		return nil, fmt.Errorf("rule %s requires a name", spec.ID)
	}
	if spec.Priority < 1 || spec.Priority > 10 {
		return nil, fmt.Errorf("rule %s priority %d out of range 1-10", spec.ID, spec.Priority)
	}
	switch spec.Category {
	case CategorySafety, CategoryOperational, CategoryCommercial, CategoryRegulatory:
	default:
		return nil, fmt.Errorf("rule %s has unknown category %q", spec.ID, spec.Category)
	}

	conds := make([]Condition, 0, len(spec.Conditions))
	for i, cs := range spec.Conditions {
		c, err := ParseCondition(cs)
		if err != nil {
			return nil, fmt.Errorf("rule %s condition %d: %w", spec.ID, i, err)
		}
		conds = append(conds, c)
	}

	for _, a := range spec.Actions {
		switch a.Type {
		case ActionBlock, ActionAllow, ActionWarning, ActionScore:
		default:
			return nil, fmt.Errorf("rule %s has unknown action type %q", spec.ID, a.Type)
		}
		if a.Type == ActionScore && a.Value <= 0 {
			return nil, fmt.Errorf("rule %s score action requires a positive value", spec.ID)
		}
	}

	return &BusinessRule{
		ID:         spec.ID,
		Name:       spec.Name,
		Category:   spec.Category,
		Priority:   spec.Priority,
		Active:     spec.Active,
		Conditions: conds,
		Actions:    spec.Actions,
	}, nil
}

// Spec serializes the rule back to its wire form.
func (r *BusinessRule) Spec() RuleSpec {
	conds := make([]ConditionSpec, 0, len(r.Conditions))
	for _, c := range r.Conditions {
		conds = append(conds, conditionSpec(c))
	}
	return RuleSpec{
		ID:         r.ID,
		Name:       r.Name,
		Category:   r.Category,
		Priority:   r.Priority,
		Active:     r.Active,
		Conditions: conds,
		Actions:    r.Actions,
	}
}

func conditionSpec(c Condition) ConditionSpec {
	spec := ConditionSpec{Field: c.Field(), Operator: c.Operator()}
	switch v := c.(type) {
	case equalsCond:
		spec.Value = v.value
	case notEqualsCond:
		spec.Value = v.value
	case greaterThanCond:
		spec.Value = v.threshold
	case lessThanCond:
		spec.Value = v.threshold
	case containsCond:
		spec.Value = v.substring
	case betweenCond:
		spec.Value = []any{v.low, v.high}
	}
	return spec
}

func toNumber(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("operand must be a number, got %T", v)
	}
}

func toBounds(v any) (float64, float64, error) {
	raw, ok := v.([]any)
	if !ok {
		// yaml.v3 decodes sequences of numbers as []interface{} too, but a
		// typed slice can arrive from Go callers.
		if fs, ok := v.([]float64); ok && len(fs) == 2 {
			return fs[0], fs[1], nil
		}
		return 0, 0, fmt.Errorf("operand must be a [low, high] pair, got %T", v)
	}
	if len(raw) != 2 {
		return 0, 0, fmt.Errorf("operand must have exactly 2 elements, got %d", len(raw))
	}
	low, err := toNumber(raw[0])
	if err != nil {
		return 0, 0, fmt.Errorf("low bound: %w", err)
	}
	high, err := toNumber(raw[1])
	if err != nil {
		return 0, 0, fmt.Errorf("high bound: %w", err)
	}
	return low, high, nil
}
