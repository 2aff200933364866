package engine

import (
	"fmt"
)

// Operator identifies a condition comparison.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpContains    Operator = "contains"
	OpBetween     Operator = "between"
)

// Condition is a single comparison within a rule. The implementations form
// a closed set, one per operator, each carrying a typed operand validated
// at construction. Conditions within a rule are AND-combined; there is no
// OR support.
//
// celFragment renders the condition as a CEL sub-expression over the
// `train` attribute map; operands are bound through the `args` activation
// map under the given key so operand values never need escaping into CEL
// source.
type Condition interface {
	Field() string
	Operator() Operator
	celFragment(argKey string) string
	bindArgs(argKey string, args map[string]any)
}

type equalsCond struct {
	field string
	value any
}

type notEqualsCond struct {
	field string
	value any
}

type greaterThanCond struct {
	field     string
	threshold float64
}

type lessThanCond struct {
	field     string
	threshold float64
}

type containsCond struct {
	field     string
	substring string
}

type betweenCond struct {
	field     string
	low, high float64
}

// Equals builds an equality condition. The operand must be a string, bool,
// or number; numeric operands are normalized to float64 so they compare
// cleanly against the attribute map.
func Equals(field string, value any) (Condition, error) {
	v, err := normalizeOperand(field, value)
	if err != nil {
		return nil, err
	}
	return equalsCond{field: field, value: v}, nil
}

// NotEquals builds an inequality condition with the same operand rules as
// Equals.
func NotEquals(field string, value any) (Condition, error) {
	v, err := normalizeOperand(field, value)
	if err != nil {
		return nil, err
	}
	return notEqualsCond{field: field, value: v}, nil
}

// GreaterThan builds a strict numeric comparison.
func GreaterThan(field string, threshold float64) (Condition, error) {
	if field == "" {
		return nil, fmt.Errorf("greater_than condition requires a field name")
	}
	return greaterThanCond{field: field, threshold: threshold}, nil
}

// LessThan builds a strict numeric comparison.
func LessThan(field string, threshold float64) (Condition, error) {
	if field == "" {
		return nil, fmt.Errorf("less_than condition requires a field name")
	}
	return lessThanCond{field: field, threshold: threshold}, nil
}

// Contains builds a substring check. The field value is stringified before
// matching.
func Contains(field, substring string) (Condition, error) {
	if field == "" {
		return nil, fmt.Errorf("contains condition requires a field name")
	}
	if substring == "" {
		return nil, fmt.Errorf("contains condition requires a non-empty substring")
	}
	return containsCond{field: field, substring: substring}, nil
}

// Between builds an inclusive range check. Low must not exceed high.
func Between(field string, low, high float64) (Condition, error) {
	if field == "" {
		return nil, fmt.Errorf("between condition requires a field name")
	}
	if low > high {
		return nil, fmt.Errorf("between condition has low bound %v above high bound %v", low, high)
	}
	return betweenCond{field: field, low: low, high: high}, nil
}

func normalizeOperand(field string, value any) (any, error) {
	if field == "" {
		return nil, fmt.Errorf("condition requires a field name")
	}
	switch v := value.(type) {
	case string, bool, float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float32:
		return float64(v), nil
	default:
		return nil, fmt.Errorf("unsupported operand type %T for field %s", value, field)
	}
}

func (c equalsCond) Field() string      { return c.field }
func (c equalsCond) Operator() Operator { return OpEquals }
func (c equalsCond) celFragment(key string) string {
	return fmt.Sprintf("train[%q] == args[%q]", c.field, key)
}
func (c equalsCond) bindArgs(key string, args map[string]any) { args[key] = c.value }

func (c notEqualsCond) Field() string      { return c.field }
func (c notEqualsCond) Operator() Operator { return OpNotEquals }
func (c notEqualsCond) celFragment(key string) string {
	return fmt.Sprintf("train[%q] != args[%q]", c.field, key)
}
func (c notEqualsCond) bindArgs(key string, args map[string]any) { args[key] = c.value }

func (c greaterThanCond) Field() string      { return c.field }
func (c greaterThanCond) Operator() Operator { return OpGreaterThan }
func (c greaterThanCond) celFragment(key string) string {
	return fmt.Sprintf("train[%q] > args[%q]", c.field, key)
}
func (c greaterThanCond) bindArgs(key string, args map[string]any) { args[key] = c.threshold }

func (c lessThanCond) Field() string      { return c.field }
func (c lessThanCond) Operator() Operator { return OpLessThan }
func (c lessThanCond) celFragment(key string) string {
	return fmt.Sprintf("train[%q] < args[%q]", c.field, key)
}
func (c lessThanCond) bindArgs(key string, args map[string]any) { args[key] = c.threshold }

func (c containsCond) Field() string      { return c.field }
func (c containsCond) Operator() Operator { return OpContains }
func (c containsCond) celFragment(key string) string {
	return fmt.Sprintf("string(train[%q]).contains(string(args[%q]))", c.field, key)
}
func (c containsCond) bindArgs(key string, args map[string]any) { args[key] = c.substring }

func (c betweenCond) Field() string      { return c.field }
func (c betweenCond) Operator() Operator { return OpBetween }
func (c betweenCond) celFragment(key string) string {
	return fmt.Sprintf("train[%q] >= args[%q] && train[%q] <= args[%q]",
		c.field, key+"_lo", c.field, key+"_hi")
}
func (c betweenCond) bindArgs(key string, args map[string]any) {
	args[key+"_lo"] = c.low
	args[key+"_hi"] = c.high
}
