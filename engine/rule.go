package engine

import "time"

// RuleCategory groups rules by the concern they protect.
type RuleCategory string

const (
	CategorySafety      RuleCategory = "safety"
	CategoryOperational RuleCategory = "operational"
	CategoryCommercial  RuleCategory = "commercial"
	CategoryRegulatory  RuleCategory = "regulatory"
)

// ActionType describes what a rule outcome does to a train's eligibility.
type ActionType string

const (
	// ActionBlock marks the train Blocked when the rule fails.
	ActionBlock ActionType = "block"
	// ActionAllow is informational; a passing allow rule changes nothing.
	ActionAllow ActionType = "allow"
	// ActionWarning marks the train Conditional when the rule fails.
	ActionWarning ActionType = "warning"
	// ActionScore multiplies the train's overall score by Value when the
	// rule passes.
	ActionScore ActionType = "score"
)

// Action is one consequence attached to a rule.
type Action struct {
	Type    ActionType `json:"type"`
	Value   float64    `json:"value,omitempty"`
	Message string     `json:"message,omitempty"`
}

// BusinessRule is one configurable induction rule. Rules are configuration:
// loaded from the store, mutated only through explicit engine operations,
// and never changed as a side effect of evaluation.
//
// Priority (1-10) orders evaluation and breaks ties; higher runs first.
type BusinessRule struct {
	ID         string
	Name       string
	Category   RuleCategory
	Priority   int
	Active     bool
	Conditions []Condition
	Actions    []Action
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// clone copies the rule deeply enough that mutating the copy never
// touches the original: condition values are immutable after
// construction, so fresh slices suffice.
func (r *BusinessRule) clone() *BusinessRule {
	c := *r
	c.Conditions = append([]Condition(nil), r.Conditions...)
	c.Actions = append([]Action(nil), r.Actions...)
	return &c
}

func (r *BusinessRule) action(t ActionType) *Action {
	for i := range r.Actions {
		if r.Actions[i].Type == t {
			return &r.Actions[i]
		}
	}
	return nil
}

// HasAction reports whether the rule carries an action of the given type.
func (r *BusinessRule) HasAction(t ActionType) bool {
	return r.action(t) != nil
}

// passMessage is the message reported when the rule passes.
func (r *BusinessRule) passMessage() string {
	for _, t := range []ActionType{ActionScore, ActionAllow} {
		if a := r.action(t); a != nil && a.Message != "" {
			return a.Message
		}
	}
	return "Rule passed"
}

// failMessage is the message reported when the rule fails.
func (r *BusinessRule) failMessage() string {
	for _, t := range []ActionType{ActionBlock, ActionWarning} {
		if a := r.action(t); a != nil && a.Message != "" {
			return a.Message
		}
	}
	return "Rule failed"
}
