package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
)

// newCELEnv creates the CEL environment rules are compiled against. Two
// dynamic variables are declared: `train` carries the derived attribute
// map, `args` carries the condition operands bound at compile time.
func newCELEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("train", cel.DynType),
		cel.Variable("args", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

// ruleProgram is a compiled rule: one CEL program for the AND-combined
// conditions plus the operand bindings it is evaluated with.
type ruleProgram struct {
	prog cel.Program
	args map[string]any
}

// compileRule renders a rule's conditions to a single CEL expression and
// compiles it. A rule with no conditions compiles to `true` and always
// passes.
func compileRule(env *cel.Env, r *BusinessRule) (*ruleProgram, error) {
	args := make(map[string]any)
	fragments := make([]string, 0, len(r.Conditions))
	for i, c := range r.Conditions {
		key := fmt.Sprintf("c%d", i)
		fragments = append(fragments, c.celFragment(key))
		c.bindArgs(key, args)
	}

	expr := "true"
	if len(fragments) > 0 {
		expr = strings.Join(fragments, " && ")
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}

	// Cost limit guards against pathological catalogs; real rules are a
	// handful of comparisons.
	prog, err := env.Program(ast, cel.CostLimit(10000))
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}

	return &ruleProgram{prog: prog, args: args}, nil
}

// evaluate runs one compiled rule against a train's attribute map.
//
// Fail-closed semantics: a missing attribute, a type mismatch, or any
// other evaluation error fails the rule rather than raising. The score is
// the rule's Score-action value when the rule passes and carries one;
// otherwise 1.0 (neutral under multiplicative composition).
func (rp *ruleProgram) evaluate(r *BusinessRule, trainID string, attrs map[string]any, now time.Time) RuleEvaluation {
	ev := RuleEvaluation{
		RuleID:    r.ID,
		TrainID:   trainID,
		Score:     1.0,
		Category:  r.Category,
		Timestamp: now,
	}

	out, _, err := rp.prog.Eval(map[string]any{
		"train": attrs,
		"args":  rp.args,
	})
	if err != nil {
		ev.Passed = false
		ev.Message = r.failMessage()
		return ev
	}

	passed := false
	if b, ok := out.Value().(bool); ok {
		passed = b
	}

	ev.Passed = passed
	if passed {
		ev.Message = r.passMessage()
		if a := r.action(ActionScore); a != nil {
			ev.Score = a.Value
		}
	} else {
		ev.Message = r.failMessage()
	}
	return ev
}

// failedEvaluation is the fail-closed result used when a rule has no
// compiled program (e.g. it was added to the store out of band).
func failedEvaluation(r *BusinessRule, trainID string, now time.Time) RuleEvaluation {
	return RuleEvaluation{
		RuleID:    r.ID,
		TrainID:   trainID,
		Passed:    false,
		Score:     1.0,
		Message:   r.failMessage(),
		Category:  r.Category,
		Timestamp: now,
	}
}
