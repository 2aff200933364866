package engine

import (
	"testing"
	"time"
)

func TestCompileAndEvaluateRule(t *testing.T) {
	env, err := newCELEnv()
	if err != nil {
		t.Fatalf("newCELEnv() failed: %v", err)
	}

	cond, err := GreaterThan("overallHealthScore", 60)
	if err != nil {
		t.Fatalf("GreaterThan() failed: %v", err)
	}

	rule := &BusinessRule{
		ID:         "health-check",
		Name:       "Health check",
		Category:   CategoryOperational,
		Priority:   5,
		Active:     true,
		Conditions: []Condition{cond},
		Actions:    []Action{{Type: ActionWarning, Message: "health below floor"}},
	}

	rp, err := compileRule(env, rule)
	if err != nil {
		t.Fatalf("compileRule() failed: %v", err)
	}

	now := time.Now()

	ev := rp.evaluate(rule, "T1", map[string]any{"overallHealthScore": 82.5}, now)
	if !ev.Passed {
		t.Errorf("health 82.5 should pass: %+v", ev)
	}
	if ev.Message != "Rule passed" {
		t.Errorf("pass message = %q, want default", ev.Message)
	}

	ev = rp.evaluate(rule, "T1", map[string]any{"overallHealthScore": 40.0}, now)
	if ev.Passed {
		t.Errorf("health 40 should fail: %+v", ev)
	}
	if ev.Message != "health below floor" {
		t.Errorf("fail message = %q, want warning message", ev.Message)
	}
}

func TestEvaluateMultipleConditionsAreANDed(t *testing.T) {
	env, _ := newCELEnv()

	c1, _ := NotEquals("fitnessStatus", "expired")
	c2, _ := Equals("criticalJobCards", 0.0)

	rule := &BusinessRule{
		ID:         "two-conditions",
		Name:       "Two conditions",
		Category:   CategorySafety,
		Priority:   10,
		Conditions: []Condition{c1, c2},
		Actions:    []Action{{Type: ActionBlock, Message: "not fit"}},
	}

	rp, err := compileRule(env, rule)
	if err != nil {
		t.Fatalf("compileRule() failed: %v", err)
	}

	now := time.Now()

	tests := []struct {
		name  string
		attrs map[string]any
		want  bool
	}{
		{"both pass", map[string]any{"fitnessStatus": "valid", "criticalJobCards": 0.0}, true},
		{"first fails", map[string]any{"fitnessStatus": "expired", "criticalJobCards": 0.0}, false},
		{"second fails", map[string]any{"fitnessStatus": "valid", "criticalJobCards": 2.0}, false},
		{"both fail", map[string]any{"fitnessStatus": "expired", "criticalJobCards": 2.0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := rp.evaluate(rule, "T1", tt.attrs, now)
			if ev.Passed != tt.want {
				t.Errorf("Passed = %v, want %v", ev.Passed, tt.want)
			}
		})
	}
}

func TestEvaluateFailsClosedOnMissingAttribute(t *testing.T) {
	env, _ := newCELEnv()

	cond, _ := GreaterThan("overallHealthScore", 60)
	rule := &BusinessRule{
		ID:         "missing-attr",
		Name:       "Missing attribute",
		Category:   CategoryOperational,
		Priority:   5,
		Conditions: []Condition{cond},
		Actions:    []Action{{Type: ActionWarning, Message: "no telemetry"}},
	}

	rp, err := compileRule(env, rule)
	if err != nil {
		t.Fatalf("compileRule() failed: %v", err)
	}

	ev := rp.evaluate(rule, "T1", map[string]any{}, time.Now())
	if ev.Passed {
		t.Error("missing attribute must fail the rule, not pass it")
	}
	if ev.Message != "no telemetry" {
		t.Errorf("fail message = %q", ev.Message)
	}
}

func TestEvaluateFailsClosedOnTypeMismatch(t *testing.T) {
	env, _ := newCELEnv()

	cond, _ := GreaterThan("fitnessStatus", 60)
	rule := &BusinessRule{
		ID:         "type-mismatch",
		Name:       "Type mismatch",
		Category:   CategoryOperational,
		Priority:   5,
		Conditions: []Condition{cond},
		Actions:    []Action{{Type: ActionWarning}},
	}

	rp, err := compileRule(env, rule)
	if err != nil {
		t.Fatalf("compileRule() failed: %v", err)
	}

	// Comparing a string attribute against a numeric threshold is an
	// evaluation error, which must read as a failed rule.
	ev := rp.evaluate(rule, "T1", map[string]any{"fitnessStatus": "valid"}, time.Now())
	if ev.Passed {
		t.Error("type mismatch must fail the rule, not pass it")
	}
}

func TestEvaluateEmptyConditionsAlwaysPass(t *testing.T) {
	env, _ := newCELEnv()

	rule := &BusinessRule{
		ID:       "unconditional",
		Name:     "Unconditional score",
		Category: CategoryCommercial,
		Priority: 3,
		Actions:  []Action{{Type: ActionScore, Value: 1.2, Message: "bonus"}},
	}

	rp, err := compileRule(env, rule)
	if err != nil {
		t.Fatalf("compileRule() failed: %v", err)
	}

	ev := rp.evaluate(rule, "T1", map[string]any{}, time.Now())
	if !ev.Passed {
		t.Error("rule with no conditions should always pass")
	}
	if ev.Score != 1.2 {
		t.Errorf("Score = %v, want the score action value 1.2", ev.Score)
	}
	if ev.Message != "bonus" {
		t.Errorf("Message = %q, want score action message", ev.Message)
	}
}

func TestEvaluateScoreDefaultsToNeutral(t *testing.T) {
	env, _ := newCELEnv()

	cond, _ := Equals("activeBrandingContract", true)
	rule := &BusinessRule{
		ID:         "branding",
		Name:       "Branding",
		Category:   CategoryCommercial,
		Priority:   4,
		Conditions: []Condition{cond},
		Actions:    []Action{{Type: ActionScore, Value: 1.10}},
	}

	rp, err := compileRule(env, rule)
	if err != nil {
		t.Fatalf("compileRule() failed: %v", err)
	}

	// A failed scoring rule reports the neutral score, not its action value.
	ev := rp.evaluate(rule, "T1", map[string]any{"activeBrandingContract": false}, time.Now())
	if ev.Passed {
		t.Error("branding check should fail for an unbranded train")
	}
	if ev.Score != 1.0 {
		t.Errorf("failed rule Score = %v, want neutral 1.0", ev.Score)
	}
}

func TestFailedEvaluation(t *testing.T) {
	rule := &BusinessRule{
		ID:       "orphan",
		Name:     "Orphan",
		Category: CategorySafety,
		Priority: 10,
		Actions:  []Action{{Type: ActionBlock, Message: "not compiled"}},
	}

	ev := failedEvaluation(rule, "T1", time.Now())
	if ev.Passed {
		t.Error("failedEvaluation must report a failed rule")
	}
	if ev.Score != 1.0 {
		t.Errorf("Score = %v, want neutral 1.0", ev.Score)
	}
	if ev.Message != "not compiled" {
		t.Errorf("Message = %q", ev.Message)
	}
}
