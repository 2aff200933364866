package engine

import "time"

// recommendationByRule maps known catalog rule IDs to the remedial hint
// surfaced when that rule fails. This is a fixed lookup, not inference.
var recommendationByRule = map[string]string{
	RuleFitnessCertificate: "Renew fitness certificate before induction",
	RuleCriticalJobCards:   "Close critical job cards before induction",
	RuleHealthFloor:        "Schedule subsystem inspection; aggregate health below floor",
	RuleFitnessExpiry:      "Book certificate renewal; expiry window open",
	RuleDeepClean:          "Schedule deep cleaning before service",
	RuleBrandingExposure:   "Assign branding wrap or release contract hours",
	RuleMileageBand:        "Rotate into service to rebalance mileage",
}

// classifyTrain evaluates every supplied rule (already filtered to active
// and sorted by priority) against one train and aggregates the outcome.
//
// Aggregation: the overall score starts at 1.0 and is multiplied by the
// Score-action value of every passed scoring rule; scores compose
// multiplicatively, not additively. A failed rule with a Block action
// makes the train Blocked; otherwise a failed Warning rule makes it
// Conditional.
func classifyTrain(trainID string, rules []*BusinessRule, programs map[string]*ruleProgram, attrs map[string]any, now time.Time) TrainEligibility {
	elig := TrainEligibility{
		TrainID:      trainID,
		OverallScore: 1.0,
	}

	for _, rule := range rules {
		var ev RuleEvaluation
		if rp, ok := programs[rule.ID]; ok {
			ev = rp.evaluate(rule, trainID, attrs, now)
		} else {
			ev = failedEvaluation(rule, trainID, now)
		}
		elig.Evaluations = append(elig.Evaluations, ev)

		if ev.Passed {
			if rule.HasAction(ActionScore) {
				elig.OverallScore *= ev.Score
			}
			continue
		}

		switch {
		case rule.HasAction(ActionBlock):
			elig.BlockingRules = append(elig.BlockingRules, rule.ID)
		case rule.HasAction(ActionWarning):
			elig.WarningRules = append(elig.WarningRules, rule.ID)
		}

		if hint, ok := recommendationByRule[rule.ID]; ok {
			elig.Recommendations = append(elig.Recommendations, hint)
		}
	}

	switch {
	case len(elig.BlockingRules) > 0:
		elig.Status = Blocked
	case len(elig.WarningRules) > 0:
		elig.Status = Conditional
	default:
		elig.Status = Eligible
	}

	return elig
}
