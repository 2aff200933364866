package engine

import "fmt"

// nearMissMargin is how close to the service cutoff a standby or
// maintenance train must score before the near-miss tradeoff is reported.
const nearMissMargin = 0.05

// Pool labels used in reasoning output.
const (
	DecisionService     = "service"
	DecisionStandby     = "standby"
	DecisionMaintenance = "maintenance"
)

// buildReasoning assembles per-train justification strings for a finished
// allocation. Pure presentation over already-computed data; it never
// changes pool membership.
func buildReasoning(out allocationOutcome, eligibility map[string]*TrainEligibility, trains map[string]*Train, ix *snapshotIndex, c Constraints) []TrainReasoning {
	reasoning := make([]TrainReasoning, 0, len(out.service)+len(out.standby)+len(out.maintenance))

	for _, st := range out.service {
		reasoning = append(reasoning, serviceReasoning(st, trains[st.TrainID], ix))
	}
	for _, st := range out.standby {
		reasoning = append(reasoning, benchReasoning(DecisionStandby, st, out, eligibility[st.TrainID], trains[st.TrainID], ix, c))
	}
	for _, st := range out.maintenance {
		reasoning = append(reasoning, benchReasoning(DecisionMaintenance, st, out, eligibility[st.TrainID], trains[st.TrainID], ix, c))
	}

	return reasoning
}

func serviceReasoning(st ScoredTrain, t *Train, ix *snapshotIndex) TrainReasoning {
	r := TrainReasoning{
		TrainID:  st.TrainID,
		Decision: DecisionService,
		Score:    st.Score,
		PrimaryReasons: []string{
			"Meets all safety and operational requirements",
			fmt.Sprintf("Suitability score %.2f", st.Score),
		},
	}
	r.SecondaryFactors = secondaryFactors(t, ix)
	return r
}

// benchReasoning explains a standby or maintenance placement.
func benchReasoning(decision string, st ScoredTrain, out allocationOutcome, elig *TrainEligibility, t *Train, ix *snapshotIndex, c Constraints) TrainReasoning {
	r := TrainReasoning{
		TrainID:  st.TrainID,
		Decision: decision,
		Score:    st.Score,
	}

	if elig != nil {
		failed := failedMessages(elig)
		for _, id := range elig.BlockingRules {
			r.PrimaryReasons = append(r.PrimaryReasons, failed[id])
		}
		for _, id := range elig.WarningRules {
			r.PrimaryReasons = append(r.PrimaryReasons, failed[id])
		}
	}

	if t != nil && t.JobCardStatus == JobCardOpen && t.TotalMileage > HighMileageThreshold {
		r.PrimaryReasons = append(r.PrimaryReasons, "Open job cards on high-mileage stock")
	}
	if out.urgentReview[st.TrainID] {
		r.PrimaryReasons = append(r.PrimaryReasons, "Maintenance capacity exhausted; held in standby for urgent review")
	}
	if len(r.PrimaryReasons) == 0 {
		if out.forcedStandby[st.TrainID] {
			r.PrimaryReasons = append(r.PrimaryReasons, "Eligible for service; held back for standby coverage")
		} else {
			r.PrimaryReasons = append(r.PrimaryReasons, "Service capacity reached")
		}
	}

	r.SecondaryFactors = secondaryFactors(t, ix)

	if out.forcedStandby[st.TrainID] {
		r.Tradeoffs = append(r.Tradeoffs,
			fmt.Sprintf("Moved out of service to satisfy the standby floor of %d", c.MinStandbyTrains))
	}
	if out.serviceCutoff > 0 && st.Score >= out.serviceCutoff-nearMissMargin && !out.forcedStandby[st.TrainID] {
		r.Tradeoffs = append(r.Tradeoffs,
			fmt.Sprintf("Scored %.2f, within %.2f of the service cutoff %.2f", st.Score, nearMissMargin, out.serviceCutoff))
	}

	return r
}

// failedMessages indexes the messages of a train's failed evaluations by
// rule ID.
func failedMessages(elig *TrainEligibility) map[string]string {
	msgs := make(map[string]string)
	for _, ev := range elig.Evaluations {
		if !ev.Passed {
			msgs[ev.RuleID] = ev.Message
		}
	}
	return msgs
}

func secondaryFactors(t *Train, ix *snapshotIndex) []string {
	if t == nil {
		return nil
	}
	var factors []string
	if t.CleaningStatus == CleaningDone {
		factors = append(factors, "Recently cleaned")
	}
	if t.TotalMileage < ix.avgMileage {
		factors = append(factors, "Below fleet-average mileage")
	}
	if ix.hasActiveContract(t.ID) {
		factors = append(factors, "Active branding contract exposure")
	}
	if ix.healthScore(t.ID) >= 85 {
		factors = append(factors, "Strong subsystem telemetry")
	}
	if t.Bay.Type == BaySBL {
		factors = append(factors, "Stabled in a service-ready bay")
	}
	return factors
}
