package engine

// Scoring adjustments applied on top of the rule-derived eligibility
// score. These capture suitability nuances the rule catalog does not:
// readiness bonuses, shunting cost, and fleet mileage balancing.
const (
	fitnessValidBonus   = 0.10
	jobCardsClosedBonus = 0.05
	cleaningDoneBonus   = 0.05
	brandingBonus       = 0.10

	// Mileage deviation penalty: proportional to the train's distance from
	// the fleet average, normalized by that average and capped.
	mileagePenaltyWeight = 0.10
	mileagePenaltyCap    = 0.15

	// Lower bay numbers are closer to the depot exit; shunting out of them
	// is cheaper.
	bayBonusWeight = 0.03

	// Younger stock gets a small preference, fading to zero at
	// freshMileageCeiling.
	freshStockBonus     = 0.05
	freshMileageCeiling = 200000.0
)

// ScoredTrain is one train's suitability score plus the maintenance flag
// that feeds the allocator's hard-constraint path.
type ScoredTrain struct {
	TrainID          string  `json:"trainId"`
	Score            float64 `json:"score"`
	NeedsMaintenance bool    `json:"needsMaintenance"`
}

// scoreFleet combines eligibility scores with the auxiliary adjustments.
// Output order follows the snapshot's train order; the allocator imposes
// its own deterministic sort.
func scoreFleet(snapshot *FleetSnapshot, ix *snapshotIndex, eligibility map[string]*TrainEligibility) []ScoredTrain {
	scored := make([]ScoredTrain, 0, len(snapshot.Trains))
	for i := range snapshot.Trains {
		t := &snapshot.Trains[i]
		scored = append(scored, scoreTrain(t, ix, eligibility[t.ID]))
	}
	return scored
}

func scoreTrain(t *Train, ix *snapshotIndex, elig *TrainEligibility) ScoredTrain {
	score := 1.0
	if elig != nil {
		score = elig.OverallScore
	}

	if t.FitnessStatus == FitnessValid {
		score += fitnessValidBonus
	}
	if t.JobCardStatus == JobCardClosed {
		score += jobCardsClosedBonus
	}
	if t.CleaningStatus == CleaningDone {
		score += cleaningDoneBonus
	}
	if ix.hasActiveContract(t.ID) {
		score += brandingBonus
	}

	if ix.avgMileage > 0 {
		penalty := ix.mileageDeviation(t) / ix.avgMileage * mileagePenaltyWeight
		if penalty > mileagePenaltyCap {
			penalty = mileagePenaltyCap
		}
		score -= penalty
	}

	if t.Bay.Number > 0 {
		score += bayBonusWeight / float64(t.Bay.Number)
	}

	if t.TotalMileage < freshMileageCeiling {
		score += freshStockBonus * (1 - t.TotalMileage/freshMileageCeiling)
	}

	if score < 0 {
		score = 0
	}

	return ScoredTrain{
		TrainID:          t.ID,
		Score:            score,
		NeedsMaintenance: needsMaintenance(t),
	}
}

// needsMaintenance routes a train to the maintenance pool even when no
// rule blocked it: expired fitness, or open job cards on high-mileage
// stock.
func needsMaintenance(t *Train) bool {
	if t.FitnessStatus == FitnessExpired {
		return true
	}
	return t.JobCardStatus == JobCardOpen && t.TotalMileage > HighMileageThreshold
}
