package engine

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Objective names. Scores are always reported in maximize form (higher is
// better); Direction on the Objective record is presentation metadata.
const (
	ObjectiveServiceReadiness      = "Service Readiness"
	ObjectiveBrandingRevenue       = "Branding Revenue"
	ObjectiveMileageBalance        = "Mileage Balance"
	ObjectiveOperationalEfficiency = "Operational Efficiency"
	ObjectiveMaintenanceCost       = "Maintenance Cost"
)

// DefaultObjectives returns the standard weighted objective set. Weights
// sum to 1.0.
func DefaultObjectives() []Objective {
	return []Objective{
		{Name: ObjectiveServiceReadiness, Weight: 0.30, Direction: "maximize",
			Description: "Fraction of the fleet released into revenue service"},
		{Name: ObjectiveBrandingRevenue, Weight: 0.20, Direction: "maximize",
			Description: "Fraction of service trains carrying an active branding contract"},
		{Name: ObjectiveMileageBalance, Weight: 0.20, Direction: "maximize",
			Description: "Inverse of normalized mileage variance within the service pool"},
		{Name: ObjectiveOperationalEfficiency, Weight: 0.15, Direction: "maximize",
			Description: "Fraction of service trains with cleaning completed"},
		{Name: ObjectiveMaintenanceCost, Weight: 0.15, Direction: "minimize",
			Description: "One minus the fraction of high-mileage trains in service"},
	}
}

// DefaultConstraints derives the standard allocation bounds from fleet
// size: service capped at 72% of the fleet, a standby floor of 3 (capped
// by fleet size), maintenance capped at 30% rounded up.
func DefaultConstraints(fleetSize int) Constraints {
	minStandby := 3
	if fleetSize < minStandby {
		minStandby = fleetSize
	}
	return Constraints{
		MaxServiceTrains:     fleetSize * 72 / 100,
		MinStandbyTrains:     minStandby,
		MaxMaintenanceTrains: (fleetSize*30 + 99) / 100,
	}
}

// ConstraintOverrides selectively replaces the fleet-size defaults for one
// planning run. Nil fields keep the default; explicit zero values (e.g. no
// standby floor) are honored.
type ConstraintOverrides struct {
	MaxServiceTrains     *int     `json:"maxServiceTrains,omitempty" yaml:"max_service_trains"`
	MinStandbyTrains     *int     `json:"minStandbyTrains,omitempty" yaml:"min_standby_trains"`
	MaxMaintenanceTrains *int     `json:"maxMaintenanceTrains,omitempty" yaml:"max_maintenance_trains"`
	MinServiceScore      *float64 `json:"minServiceScore,omitempty" yaml:"min_service_score"`
}

func resolveConstraints(fleetSize int, o *ConstraintOverrides) Constraints {
	c := DefaultConstraints(fleetSize)
	if o == nil {
		return c
	}
	if o.MaxServiceTrains != nil {
		c.MaxServiceTrains = *o.MaxServiceTrains
	}
	if o.MinStandbyTrains != nil {
		c.MinStandbyTrains = *o.MinStandbyTrains
	}
	if o.MaxMaintenanceTrains != nil {
		c.MaxMaintenanceTrains = *o.MaxMaintenanceTrains
	}
	if o.MinServiceScore != nil {
		c.MinServiceScore = *o.MinServiceScore
	}
	return c
}

// allocationOutcome is the allocator's internal result before reasoning
// and scenarios are attached.
type allocationOutcome struct {
	service     []ScoredTrain
	standby     []ScoredTrain
	maintenance []ScoredTrain
	violations  []ConstraintViolation

	forcedStandby map[string]bool
	urgentReview  map[string]bool

	// serviceCutoff is the lowest score admitted to service, used by the
	// reasoning generator to explain near misses.
	serviceCutoff float64
}

// allocate partitions the scored fleet into the three pools. The
// computation is a pure, deterministic batch: sort by score descending
// (train ID ascending on ties), one greedy pass, then the standby-floor
// repair. Every input train lands in exactly one pool.
func allocate(scored []ScoredTrain, eligibility map[string]*TrainEligibility, c Constraints) allocationOutcome {
	out := allocationOutcome{
		forcedStandby: make(map[string]bool),
		urgentReview:  make(map[string]bool),
	}

	ranked := make([]ScoredTrain, len(scored))
	copy(ranked, scored)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].TrainID < ranked[j].TrainID
	})

	maintenanceOverflow := 0
	for _, st := range ranked {
		status := Blocked // unknown trains never enter service
		if elig, ok := eligibility[st.TrainID]; ok {
			status = elig.Status
		}

		switch {
		case st.NeedsMaintenance || status == Blocked:
			if len(out.maintenance) < c.MaxMaintenanceTrains {
				out.maintenance = append(out.maintenance, st)
			} else {
				// Capacity exhausted: never drop a train, park it in
				// standby flagged for urgent review.
				out.standby = append(out.standby, st)
				out.urgentReview[st.TrainID] = true
				maintenanceOverflow++
			}
		case status == Eligible && len(out.service) < c.MaxServiceTrains && st.Score >= c.MinServiceScore:
			out.service = append(out.service, st)
		default:
			out.standby = append(out.standby, st)
		}
	}

	if maintenanceOverflow > 0 {
		out.violations = append(out.violations, ConstraintViolation{
			Constraint: "maxMaintenanceTrains",
			Detail: fmt.Sprintf("%d trains exceed maintenance capacity %d; held in standby for urgent review",
				maintenanceOverflow, c.MaxMaintenanceTrains),
		})
	}

	// Hard constraint: the standby floor. Pull the lowest-scoring service
	// trains back to the front of the standby queue; maintenance trains
	// are never promoted to fill standby.
	for len(out.standby) < c.MinStandbyTrains && len(out.service) > 0 {
		last := len(out.service) - 1
		moved := out.service[last]
		out.service = out.service[:last]
		out.standby = append([]ScoredTrain{moved}, out.standby...)
		out.forcedStandby[moved.TrainID] = true
	}
	if len(out.standby) < c.MinStandbyTrains {
		out.violations = append(out.violations, ConstraintViolation{
			Constraint: "minStandbyTrains",
			Detail: fmt.Sprintf("standby floor %d infeasible; only %d trains available outside maintenance",
				c.MinStandbyTrains, len(out.standby)),
		})
	}

	if len(out.service) > 0 {
		out.serviceCutoff = out.service[len(out.service)-1].Score
	}

	return out
}

// objectiveScores computes every named objective for a service pool.
// Defined for any pool, including empty (all fractions are 0, balance is
// perfect).
func objectiveScores(service []ScoredTrain, trains map[string]*Train, ix *snapshotIndex, fleetSize int) map[string]float64 {
	scores := map[string]float64{
		ObjectiveServiceReadiness:      0,
		ObjectiveBrandingRevenue:       0,
		ObjectiveMileageBalance:        1,
		ObjectiveOperationalEfficiency: 0,
		ObjectiveMaintenanceCost:       1,
	}
	if fleetSize == 0 {
		scores[ObjectiveMileageBalance] = 0
		scores[ObjectiveMaintenanceCost] = 0
		return scores
	}

	scores[ObjectiveServiceReadiness] = float64(len(service)) / float64(fleetSize)
	if len(service) == 0 {
		return scores
	}

	var branded, cleaned, highMileage int
	mileages := make([]float64, 0, len(service))
	for _, st := range service {
		t := trains[st.TrainID]
		if t == nil {
			continue
		}
		if ix.hasActiveContract(t.ID) {
			branded++
		}
		if t.CleaningStatus == CleaningDone {
			cleaned++
		}
		if t.TotalMileage > HighMileageThreshold {
			highMileage++
		}
		mileages = append(mileages, t.TotalMileage)
	}

	n := float64(len(service))
	scores[ObjectiveBrandingRevenue] = float64(branded) / n
	scores[ObjectiveOperationalEfficiency] = float64(cleaned) / n
	scores[ObjectiveMaintenanceCost] = 1 - float64(highMileage)/n

	if len(mileages) >= 2 {
		mean := stat.Mean(mileages, nil)
		if mean > 0 {
			cv := math.Sqrt(stat.Variance(mileages, nil)) / mean
			scores[ObjectiveMileageBalance] = 1 / (1 + cv)
		}
	}

	return scores
}

// weightedTotal collapses objective scores into one number. Weights are
// normalized when they do not sum to 1.0; an all-zero weight set scores 0
// rather than dividing by zero.
func weightedTotal(objectives []Objective, scores map[string]float64) float64 {
	var sum float64
	for _, o := range objectives {
		sum += o.Weight
	}
	if sum <= 0 {
		return 0
	}

	var total float64
	for _, o := range objectives {
		total += (o.Weight / sum) * scores[o.Name]
	}
	return total
}
