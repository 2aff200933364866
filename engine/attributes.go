package engine

// DefaultHealthScore is the conservative aggregate health substituted when
// a train has no telemetry reading.
const DefaultHealthScore = 75.0

// HighMileageThreshold is the mileage above which open job cards flag a
// train for maintenance and above which service trains count against the
// Maintenance Cost objective.
const HighMileageThreshold = 70000.0

// snapshotIndex precomputes per-train lookups over the auxiliary record
// sets so classification and scoring stay O(fleet).
type snapshotIndex struct {
	criticalCards map[string]int
	health        map[string]float64
	contracts     map[string]BrandingContract
	avgMileage    float64
}

func indexSnapshot(s *FleetSnapshot) *snapshotIndex {
	ix := &snapshotIndex{
		criticalCards: make(map[string]int),
		health:        make(map[string]float64),
		contracts:     make(map[string]BrandingContract),
	}

	for _, jc := range s.JobCards {
		// A critical card counts until it is closed; in-progress work is
		// still open work.
		if jc.Priority == PriorityCritical && jc.Status != JobCardClosed {
			ix.criticalCards[jc.TrainID]++
		}
	}

	for _, r := range s.Readings {
		ix.health[r.TrainID] = (r.EngineScore + r.BrakeScore + r.DoorScore + r.ACScore) / 4
	}

	for _, c := range s.Contracts {
		if c.Status == BrandingActive {
			ix.contracts[c.TrainID] = c
		}
	}

	if len(s.Trains) > 0 {
		var total float64
		for _, t := range s.Trains {
			total += t.TotalMileage
		}
		ix.avgMileage = total / float64(len(s.Trains))
	}

	return ix
}

func (ix *snapshotIndex) healthScore(trainID string) float64 {
	if h, ok := ix.health[trainID]; ok {
		return h
	}
	return DefaultHealthScore
}

func (ix *snapshotIndex) hasActiveContract(trainID string) bool {
	_, ok := ix.contracts[trainID]
	return ok
}

func (ix *snapshotIndex) mileageDeviation(t *Train) float64 {
	d := t.TotalMileage - ix.avgMileage
	if d < 0 {
		d = -d
	}
	return d
}

// attributes builds the derived attribute map a train is evaluated
// against. All numeric values are float64 so CEL comparisons against
// condition operands never hit cross-type surprises; enumerations are
// plain strings.
func (ix *snapshotIndex) attributes(t *Train) map[string]any {
	return map[string]any{
		"trainNumber":            t.Number,
		"fitnessStatus":          string(t.FitnessStatus),
		"jobCardStatus":          string(t.JobCardStatus),
		"criticalJobCards":       float64(ix.criticalCards[t.ID]),
		"overallHealthScore":     ix.healthScore(t.ID),
		"activeBrandingContract": ix.hasActiveContract(t.ID),
		"brandingRequired":       t.BrandingRequired,
		"totalMileage":           t.TotalMileage,
		"mileageDeviation":       ix.mileageDeviation(t),
		"cleaningStatus":         string(t.CleaningStatus),
		"bayNumber":              float64(t.Bay.Number),
		"bayType":                string(t.Bay.Type),
	}
}
