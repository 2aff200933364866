package engine

import "sort"

// ScenarioPreset names an alternative allocation policy and derives its
// constraint set from the fleet size and the primary run's constraints.
type ScenarioPreset struct {
	Name        string
	Description string
	Derive      func(fleetSize int, primary Constraints) Constraints
}

// DefaultPresets returns the standard comparison scenarios.
func DefaultPresets() []ScenarioPreset {
	return []ScenarioPreset{
		{
			Name:        "Maximum Service",
			Description: "Push as many trains into revenue service as possible; no standby floor",
			Derive: func(fleetSize int, primary Constraints) Constraints {
				c := primary
				c.MaxServiceTrains = fleetSize * 80 / 100
				c.MinStandbyTrains = 0
				return c
			},
		},
		{
			Name:        "Conservative",
			Description: "Smaller service pool restricted to high-scoring trains",
			Derive: func(fleetSize int, primary Constraints) Constraints {
				c := primary
				c.MaxServiceTrains = fleetSize * 55 / 100
				c.MinServiceScore = 0.60
				return c
			},
		},
	}
}

// buildScenarios re-runs the allocator under each preset. Every scenario
// is an independent recomputation over the same immutable inputs; the
// primary outcome is only read to compute service-pool set differences.
func buildScenarios(presets []ScenarioPreset, scored []ScoredTrain, eligibility map[string]*TrainEligibility,
	trains map[string]*Train, ix *snapshotIndex, objectives []Objective, primary allocationOutcome, primaryConstraints Constraints) []Scenario {

	fleetSize := len(scored)
	primaryService := poolIDs(primary.service)

	scenarios := make([]Scenario, 0, len(presets))
	for _, preset := range presets {
		c := preset.Derive(fleetSize, primaryConstraints)
		out := allocate(scored, eligibility, c)
		scores := objectiveScores(out.service, trains, ix, fleetSize)

		scenarios = append(scenarios, Scenario{
			Name:              preset.Name,
			Description:       preset.Description,
			Constraints:       c,
			ServiceTrains:     poolIDs(out.service),
			StandbyTrains:     poolIDs(out.standby),
			MaintenanceTrains: poolIDs(out.maintenance),
			TotalScore:        weightedTotal(objectives, scores),
			ObjectiveScores:   scores,
			KeyDifferences:    diffService(primaryService, poolIDs(out.service)),
		})
	}
	return scenarios
}

func poolIDs(pool []ScoredTrain) []string {
	ids := make([]string, 0, len(pool))
	for _, st := range pool {
		ids = append(ids, st.TrainID)
	}
	return ids
}

// diffService computes the service-pool set differences between the
// primary allocation and a scenario, sorted for stable output.
func diffService(primary, scenario []string) KeyDifferences {
	inPrimary := make(map[string]bool, len(primary))
	for _, id := range primary {
		inPrimary[id] = true
	}
	inScenario := make(map[string]bool, len(scenario))
	for _, id := range scenario {
		inScenario[id] = true
	}

	diff := KeyDifferences{
		AddedToService:     []string{},
		RemovedFromService: []string{},
	}
	for _, id := range scenario {
		if !inPrimary[id] {
			diff.AddedToService = append(diff.AddedToService, id)
		}
	}
	for _, id := range primary {
		if !inScenario[id] {
			diff.RemovedFromService = append(diff.RemovedFromService, id)
		}
	}
	sort.Strings(diff.AddedToService)
	sort.Strings(diff.RemovedFromService)
	return diff
}
