package engine

// Catalog rule IDs. The recommendation lookup and the reasoning generator
// key off these, so seeded catalogs should keep the IDs stable even when
// thresholds are tuned.
const (
	RuleFitnessCertificate = "fitness-certificate"
	RuleCriticalJobCards   = "critical-job-cards"
	RuleHealthFloor        = "health-floor"
	RuleFitnessExpiry      = "fitness-expiry-window"
	RuleDeepClean          = "deep-clean-required"
	RuleBrandingExposure   = "branding-exposure"
	RuleMileageBand        = "mileage-band"
	RuleTelemetryExcellent = "telemetry-excellent"
)

func mustCond(c Condition, err error) Condition {
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultCatalog returns the seed rule set the depot runs with before any
// operator customization. Conditions express the state required for
// service, so a failing safety rule blocks and a failing operational rule
// warns.
func DefaultCatalog() []*BusinessRule {
	return []*BusinessRule{
		{
			ID:       RuleFitnessCertificate,
			Name:     "Fitness certificate valid",
			Category: CategorySafety,
			Priority: 10,
			Active:   true,
			Conditions: []Condition{
				mustCond(NotEquals("fitnessStatus", string(FitnessExpired))),
			},
			Actions: []Action{
				{Type: ActionBlock, Message: "Expired fitness certificate"},
			},
		},
		{
			ID:       RuleCriticalJobCards,
			Name:     "No critical job cards",
			Category: CategorySafety,
			Priority: 10,
			Active:   true,
			Conditions: []Condition{
				mustCond(Equals("criticalJobCards", 0.0)),
			},
			Actions: []Action{
				{Type: ActionBlock, Message: "Critical job cards pending"},
			},
		},
		{
			ID:       RuleHealthFloor,
			Name:     "Aggregate health floor",
			Category: CategoryOperational,
			Priority: 7,
			Active:   true,
			Conditions: []Condition{
				mustCond(GreaterThan("overallHealthScore", 60)),
			},
			Actions: []Action{
				{Type: ActionWarning, Message: "Aggregate subsystem health below floor"},
			},
		},
		{
			ID:       RuleFitnessExpiry,
			Name:     "Fitness expiry window",
			Category: CategoryRegulatory,
			Priority: 6,
			Active:   true,
			Conditions: []Condition{
				mustCond(NotEquals("fitnessStatus", string(FitnessExpiringSoon))),
			},
			Actions: []Action{
				{Type: ActionWarning, Message: "Fitness certificate expiring soon"},
			},
		},
		{
			ID:       RuleDeepClean,
			Name:     "Deep cleaning outstanding",
			Category: CategoryOperational,
			Priority: 5,
			Active:   true,
			Conditions: []Condition{
				mustCond(NotEquals("cleaningStatus", string(CleaningDeepRequired))),
			},
			Actions: []Action{
				{Type: ActionWarning, Message: "Deep cleaning required before service"},
			},
		},
		{
			ID:       RuleBrandingExposure,
			Name:     "Branding exposure priority",
			Category: CategoryCommercial,
			Priority: 4,
			Active:   true,
			Conditions: []Condition{
				mustCond(Equals("activeBrandingContract", true)),
			},
			Actions: []Action{
				{Type: ActionScore, Value: 1.10, Message: "Active branding contract exposure"},
			},
		},
		{
			ID:       RuleMileageBand,
			Name:     "Mileage within fleet band",
			Category: CategoryOperational,
			Priority: 3,
			Active:   true,
			Conditions: []Condition{
				mustCond(LessThan("mileageDeviation", 8000)),
			},
			Actions: []Action{
				{Type: ActionScore, Value: 1.05, Message: "Mileage within fleet band"},
			},
		},
		{
			ID:       RuleTelemetryExcellent,
			Name:     "Telemetry excellence",
			Category: CategoryOperational,
			Priority: 2,
			Active:   true,
			Conditions: []Condition{
				mustCond(Between("overallHealthScore", 85, 100)),
			},
			Actions: []Action{
				{Type: ActionScore, Value: 1.10, Message: "Strong subsystem telemetry"},
			},
		},
	}
}

// SeedCatalog loads the default catalog into an empty store. Rules that
// already exist are left untouched.
func SeedCatalog(store RuleStore) error {
	for _, rule := range DefaultCatalog() {
		if _, err := store.Get(rule.ID); err == nil {
			continue
		}
		if err := store.Add(rule); err != nil {
			return err
		}
	}
	return nil
}
