package engine

import "time"

// FitnessStatus is the state of a train's safety fitness certificate.
type FitnessStatus string

const (
	FitnessValid        FitnessStatus = "valid"
	FitnessExpiringSoon FitnessStatus = "expiring_soon"
	FitnessExpired      FitnessStatus = "expired"
)

// JobCardStatus is the aggregate maintenance work-order state of a train.
type JobCardStatus string

const (
	JobCardOpen       JobCardStatus = "open"
	JobCardInProgress JobCardStatus = "in_progress"
	JobCardClosed     JobCardStatus = "closed"
)

// JobCardPriority ranks individual maintenance work orders.
type JobCardPriority string

const (
	PriorityCritical JobCardPriority = "critical"
	PriorityHigh     JobCardPriority = "high"
	PriorityMedium   JobCardPriority = "medium"
	PriorityLow      JobCardPriority = "low"
)

// CleaningStatus is the interior cleaning state of a train.
type CleaningStatus string

const (
	CleaningPending      CleaningStatus = "pending"
	CleaningInProgress   CleaningStatus = "in_progress"
	CleaningDone         CleaningStatus = "done"
	CleaningDeepRequired CleaningStatus = "deep_clean_required"
)

// BayType identifies the readiness level a depot bay implies:
// SBL is service-ready, IBL light inspection, HIBL heavy inspection.
type BayType string

const (
	BaySBL  BayType = "SBL"
	BayIBL  BayType = "IBL"
	BayHIBL BayType = "HIBL"
)

// DepotBay is a train's physical position in the depot.
type DepotBay struct {
	Number int     `json:"number"`
	Type   BayType `json:"type"`
}

// Train is a read-only fleet-unit snapshot supplied by the caller.
// The engine never mutates it; derived values (critical job-card count,
// aggregate health, mileage deviation) are computed per run from the
// auxiliary record sets in FleetSnapshot.
type Train struct {
	ID               string         `json:"id"`
	Number           string         `json:"number"`
	FitnessStatus    FitnessStatus  `json:"fitnessStatus"`
	JobCardStatus    JobCardStatus  `json:"jobCardStatus"`
	BrandingRequired bool           `json:"brandingRequired"`
	TotalMileage     float64        `json:"totalMileage"`
	CleaningStatus   CleaningStatus `json:"cleaningStatus"`
	Bay              DepotBay       `json:"depotBay"`
}

// JobCard is a single maintenance work order against a train.
type JobCard struct {
	TrainID  string          `json:"trainId"`
	Priority JobCardPriority `json:"priority"`
	Status   JobCardStatus   `json:"status"`
}

// IoTReading carries the four subsystem health scores (0-100) reported
// by a train's onboard telemetry.
type IoTReading struct {
	TrainID     string  `json:"trainId"`
	EngineScore float64 `json:"engineScore"`
	BrakeScore  float64 `json:"brakeScore"`
	DoorScore   float64 `json:"doorScore"`
	ACScore     float64 `json:"acScore"`
}

// BrandingContract is an advertising wrap contract with exposure-hour
// commitments.
type BrandingContract struct {
	TrainID       string  `json:"trainId"`
	Status        string  `json:"status"`
	RequiredHours float64 `json:"requiredHours"`
	CurrentHours  float64 `json:"currentHours"`
}

// BrandingActive is the contract status that counts as an active exposure
// commitment.
const BrandingActive = "active"

// FleetSnapshot is the full engine input for one planning run: the fleet
// plus the auxiliary record sets the classifier derives attributes from.
type FleetSnapshot struct {
	Trains    []Train            `json:"trains"`
	JobCards  []JobCard          `json:"jobCards"`
	Readings  []IoTReading       `json:"iotReadings"`
	Contracts []BrandingContract `json:"brandingContracts"`
}

// EligibilityStatus classifies a train after rule evaluation, prior to
// allocation.
type EligibilityStatus string

const (
	Eligible    EligibilityStatus = "eligible"
	Conditional EligibilityStatus = "conditional"
	Blocked     EligibilityStatus = "blocked"
)

// RuleEvaluation is the outcome of evaluating one active rule against one
// train. Ephemeral; produced fresh on every run.
type RuleEvaluation struct {
	RuleID    string       `json:"ruleId"`
	TrainID   string       `json:"trainId"`
	Passed    bool         `json:"passed"`
	Score     float64      `json:"score"`
	Message   string       `json:"message"`
	Category  RuleCategory `json:"category"`
	Timestamp time.Time    `json:"timestamp"`
}

// TrainEligibility aggregates one train's rule evaluations for one run.
type TrainEligibility struct {
	TrainID         string            `json:"trainId"`
	OverallScore    float64           `json:"overallScore"`
	Status          EligibilityStatus `json:"eligibilityStatus"`
	Evaluations     []RuleEvaluation  `json:"evaluations"`
	BlockingRules   []string          `json:"blockingRuleIds"`
	WarningRules    []string          `json:"warningRuleIds"`
	Recommendations []string          `json:"recommendations"`
}

// Objective is one weighted optimization goal. Weights across active
// objectives should sum to 1.0; the allocator normalizes when they do not.
type Objective struct {
	Name        string  `json:"name" yaml:"name"`
	Weight      float64 `json:"weight" yaml:"weight"`
	Direction   string  `json:"direction" yaml:"direction"`
	Description string  `json:"description" yaml:"description"`
}

// Constraints bound the allocation. Zero values mean "use the fleet-size
// defaults" (see DefaultConstraints). MinServiceScore is an additional
// floor used by the conservative scenario preset.
type Constraints struct {
	MaxServiceTrains     int     `json:"maxServiceTrains" yaml:"max_service_trains"`
	MinStandbyTrains     int     `json:"minStandbyTrains" yaml:"min_standby_trains"`
	MaxMaintenanceTrains int     `json:"maxMaintenanceTrains" yaml:"max_maintenance_trains"`
	MinServiceScore      float64 `json:"minServiceScore" yaml:"min_service_score"`
}

// ConstraintViolation records a soft-constraint breach or an infeasible
// hard constraint the allocator had to relax. The run still completes.
type ConstraintViolation struct {
	Constraint string `json:"constraint"`
	Detail     string `json:"detail"`
}

// TrainReasoning is the human-readable justification for one train's
// placement. It is presentation data only and never feeds back into the
// allocation.
type TrainReasoning struct {
	TrainID          string   `json:"trainId"`
	Decision         string   `json:"decision"`
	Score            float64  `json:"score"`
	PrimaryReasons   []string `json:"primaryReasons"`
	SecondaryFactors []string `json:"secondaryFactors"`
	Tradeoffs        []string `json:"tradeoffs,omitempty"`
}

// KeyDifferences compares a scenario's service pool against the primary
// allocation as set differences, not free text.
type KeyDifferences struct {
	AddedToService     []string `json:"addedToService"`
	RemovedFromService []string `json:"removedFromService"`
}

// Scenario is an alternative allocation computed under a different
// constraint preset.
type Scenario struct {
	Name              string             `json:"name"`
	Description       string             `json:"description"`
	Constraints       Constraints        `json:"constraints"`
	ServiceTrains     []string           `json:"serviceTrains"`
	StandbyTrains     []string           `json:"standbyTrains"`
	MaintenanceTrains []string           `json:"maintenanceTrains"`
	TotalScore        float64            `json:"totalScore"`
	ObjectiveScores   map[string]float64 `json:"objectiveScores"`
	KeyDifferences    KeyDifferences     `json:"keyDifferences"`
}

// AllocationResult is the complete output of one planning run. It is
// immutable once returned; persistence and display are caller concerns.
type AllocationResult struct {
	RunID                string                `json:"runId"`
	GeneratedAt          time.Time             `json:"timestamp"`
	ServiceTrains        []string              `json:"selectedTrains"`
	StandbyTrains        []string              `json:"standbyTrains"`
	MaintenanceTrains    []string              `json:"maintenanceTrains"`
	TotalScore           float64               `json:"totalScore"`
	ObjectiveScores      map[string]float64    `json:"objectiveScores"`
	ConstraintViolations []ConstraintViolation `json:"constraintViolations"`
	Eligibility          []TrainEligibility    `json:"eligibility"`
	Reasoning            []TrainReasoning      `json:"reasoning"`
	Scenarios            []Scenario            `json:"alternativeScenarios"`
}
