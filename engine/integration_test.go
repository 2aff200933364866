//go:build integration
// +build integration

package engine_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fleetops/induction/engine"

	_ "github.com/lib/pq"
)

// setupTestDB creates a PostgreSQL container and returns a connection
func setupTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "induction_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithStartupTimeout(60 * time.Second),
	}

	postgresContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	host, err := postgresContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := postgresContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	connStr := fmt.Sprintf("host=%s port=%s user=test password=test dbname=induction_test sslmode=disable", host, port.Port())

	// Wait for connection to be available
	var db *sql.DB
	for i := 0; i < 30; i++ {
		db, err = sql.Open("postgres", connStr)
		if err == nil {
			err = db.Ping()
			if err == nil {
				break
			}
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	migrationSQL, err := os.ReadFile(filepath.Join("..", "migrations", "000001_create_rules_table.up.sql"))
	if err != nil {
		t.Fatalf("Failed to read migration file: %v", err)
	}

	_, err = db.Exec(string(migrationSQL))
	if err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		db.Close()
		postgresContainer.Terminate(ctx)
	}

	return db, cleanup
}

func makeRule(id string) *engine.BusinessRule {
	rule, err := engine.ParseRule(engine.RuleSpec{
		ID:       id,
		Name:     "Fitness certificate valid",
		Category: engine.CategorySafety,
		Priority: 10,
		Active:   true,
		Conditions: []engine.ConditionSpec{
			{Field: "fitnessStatus", Operator: engine.OpNotEquals, Value: "expired"},
		},
		Actions: []engine.Action{{Type: engine.ActionBlock, Message: "Expired fitness certificate"}},
	})
	if err != nil {
		panic(err)
	}
	return rule
}

func TestPostgresRuleStore_BasicCRUD(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := engine.NewPostgresRuleStore(db)

	ruleID := uuid.New().String()
	rule := makeRule(ruleID)

	err := store.Add(rule)
	if err != nil {
		t.Fatalf("Failed to add rule: %v", err)
	}

	retrieved, err := store.Get(ruleID)
	if err != nil {
		t.Fatalf("Failed to get rule: %v", err)
	}
	if retrieved.Name != "Fitness certificate valid" {
		t.Errorf("Expected rule name to round-trip, got '%s'", retrieved.Name)
	}
	if len(retrieved.Conditions) != 1 || retrieved.Conditions[0].Operator() != engine.OpNotEquals {
		t.Errorf("Conditions did not round-trip: %+v", retrieved.Conditions)
	}

	activeRules, err := store.ListActive()
	if err != nil {
		t.Fatalf("Failed to list active rules: %v", err)
	}
	if len(activeRules) != 1 {
		t.Errorf("Expected 1 active rule, got %d", len(activeRules))
	}

	rule.Name = "Renamed rule"
	rule.Active = false
	err = store.Update(rule)
	if err != nil {
		t.Fatalf("Failed to update rule: %v", err)
	}

	updated, err := store.Get(ruleID)
	if err != nil {
		t.Fatalf("Failed to get updated rule: %v", err)
	}
	if updated.Name != "Renamed rule" {
		t.Errorf("Expected name 'Renamed rule', got '%s'", updated.Name)
	}
	if updated.Active {
		t.Error("Expected rule to be inactive after update")
	}

	activeRules, err = store.ListActive()
	if err != nil {
		t.Fatalf("Failed to list active rules: %v", err)
	}
	if len(activeRules) != 0 {
		t.Errorf("Expected 0 active rules, got %d", len(activeRules))
	}

	err = store.Delete(ruleID)
	if err != nil {
		t.Fatalf("Failed to delete rule: %v", err)
	}

	_, err = store.Get(ruleID)
	if err == nil {
		t.Error("Expected error when getting deleted rule, got nil")
	}
}

func TestPostgresRuleStore_DuplicateRuleID(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := engine.NewPostgresRuleStore(db)

	ruleID := uuid.New().String()
	err := store.Add(makeRule(ruleID))
	if err != nil {
		t.Fatalf("Failed to add rule: %v", err)
	}

	err = store.Add(makeRule(ruleID))
	if err == nil {
		t.Error("Expected error when adding duplicate rule, got nil")
	}
}

func TestPostgresRuleStore_UpdateNonExistent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := engine.NewPostgresRuleStore(db)

	err := store.Update(makeRule(uuid.New().String()))
	if err == nil {
		t.Error("Expected error when updating non-existent rule, got nil")
	}
}

func TestPostgresRuleStore_DeleteNonExistent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := engine.NewPostgresRuleStore(db)

	err := store.Delete(uuid.New().String())
	if err == nil {
		t.Error("Expected error when deleting non-existent rule, got nil")
	}
}

func TestEngine_WithDatabase(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := engine.NewPostgresRuleStore(db)
	if err := engine.SeedCatalog(store); err != nil {
		t.Fatalf("Failed to seed catalog: %v", err)
	}

	en, err := engine.NewEngine(store, zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	snapshot := &engine.FleetSnapshot{
		Trains: []engine.Train{
			{ID: "T1", Number: "KRISHNA", FitnessStatus: engine.FitnessValid,
				JobCardStatus: engine.JobCardClosed, CleaningStatus: engine.CleaningDone,
				TotalMileage: 30000, Bay: engine.DepotBay{Number: 1, Type: engine.BaySBL}},
			{ID: "T2", Number: "TAPTI", FitnessStatus: engine.FitnessExpired,
				JobCardStatus: engine.JobCardClosed, CleaningStatus: engine.CleaningDone,
				TotalMileage: 90000, Bay: engine.DepotBay{Number: 2, Type: engine.BayHIBL}},
		},
	}

	result, err := en.Plan(snapshot)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	maintenance := false
	for _, id := range result.MaintenanceTrains {
		if id == "T2" {
			maintenance = true
		}
	}
	if !maintenance {
		t.Errorf("Expected T2 in maintenance, got %v", result.MaintenanceTrains)
	}
}

func TestPostgresRuleStore_RejectsCorruptedRows(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := engine.NewPostgresRuleStore(db)

	// Hand-edit a row to an unknown operator; the store must refuse to
	// hydrate it rather than evaluate garbage.
	_, err := db.Exec(`
		INSERT INTO rules (id, name, category, priority, active, conditions, actions, created_at, updated_at)
		VALUES ('corrupt', 'Corrupt', 'safety', 5, true,
			'[{"field":"fitnessStatus","operator":"matches","value":"x"}]'::jsonb,
			'[{"type":"block"}]'::jsonb, now(), now())
	`)
	if err != nil {
		t.Fatalf("Failed to insert corrupted row: %v", err)
	}

	if _, err := store.Get("corrupt"); err == nil {
		t.Error("Expected error hydrating a rule with an unknown operator")
	}
}
