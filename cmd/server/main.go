package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "github.com/lib/pq"

	"github.com/fleetops/induction/config"
	"github.com/fleetops/induction/engine"
	"github.com/fleetops/induction/pkg/logger"
	"github.com/fleetops/induction/scheduler"
)

// Server wires the induction engine behind the dashboard-facing HTTP API.
type Server struct {
	engine  *engine.Engine
	source  *memorySnapshotSource
	planJob *scheduler.PlanJob
	router  *chi.Mux
	log     zerolog.Logger
}

// NewServer builds the server around an already-constructed engine.
func NewServer(en *engine.Engine, planJob *scheduler.PlanJob, source *memorySnapshotSource, log zerolog.Logger) *Server {
	s := &Server{
		engine:  en,
		source:  source,
		planJob: planJob,
		log:     log.With().Str("component", "server").Logger(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/api/v1/health", s.handleHealth)

	// Planning
	r.Post("/api/v1/plan", s.handlePlan)
	r.Get("/api/v1/plan/latest", s.handleLatestPlan)

	// Rule catalog management
	r.Route("/api/v1/rules", func(r chi.Router) {
		r.Get("/", s.handleListRules)
		r.Post("/", s.handleCreateRule)

		r.Route("/{ruleId}", func(r chi.Router) {
			r.Get("/", s.handleGetRule)
			r.Put("/", s.handleUpdateRule)
			r.Delete("/", s.handleDeleteRule)
			r.Put("/active", s.handleSetRuleActive)
		})
	})

	// Objective weights
	r.Get("/api/v1/objectives", s.handleGetObjectives)
	r.Put("/api/v1/objectives", s.handleUpdateObjectives)

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	rules, err := s.engine.Rules()
	if err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"rulesLoaded": len(rules),
	})
}

// handlePlan runs one allocation over a pushed snapshot.
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if req.Snapshot == nil {
		respondError(w, http.StatusBadRequest, "snapshot is required", nil)
		return
	}

	result, err := s.engine.PlanWith(req.Snapshot, req.Constraints)
	if err != nil {
		if errors.Is(err, engine.ErrNoSnapshot) {
			respondError(w, http.StatusBadRequest, "snapshot is required", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "plan failed", err)
		return
	}

	// Keep the snapshot for scheduled re-optimization.
	s.source.Set(req.Snapshot)

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleLatestPlan(w http.ResponseWriter, r *http.Request) {
	if s.planJob == nil {
		respondError(w, http.StatusNotFound, "periodic planning is not enabled", nil)
		return
	}

	result := s.planJob.Latest()
	if result == nil {
		respondError(w, http.StatusNotFound, "no scheduled plan has completed yet", nil)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.engine.Rules()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list rules", err)
		return
	}

	specs := make([]engine.RuleSpec, 0, len(rules))
	for _, rule := range rules {
		specs = append(specs, rule.Spec())
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"rules": specs,
	})
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var spec engine.RuleSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if spec.ID == "" {
		spec.ID = uuid.New().String()
	}

	rule, err := engine.ParseRule(spec)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid rule", err)
		return
	}

	if err := s.engine.AddRule(rule); err != nil {
		respondError(w, http.StatusBadRequest, "failed to add rule", err)
		return
	}

	respondJSON(w, http.StatusCreated, rule.Spec())
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "ruleId")

	rule, err := s.engine.Rule(ruleID)
	if err != nil {
		respondError(w, http.StatusNotFound, "rule not found", err)
		return
	}

	respondJSON(w, http.StatusOK, rule.Spec())
}

// handleUpdateRule applies a partial update; omitted fields keep their
// current values. Changes take effect on the next planning run.
func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "ruleId")

	existing, err := s.engine.Rule(ruleID)
	if err != nil {
		respondError(w, http.StatusNotFound, "rule not found", err)
		return
	}

	var req ruleUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	rule, err := engine.ParseRule(req.merge(existing.Spec()))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid rule", err)
		return
	}

	if err := s.engine.UpdateRule(rule); err != nil {
		respondError(w, http.StatusBadRequest, "failed to update rule", err)
		return
	}

	respondJSON(w, http.StatusOK, rule.Spec())
}

func (s *Server) handleSetRuleActive(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "ruleId")

	var req ruleActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Active == nil {
		respondError(w, http.StatusBadRequest, "active is required", nil)
		return
	}

	if err := s.engine.SetRuleActive(ruleID, *req.Active); err != nil {
		respondError(w, http.StatusNotFound, "rule not found", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"id":     ruleID,
		"active": *req.Active,
	})
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "ruleId")

	if err := s.engine.DeleteRule(ruleID); err != nil {
		respondError(w, http.StatusNotFound, "rule not found", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetObjectives(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"objectives": s.engine.Objectives(),
	})
}

func (s *Server) handleUpdateObjectives(w http.ResponseWriter, r *http.Request) {
	var req objectiveWeightsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if len(req.Weights) == 0 {
		respondError(w, http.StatusBadRequest, "weights are required", nil)
		return
	}

	if err := s.engine.SetObjectiveWeights(req.Weights); err != nil {
		respondError(w, http.StatusBadRequest, "failed to update weights", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"objectives": s.engine.Objectives(),
	})
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]string{
		"error": message,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}

func buildRuleStore(cfg *config.Config, log zerolog.Logger) (engine.RuleStore, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Info().Msg("No DATABASE_URL set; using in-memory rule store")
		return engine.NewInMemoryRuleStore(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return engine.NewPostgresRuleStore(db), func() { db.Close() }, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting induction planner")

	store, closeStore, err := buildRuleStore(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize rule store")
	}
	defer closeStore()

	// Seed the default catalog; existing rule IDs are left untouched.
	if err := engine.SeedCatalog(store); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed rule catalog")
	}

	en, err := engine.NewEngine(store, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create engine")
	}

	var overrides *engine.ConstraintOverrides
	if cfg.CatalogPath != "" {
		catalog, err := config.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("Failed to load catalog file")
		}
		if err := catalog.Apply(en); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply catalog file")
		}
		overrides = catalog.Constraints
		log.Info().Str("path", cfg.CatalogPath).Int("rules", len(catalog.Rules)).Msg("Catalog file applied")
	}

	source := &memorySnapshotSource{}

	var planJob *scheduler.PlanJob
	if cfg.PlanSchedule != "" {
		planJob = scheduler.NewPlanJob(en, source, overrides, log)

		sched := scheduler.New(log)
		if err := sched.AddPlanJob(cfg.PlanSchedule, planJob); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.PlanSchedule).Msg("Failed to register plan job")
		}
		sched.Start()
		defer sched.Stop()
	}

	server := NewServer(en, planJob, source, log)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Msg("Server starting")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Server stopped")
}
