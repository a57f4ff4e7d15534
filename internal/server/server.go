// Package server provides the HTTP server and routing for fleetcast.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/fleetops/fleetcast/internal/analysis"
	"github.com/fleetops/fleetcast/internal/backup"
	"github.com/fleetops/fleetcast/internal/config"
	"github.com/fleetops/fleetcast/internal/database"
	"github.com/fleetops/fleetcast/internal/modules/equipment"
	"github.com/fleetops/fleetcast/internal/scheduler"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Port      int
	DevMode   bool
	FleetDB   *database.DB
	CacheDB   *database.DB
	Equipment *equipment.Repository
	Costs     *equipment.CostEventRepository
	Failures  *equipment.FailureRepository
	Results   *equipment.ResultsRepository
	Fleet     *analysis.Service
	Backups   *backup.Service // nil when backups are not configured
}

// Server represents the HTTP server
type Server struct {
	router            *chi.Mux
	server            *http.Server
	log               zerolog.Logger
	cfg               *config.Config
	equipmentHandlers *EquipmentHandlers
	analysisHandlers  *AnalysisHandlers
	progressHandlers  *ProgressHandlers
	systemHandlers    *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	log := cfg.Log.With().Str("component", "server").Logger()

	s := &Server{
		router: chi.NewRouter(),
		log:    log,
		cfg:    cfg.Config,
		equipmentHandlers: NewEquipmentHandlers(
			cfg.Equipment, cfg.Costs, cfg.Failures, cfg.Log,
		),
		analysisHandlers: NewAnalysisHandlers(
			cfg.Fleet, cfg.Results, cfg.Config.Analysis, cfg.Log,
		),
		progressHandlers: NewProgressHandlers(cfg.Fleet.Runner().Progress(), cfg.Log),
		systemHandlers: NewSystemHandlers(
			[]*database.DB{cfg.FleetDB, cfg.CacheDB}, cfg.Backups, cfg.Config.DataDir, cfg.Log,
		),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // fleet runs are served synchronously
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// SetJobs registers job instances for manual triggering via API
func (s *Server) SetJobs(jobs ...scheduler.Job) {
	s.systemHandlers.SetJobs(jobs...)
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(120 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		s.equipmentHandlers.RegisterRoutes(r)
		s.analysisHandlers.RegisterRoutes(r)

		r.Get("/analysis/progress", s.progressHandlers.ServeHTTP)

		s.systemHandlers.RegisterRoutes(r)
	})
}

// handleHealth is the basic liveness endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// loggingMiddleware logs each request with latency
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("latency_ms", time.Since(start)).
			Msg("Request")
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Router exposes the router for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
