// Package main is the entry point for the fleetcast capital planning service.
// It wires the sqlite storage, the analysis pipeline, the cron jobs, and the
// HTTP API, then runs until interrupted.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetops/fleetcast/internal/analysis"
	"github.com/fleetops/fleetcast/internal/backup"
	"github.com/fleetops/fleetcast/internal/config"
	"github.com/fleetops/fleetcast/internal/database"
	"github.com/fleetops/fleetcast/internal/modules/aggregation"
	"github.com/fleetops/fleetcast/internal/modules/calculations"
	"github.com/fleetops/fleetcast/internal/modules/equipment"
	"github.com/fleetops/fleetcast/internal/modules/financial"
	"github.com/fleetops/fleetcast/internal/modules/forecasting"
	"github.com/fleetops/fleetcast/internal/modules/planning"
	"github.com/fleetops/fleetcast/internal/modules/reliability"
	"github.com/fleetops/fleetcast/internal/scheduler"
	"github.com/fleetops/fleetcast/internal/server"
	"github.com/fleetops/fleetcast/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootstrapLog := logger.New(logger.Config{Level: "info", Pretty: true})
		bootstrapLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting fleetcast")

	// Databases
	fleetDB := mustOpenDB(log, database.Config{
		Path:    filepath.Join(cfg.DataDir, "fleet.db"),
		Profile: database.ProfileStandard,
		Name:    "fleet",
	})
	defer fleetDB.Close()

	cacheDB := mustOpenDB(log, database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	defer cacheDB.Close()

	// Repositories
	equipmentRepo := equipment.NewRepository(fleetDB.Conn(), log)
	costRepo := equipment.NewCostEventRepository(fleetDB.Conn(), log)
	failureRepo := equipment.NewFailureRepository(fleetDB.Conn(), log)
	resultsRepo := equipment.NewResultsRepository(fleetDB.Conn(), log)

	// Result cache
	calcCache := calculations.NewCache(cacheDB.Conn(), log)
	resultStore := calculations.NewResultStore(calcCache, calculations.DefaultResultTTL)

	// Analysis pipeline
	anchor := cfg.Analysis.FiscalAnchorMonth
	runner := analysis.NewRunner(analysis.Components{
		Aggregator: aggregation.New(anchor, log),
		Forecaster: forecasting.New(log),
		Modeler:    reliability.NewModeler(log),
		Predictor:  reliability.NewPredictor(log),
		Analyzer:   financial.NewAnalyzer(log),
		Engine:     financial.NewEngine(anchor, log),
		TCO:        financial.NewCalculator(anchor, cfg.Analysis.DowntimeHourlyRate, log),
		Optimizer:  planning.New(log),
		Cache:      resultStore,
	}, analysis.DefaultWorkers, log)

	fleetService := analysis.NewService(runner, equipmentRepo, costRepo, failureRepo, resultsRepo, log)

	// Off-site backups (optional)
	var backupService *backup.Service
	if cfg.Backup.Enabled() {
		s3Client, err := backup.NewS3Client(context.Background(), cfg.Backup, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize backup client")
		}
		backupService = backup.NewService(
			s3Client,
			[]*database.DB{fleetDB, cacheDB},
			cfg.DataDir,
			log,
		)
	}

	// HTTP server
	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		FleetDB:   fleetDB,
		CacheDB:   cacheDB,
		Equipment: equipmentRepo,
		Costs:     costRepo,
		Failures:  failureRepo,
		Results:   resultsRepo,
		Fleet:     fleetService,
		Backups:   backupService,
	})

	// Background jobs
	sched := scheduler.New(log)
	registerJobs(sched, srv, cfg, fleetService, calcCache, backupService, fleetDB, cacheDB, log)
	sched.Start()
	defer sched.Stop()

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func mustOpenDB(log zerolog.Logger, cfg database.Config) *database.DB {
	db, err := database.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("database", cfg.Name).Msg("Failed to open database")
	}
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Str("database", cfg.Name).Msg("Failed to run migrations")
	}
	return db
}

func registerJobs(
	sched *scheduler.Scheduler,
	srv *server.Server,
	cfg *config.Config,
	fleetService *analysis.Service,
	calcCache *calculations.Cache,
	backupService *backup.Service,
	fleetDB, cacheDB *database.DB,
	log zerolog.Logger,
) {
	databases := []*database.DB{fleetDB, cacheDB}

	fleetJob := scheduler.NewFleetAnalysisJob(fleetService, cfg.Analysis.AnalysisConfig(), log)
	maintenanceJob := scheduler.NewMaintenanceJob(databases, calcCache, cfg.DataDir, log)
	vacuumJob := scheduler.NewVacuumJob([]*database.DB{cacheDB}, log)

	jobs := []scheduler.Job{fleetJob, maintenanceJob, vacuumJob}

	mustAdd := func(schedule string, job scheduler.Job) {
		if err := sched.AddJob(schedule, job); err != nil {
			log.Fatal().Err(err).Str("job", job.Name()).Msg("Failed to register job")
		}
	}

	mustAdd("0 0 1 * * *", fleetJob)       // 1 AM nightly fleet analysis
	mustAdd("0 0 2 * * *", maintenanceJob) // 2 AM daily maintenance
	mustAdd("0 0 4 * * 0", vacuumJob)      // 4 AM Sunday vacuum

	if backupService != nil {
		backupJob := scheduler.NewBackupJob(backupService, cfg.Backup.RetentionCount, log)
		mustAdd("0 30 2 * * *", backupJob) // 2:30 AM daily backup
		jobs = append(jobs, backupJob)
	}

	srv.SetJobs(jobs...)
}
