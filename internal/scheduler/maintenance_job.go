package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/fleetops/fleetcast/internal/database"
)

// CachePurger removes expired calculation cache entries.
type CachePurger interface {
	PurgeExpired() (int64, error)
}

// MaintenanceJob performs daily database maintenance: integrity checks,
// WAL checkpoints, cache purge, and a disk space check.
type MaintenanceJob struct {
	databases []*database.DB
	purger    CachePurger
	dataDir   string
	log       zerolog.Logger
}

// NewMaintenanceJob creates a new daily maintenance job
func NewMaintenanceJob(databases []*database.DB, purger CachePurger, dataDir string, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		databases: databases,
		purger:    purger,
		dataDir:   dataDir,
		log:       log.With().Str("job", "maintenance").Logger(),
	}
}

// Run executes the daily maintenance job
func (j *MaintenanceJob) Run() error {
	j.log.Info().Msg("Starting daily maintenance")
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	for _, db := range j.databases {
		j.log.Debug().Str("database", db.Name()).Msg("Running integrity check")

		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("integrity check failed for %s: %w", db.Name(), err)
		}

		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			// Checkpoints retry tomorrow; not worth failing the job.
			j.log.Warn().
				Str("database", db.Name()).
				Err(err).
				Msg("WAL checkpoint failed")
		}
	}

	if j.purger != nil {
		purged, err := j.purger.PurgeExpired()
		if err != nil {
			j.log.Warn().Err(err).Msg("Cache purge failed")
		} else if purged > 0 {
			j.log.Info().Int64("purged", purged).Msg("Purged expired cache entries")
		}
	}

	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Daily maintenance completed")

	return nil
}

// Name returns the job name for scheduler
func (j *MaintenanceJob) Name() string {
	return "maintenance"
}

// checkDiskSpace verifies sufficient disk space is available for the data dir
func (j *MaintenanceJob) checkDiskSpace() error {
	usage, err := disk.Usage(j.dataDir)
	if err != nil {
		return fmt.Errorf("failed to stat filesystem: %w", err)
	}

	freeGB := float64(usage.Free) / 1e9

	j.log.Debug().Float64("free_gb", freeGB).Msg("Disk space check")

	if freeGB < 0.5 {
		return fmt.Errorf("only %.2f GB free on data volume", freeGB)
	}
	if freeGB < 5.0 {
		j.log.Warn().Float64("free_gb", freeGB).Msg("Disk space running low")
	}

	return nil
}

// VacuumJob reclaims space in the rewrite-heavy databases. Weekly; VACUUM is
// too expensive to run nightly.
type VacuumJob struct {
	databases []*database.DB
	log       zerolog.Logger
}

// NewVacuumJob creates a new weekly vacuum job
func NewVacuumJob(databases []*database.DB, log zerolog.Logger) *VacuumJob {
	return &VacuumJob{
		databases: databases,
		log:       log.With().Str("job", "vacuum").Logger(),
	}
}

// Run executes the weekly vacuum job
func (j *VacuumJob) Run() error {
	j.log.Info().Msg("Starting weekly vacuum")
	startTime := time.Now()

	for _, db := range j.databases {
		j.log.Info().Str("database", db.Name()).Msg("Running VACUUM")

		if err := db.Vacuum(); err != nil {
			j.log.Error().
				Str("database", db.Name()).
				Err(err).
				Msg("VACUUM failed")
			// Continue with other databases
		}
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Weekly vacuum completed")

	return nil
}

// Name returns the job name for scheduler
func (j *VacuumJob) Name() string {
	return "vacuum"
}
